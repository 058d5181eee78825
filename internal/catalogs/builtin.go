// Package catalogs holds the questionnaires compiled into the binary.
package catalogs

import "visa-checker/internal/domain"

// DefaultID is served when no catalog is requested.
const DefaultID = "visa-ssw1"

var visaSSW1 = domain.MustCatalog(domain.CatalogDefinition{
	ID:    DefaultID,
	Title: "Specified Skilled Worker (i) visa requirements check",
	Questions: []domain.Question{
		{
			ID:       "age",
			Text:     "Are you 18 years of age or older?",
			Expected: true,
		},
		{
			ID:       "skill",
			Text:     "Have you passed the skills evaluation test (or completed Technical Intern Training (ii))?",
			Expected: true,
		},
		{
			ID:       "language",
			Text:     "Have you passed a Japanese language test at N4/A2 or above (or completed Technical Intern Training (ii))?",
			Expected: true,
		},
		{
			ID:       "record",
			Text:     "Have you ever been deported from Japan or convicted of a crime?",
			Hint:     "Answer \"No\" if neither applies to you.",
			Expected: false,
		},
		{
			ID:       "health",
			Text:     "Have you passed a medical check-up in your home country with no health issues?",
			Expected: true,
		},
	},
})

// VisaSSW1 is the specified-skilled-worker eligibility questionnaire.
func VisaSSW1() domain.Catalog { return visaSSW1 }

// Builtins lists every compiled-in catalog.
func Builtins() []domain.Catalog {
	return []domain.Catalog{visaSSW1}
}
