// Package eligibility turns a fully answered questionnaire into a verdict.
//
// Evaluation is pure: no I/O, no clock, no shared state. The same catalog and
// answers always produce the same result.
package eligibility

import (
	"fmt"

	"visa-checker/internal/domain"
)

// Answers is read access to recorded answers.
type Answers interface {
	Answer(questionID string) domain.Answer
}

// Assessment is a verdict plus the questions that prevented qualification.
type Assessment struct {
	Verdict domain.Verdict `json:"verdict"`
	// Unmet lists, in catalog order, the ids whose answer differs from the
	// expected value.
	Unmet []string `json:"unmet,omitempty"`
}

// Evaluate returns the verdict for a completed answer set.
func Evaluate(catalog domain.Catalog, answers Answers) (domain.Verdict, error) {
	a, err := Assess(catalog, answers)
	if err != nil {
		return "", err
	}
	return a.Verdict, nil
}

// Assess checks the precondition and compares every answer with its
// question's expected value. There is no weighting and no partial credit.
func Assess(catalog domain.Catalog, answers Answers) (Assessment, error) {
	if err := Complete(catalog, answers); err != nil {
		return Assessment{}, err
	}

	var unmet []string
	for _, q := range catalog.Questions() {
		if !answers.Answer(q.ID).Matches(q.Expected) {
			unmet = append(unmet, q.ID)
		}
	}
	if len(unmet) == 0 {
		return Assessment{Verdict: domain.VerdictQualified}, nil
	}
	return Assessment{Verdict: domain.VerdictNeedsReview, Unmet: unmet}, nil
}

// Complete reports ErrPrecondition for the first unanswered question.
func Complete(catalog domain.Catalog, answers Answers) error {
	if answers == nil {
		return fmt.Errorf("%w: no answers", domain.ErrPrecondition)
	}
	for _, q := range catalog.Questions() {
		if _, ok := answers.Answer(q.ID).Bool(); !ok {
			return fmt.Errorf("%w: question %q is unanswered", domain.ErrPrecondition, q.ID)
		}
	}
	return nil
}
