// Package present maps verdicts to the copy and call-to-action shown to the
// user.
package present

import "visa-checker/internal/domain"

// Copy is the display text and link for one verdict.
type Copy struct {
	Title    string `json:"title" yaml:"title"`
	Body     string `json:"body" yaml:"body"`
	CTALabel string `json:"ctaLabel" yaml:"cta_label"`
	CTAURL   string `json:"ctaUrl,omitempty" yaml:"cta_url"`
}

// Result is what a client renders once the questionnaire is finished.
type Result struct {
	Verdict domain.Verdict `json:"verdict"`
	Copy
}

// Presenter holds the copy for each verdict.
type Presenter struct {
	qualified   Copy
	needsReview Copy
}

// DefaultQualified and DefaultNeedsReview are used for fields left empty in
// configuration.
var (
	DefaultQualified = Copy{
		Title:    "Congratulations! You are likely eligible.",
		Body:     "This check covers the general requirements only. The final decision depends on your circumstances and the documents you submit.",
		CTALabel: "Book a consultation",
	}
	DefaultNeedsReview = Copy{
		Title:    "You may not meet every requirement, but an expert should take a look.",
		Body:     "Depending on the occupation, the exam route and your circumstances there can still be a way forward. Let's go through your situation together.",
		CTALabel: "Talk to an expert for free",
	}
)

// New builds a presenter, filling blank fields from the defaults.
func New(qualified, needsReview Copy) *Presenter {
	return &Presenter{
		qualified:   withDefaults(qualified, DefaultQualified),
		needsReview: withDefaults(needsReview, DefaultNeedsReview),
	}
}

// Present returns the copy for v. Anything other than qualified gets the
// needs-review copy.
func (p *Presenter) Present(v domain.Verdict) Result {
	if v == domain.VerdictQualified {
		return Result{Verdict: v, Copy: p.qualified}
	}
	return Result{Verdict: domain.VerdictNeedsReview, Copy: p.needsReview}
}

func withDefaults(c, def Copy) Copy {
	if c.Title == "" {
		c.Title = def.Title
	}
	if c.Body == "" {
		c.Body = def.Body
	}
	if c.CTALabel == "" {
		c.CTALabel = def.CTALabel
	}
	if c.CTAURL == "" {
		c.CTAURL = def.CTAURL
	}
	return c
}
