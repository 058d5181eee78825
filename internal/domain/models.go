package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Question is a single yes/no eligibility question.
type Question struct {
	ID   string `json:"id" yaml:"id"`
	Text string `json:"text" yaml:"text"`
	Hint string `json:"hint,omitempty" yaml:"hint,omitempty"`
	// Expected is the answer that satisfies the question. Negatively phrased
	// questions ("do you have a criminal record?") expect false.
	Expected bool `json:"expected" yaml:"expected"`
}

// CatalogDefinition is the serialized form of a catalog as it is stored in
// Postgres, YAML files or the Redis cache.
type CatalogDefinition struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title,omitempty" yaml:"title,omitempty"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Catalog is an immutable, ordered set of questions.
type Catalog struct {
	id        string
	title     string
	questions []Question
	index     map[string]int
}

// NewCatalog validates def and builds a catalog from it.
func NewCatalog(def CatalogDefinition) (Catalog, error) {
	if strings.TrimSpace(def.ID) == "" {
		return Catalog{}, fmt.Errorf("%w: missing id", ErrInvalidCatalog)
	}
	if len(def.Questions) == 0 {
		return Catalog{}, fmt.Errorf("%w: catalog %q has no questions", ErrInvalidCatalog, def.ID)
	}

	questions := make([]Question, len(def.Questions))
	index := make(map[string]int, len(def.Questions))
	for i, q := range def.Questions {
		if strings.TrimSpace(q.ID) == "" {
			return Catalog{}, fmt.Errorf("%w: question %d has no id", ErrInvalidCatalog, i)
		}
		if strings.TrimSpace(q.Text) == "" {
			return Catalog{}, fmt.Errorf("%w: question %q has no text", ErrInvalidCatalog, q.ID)
		}
		if _, dup := index[q.ID]; dup {
			return Catalog{}, fmt.Errorf("%w: duplicate question id %q", ErrInvalidCatalog, q.ID)
		}
		index[q.ID] = i
		questions[i] = q
	}
	return Catalog{id: def.ID, title: def.Title, questions: questions, index: index}, nil
}

// MustCatalog is NewCatalog for static data; it panics on invalid input.
func MustCatalog(def CatalogDefinition) Catalog {
	c, err := NewCatalog(def)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Catalog) ID() string    { return c.id }
func (c Catalog) Title() string { return c.title }
func (c Catalog) Len() int      { return len(c.questions) }

// At returns the question at position i.
func (c Catalog) At(i int) (Question, bool) {
	if i < 0 || i >= len(c.questions) {
		return Question{}, false
	}
	return c.questions[i], true
}

// Lookup returns the question with the given id.
func (c Catalog) Lookup(id string) (Question, bool) {
	i, ok := c.index[id]
	if !ok {
		return Question{}, false
	}
	return c.questions[i], true
}

// Questions returns a copy of the questions in presentation order.
func (c Catalog) Questions() []Question {
	out := make([]Question, len(c.questions))
	copy(out, c.questions)
	return out
}

// Definition converts the catalog back to its serialized form.
func (c Catalog) Definition() CatalogDefinition {
	return CatalogDefinition{ID: c.id, Title: c.title, Questions: c.Questions()}
}

// Answer is the tri-state value recorded for a question.
type Answer int8

const (
	Unanswered Answer = iota
	Yes
	No
)

// AnswerOf converts a boolean response.
func AnswerOf(v bool) Answer {
	if v {
		return Yes
	}
	return No
}

// Bool reports the boolean value and whether the question was answered at all.
func (a Answer) Bool() (value bool, answered bool) {
	switch a {
	case Yes:
		return true, true
	case No:
		return false, true
	default:
		return false, false
	}
}

// Matches reports whether the answer equals the expected boolean. Unanswered
// never matches.
func (a Answer) Matches(expected bool) bool {
	v, ok := a.Bool()
	return ok && v == expected
}

func (a Answer) String() string {
	switch a {
	case Yes:
		return "yes"
	case No:
		return "no"
	default:
		return "unanswered"
	}
}

// ParseAnswer accepts yes/no/true/false/y/n/1/0 (case-insensitive).
func ParseAnswer(raw string) (Answer, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "y", "true", "t", "1":
		return Yes, nil
	case "no", "n", "false", "f", "0":
		return No, nil
	case "", "unanswered", "null":
		return Unanswered, nil
	}
	return Unanswered, fmt.Errorf("invalid answer %q", raw)
}

// MarshalJSON encodes answers as true, false or null.
func (a Answer) MarshalJSON() ([]byte, error) {
	v, ok := a.Bool()
	if !ok {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	var v *bool
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		*a = Unanswered
		return nil
	}
	*a = AnswerOf(*v)
	return nil
}

// AnswerSet is a plain id → answer mapping, used where answers arrive all at
// once (CLI evaluation, tests).
type AnswerSet map[string]Answer

// Answer returns the answer recorded for id, or Unanswered.
func (s AnswerSet) Answer(id string) Answer {
	return s[id]
}

// Verdict is the outcome of an eligibility check.
type Verdict string

const (
	VerdictQualified   Verdict = "qualified"
	VerdictNeedsReview Verdict = "needsReview"
)

// Direction records the last navigation direction. It never gates logic.
type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
)

// AnswerEntry pairs a question id with its answer, in catalog order.
type AnswerEntry struct {
	QuestionID string `json:"questionId"`
	Answer     Answer `json:"answer"`
}

// Snapshot is a read-only view of a wizard at one point in time.
type Snapshot struct {
	SessionID string        `json:"sessionId,omitempty"`
	CatalogID string        `json:"catalogId"`
	Revision  uint64        `json:"revision"`
	StepIndex int           `json:"stepIndex"`
	Total     int           `json:"total"`
	Answered  int           `json:"answered"`
	Direction Direction     `json:"direction"`
	Finished  bool          `json:"finished"`
	Progress  float64       `json:"progress"`
	Pending   bool          `json:"pending"`
	Ignored   bool          `json:"ignored,omitempty"`
	Question  *Question     `json:"question,omitempty"`
	Answers   []AnswerEntry `json:"answers"`
	Verdict   *Verdict      `json:"verdict,omitempty"`
}

// AnswerFor returns the answer recorded for id in the snapshot.
func (s Snapshot) AnswerFor(id string) Answer {
	for _, e := range s.Answers {
		if e.QuestionID == id {
			return e.Answer
		}
	}
	return Unanswered
}
