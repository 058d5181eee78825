package wizard

import "visa-checker/internal/domain"

// AnswerStore holds one answer per catalog question. Every question id has an
// entry from construction on; only the Controller writes to it.
type AnswerStore struct {
	order  []string
	values map[string]domain.Answer
}

func newAnswerStore(catalog domain.Catalog) *AnswerStore {
	s := &AnswerStore{
		order:  make([]string, 0, catalog.Len()),
		values: make(map[string]domain.Answer, catalog.Len()),
	}
	for _, q := range catalog.Questions() {
		s.order = append(s.order, q.ID)
		s.values[q.ID] = domain.Unanswered
	}
	return s
}

// Answer returns the recorded answer for id.
func (s *AnswerStore) Answer(id string) domain.Answer {
	return s.values[id]
}

// Answered counts questions that have a yes or no.
func (s *AnswerStore) Answered() int {
	n := 0
	for _, a := range s.values {
		if a != domain.Unanswered {
			n++
		}
	}
	return n
}

func (s *AnswerStore) Len() int { return len(s.order) }

// Entries lists answers in catalog order.
func (s *AnswerStore) Entries() []domain.AnswerEntry {
	out := make([]domain.AnswerEntry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, domain.AnswerEntry{QuestionID: id, Answer: s.values[id]})
	}
	return out
}

// Set returns a detached copy of the answers.
func (s *AnswerStore) Set() domain.AnswerSet {
	out := make(domain.AnswerSet, len(s.values))
	for id, a := range s.values {
		out[id] = a
	}
	return out
}

func (s *AnswerStore) set(id string, a domain.Answer) {
	if _, ok := s.values[id]; !ok {
		return
	}
	s.values[id] = a
}

func (s *AnswerStore) clear() {
	for id := range s.values {
		s.values[id] = domain.Unanswered
	}
}
