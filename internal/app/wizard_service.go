package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"visa-checker/internal/domain"
	"visa-checker/internal/present"
	"visa-checker/internal/wizard"
)

// SessionRepository abstracts how questionnaire sessions are tracked (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
	List() []*Session
}

// CatalogRepository loads question catalogs (from cache/backing store).
type CatalogRepository interface {
	GetCatalog(ctx context.Context, catalogID string) (domain.Catalog, error)
}

// Outcome is the presented verdict of a finished session.
type Outcome struct {
	present.Result
	Unmet []string `json:"unmet,omitempty"`
}

// WizardService contains the questionnaire use cases.
type WizardService struct {
	sessions  SessionRepository
	catalogs  CatalogRepository
	presenter *present.Presenter
	delay     time.Duration
	scheduler wizard.Scheduler
	newID     func() string
	now       func() time.Time
}

// Option tunes a WizardService.
type Option func(*WizardService)

// WithAdvanceDelay sets the pause between an answer and the next question.
func WithAdvanceDelay(d time.Duration) Option {
	return func(s *WizardService) { s.delay = d }
}

// WithScheduler replaces the timer source of new sessions; used by tests.
func WithScheduler(sched wizard.Scheduler) Option {
	return func(s *WizardService) { s.scheduler = sched }
}

// WithClock is test-only for deterministic idle expiry.
func WithClock(now func() time.Time) Option {
	return func(s *WizardService) { s.now = now }
}

func NewWizardService(store SessionRepository, catalogs CatalogRepository, presenter *present.Presenter, opts ...Option) *WizardService {
	s := &WizardService{
		sessions:  store,
		catalogs:  catalogs,
		presenter: presenter,
		delay:     wizard.DefaultAdvanceDelay,
		newID:     uuid.NewString,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.presenter == nil {
		s.presenter = present.New(present.Copy{}, present.Copy{})
	}
	return s
}

// Catalog returns a catalog by id.
func (s *WizardService) Catalog(ctx context.Context, catalogID string) (domain.Catalog, error) {
	return s.catalogs.GetCatalog(ctx, catalogID)
}

// Start opens a new session on the given catalog at its first question.
func (s *WizardService) Start(ctx context.Context, catalogID string) (domain.Snapshot, error) {
	catalog, err := s.catalogs.GetCatalog(ctx, catalogID)
	if err != nil {
		return domain.Snapshot{}, err
	}

	opts := []wizard.Option{wizard.WithDelay(s.delay)}
	if s.scheduler != nil {
		opts = append(opts, wizard.WithScheduler(s.scheduler))
	}
	session := newSessionWithClock(s.newID(), catalog, s.now, opts...)
	s.sessions.Put(session)
	return session.controller.Snapshot(), nil
}

// Answer records a yes/no for the session's current question.
func (s *WizardService) Answer(_ context.Context, sessionID string, value bool) (domain.Snapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return session.controller.Answer(value), nil
}

// Back moves the session to the previous question.
func (s *WizardService) Back(_ context.Context, sessionID string) (domain.Snapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return session.controller.Back(), nil
}

// Reset clears the session's answers and returns to the first question.
func (s *WizardService) Reset(_ context.Context, sessionID string) (domain.Snapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return session.controller.Reset(), nil
}

// State returns the current snapshot of a session.
func (s *WizardService) State(_ context.Context, sessionID string) (domain.Snapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return session.controller.Snapshot(), nil
}

// Result evaluates a finished session and maps the verdict to display copy.
// Unfinished sessions yield domain.ErrPrecondition.
func (s *WizardService) Result(_ context.Context, sessionID string) (Outcome, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return Outcome{}, err
	}
	assessment, err := session.controller.Assessment()
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Result: s.presenter.Present(assessment.Verdict),
		Unmet:  assessment.Unmet,
	}, nil
}

// Subscribe returns a channel that receives every state change of a session,
// deferred advances included. The caller must invoke the returned cancel
// function to avoid leaks.
func (s *WizardService) Subscribe(_ context.Context, sessionID string) (<-chan domain.Snapshot, func(), error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// End stops a session and forgets it.
func (s *WizardService) End(_ context.Context, sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.close()
	s.sessions.Delete(sessionID)
}

// Open counts sessions held by this instance.
func (s *WizardService) Open() int {
	return len(s.sessions.List())
}

// ExpireIdle ends sessions untouched for longer than maxIdle and returns how
// many were removed.
func (s *WizardService) ExpireIdle(ctx context.Context, maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	cutoff := s.now().Add(-maxIdle)
	removed := 0
	for _, session := range s.sessions.List() {
		if session.LastSeen().Before(cutoff) {
			s.End(ctx, session.ID())
			removed++
		}
	}
	return removed
}

func (s *WizardService) session(sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	session.touch()
	return session, nil
}
