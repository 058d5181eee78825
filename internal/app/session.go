package app

import (
	"sync"
	"time"

	"visa-checker/internal/domain"
	"visa-checker/internal/wizard"
)

// Session is one user's walk through a catalog plus the clients watching it.
type Session struct {
	id         string
	now        func() time.Time
	controller *wizard.Controller

	mu          sync.Mutex
	lastSeen    time.Time
	published   uint64
	closed      bool
	subscribers map[chan domain.Snapshot]struct{}
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(id string, catalog domain.Catalog, opts ...wizard.Option) *Session {
	return newSessionWithClock(id, catalog, time.Now, opts...)
}

func newSessionWithClock(id string, catalog domain.Catalog, now func() time.Time, opts ...wizard.Option) *Session {
	s := &Session{
		id:          id,
		lastSeen:    now(),
		now:         now,
		subscribers: make(map[chan domain.Snapshot]struct{}),
	}
	opts = append(opts, wizard.WithSessionID(id), wizard.WithObserver(s.publish))
	s.controller = wizard.New(catalog, opts...)
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) CatalogID() string { return s.controller.Catalog().ID() }

// LastSeen is the time of the most recent client call on the session.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Snapshot returns the session's current state.
func (s *Session) Snapshot() domain.Snapshot {
	return s.controller.Snapshot()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = s.now()
	s.mu.Unlock()
}

// publish fans a controller change out to subscribers. Snapshots can arrive
// out of order from the timer goroutine; older revisions are dropped.
func (s *Session) publish(snap domain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || snap.Revision <= s.published {
		return
	}
	s.published = snap.Revision
	s.broadcastLocked(snap)
}

func (s *Session) subscribe() (<-chan domain.Snapshot, func()) {
	ch := make(chan domain.Snapshot, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	ch <- s.controller.Snapshot()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked(snap domain.Snapshot) {
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Slow client: drop the oldest queued snapshot, the newest wins.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

// close cancels any pending advance and disconnects subscribers.
func (s *Session) close() {
	s.controller.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}
