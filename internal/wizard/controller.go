// Package wizard implements the questionnaire state machine.
//
// A Controller walks a catalog one question at a time. States are Asking(i)
// for i in [0, N) and Finished (step == N). Answering schedules a deferred
// advance so the caller can render the selection first; any later call to
// Answer, Back or Reset cancels an advance that has not fired yet.
package wizard

import (
	"fmt"
	"sync"
	"time"

	"visa-checker/internal/domain"
	"visa-checker/internal/eligibility"
)

// DefaultAdvanceDelay is the pause between recording an answer and moving on.
const DefaultAdvanceDelay = 300 * time.Millisecond

// Observer receives a snapshot after every state change, including deferred
// advances. It is called without the controller lock held; use
// Snapshot.Revision to discard out-of-order deliveries.
type Observer func(domain.Snapshot)

// Option configures a Controller.
type Option func(*Controller)

// WithDelay sets the advance delay. A delay <= 0 advances synchronously.
func WithDelay(d time.Duration) Option {
	return func(c *Controller) { c.delay = d }
}

// WithScheduler replaces the timer source.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) {
		if s != nil {
			c.slot.sched = s
		}
	}
}

// WithObserver registers fn for change notifications.
func WithObserver(fn Observer) Option {
	return func(c *Controller) { c.observer = fn }
}

// WithSessionID stamps snapshots with id.
func WithSessionID(id string) Option {
	return func(c *Controller) { c.sessionID = id }
}

// Controller owns the step index, direction and answers of one questionnaire.
// It is safe for concurrent use.
type Controller struct {
	catalog   domain.Catalog
	sessionID string
	delay     time.Duration
	observer  Observer

	mu        sync.Mutex
	answers   *AnswerStore
	step      int
	direction domain.Direction
	revision  uint64
	slot      deferredSlot
}

// New starts a controller at Asking(0) with every answer unanswered.
func New(catalog domain.Catalog, opts ...Option) *Controller {
	c := &Controller{
		catalog:   catalog,
		delay:     DefaultAdvanceDelay,
		answers:   newAnswerStore(catalog),
		direction: domain.Forward,
		slot:      deferredSlot{sched: timeScheduler{}},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Catalog returns the catalog being asked.
func (c *Controller) Catalog() domain.Catalog { return c.catalog }

// Answer records v for the current question and schedules the advance.
// It is ignored once the wizard has finished.
func (c *Controller) Answer(v bool) domain.Snapshot {
	c.mu.Lock()
	if c.finishedLocked() {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		snap.Ignored = true
		return snap
	}

	c.slot.cancel()
	q, _ := c.catalog.At(c.step)
	c.answers.set(q.ID, domain.AnswerOf(v))
	c.direction = domain.Forward

	if c.delay <= 0 {
		c.step++
	} else {
		from := c.step
		c.slot.arm(c.delay, func(gen uint64) { c.advance(gen, from) })
	}
	return c.commitLocked()
}

// Back moves to the previous question immediately. With an advance pending it
// only cancels that advance, leaving the wizard on the question just
// answered. At step 0 with nothing pending it is ignored.
func (c *Controller) Back() domain.Snapshot {
	c.mu.Lock()
	cancelled := c.slot.cancel()
	if !cancelled && c.step == 0 {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		snap.Ignored = true
		return snap
	}

	c.direction = domain.Backward
	if !cancelled {
		c.step--
	}
	return c.commitLocked()
}

// Reset returns to Asking(0) and clears every answer.
func (c *Controller) Reset() domain.Snapshot {
	c.mu.Lock()
	c.slot.cancel()
	c.answers.clear()
	c.step = 0
	c.direction = domain.Forward
	return c.commitLocked()
}

// Stop cancels a pending advance without changing state. Call it when the
// controller is discarded.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slot.cancel()
}

// CurrentQuestion returns the question being asked, or ErrOutOfRange once
// finished.
func (c *Controller) CurrentQuestion() (domain.Question, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.catalog.At(c.step)
	if !ok {
		return domain.Question{}, domain.ErrOutOfRange
	}
	return q, nil
}

func (c *Controller) IsFinished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finishedLocked()
}

// ProgressFraction is step/N, always within [0, 1].
func (c *Controller) ProgressFraction() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progressLocked()
}

func (c *Controller) StepIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

func (c *Controller) Direction() domain.Direction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.direction
}

// Pending reports whether a deferred advance is outstanding.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slot.pending()
}

// Answers returns a copy of the recorded answers.
func (c *Controller) Answers() domain.AnswerSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.answers.Set()
}

// Verdict evaluates the answers. Before the wizard finishes it returns an
// error wrapping domain.ErrPrecondition.
func (c *Controller) Verdict() (domain.Verdict, error) {
	a, err := c.Assessment()
	if err != nil {
		return "", err
	}
	return a.Verdict, nil
}

// Assessment is Verdict with the list of unmet questions.
func (c *Controller) Assessment() (eligibility.Assessment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.finishedLocked() {
		if err := eligibility.Complete(c.catalog, c.answers); err != nil {
			return eligibility.Assessment{}, err
		}
		return eligibility.Assessment{}, fmt.Errorf("%w: wizard is at step %d of %d", domain.ErrPrecondition, c.step, c.catalog.Len())
	}
	return eligibility.Assess(c.catalog, c.answers)
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) advance(gen uint64, from int) {
	c.mu.Lock()
	if !c.slot.claim(gen) || c.step != from || c.finishedLocked() {
		c.mu.Unlock()
		return
	}
	c.step = from + 1
	c.commitLocked()
}

// commitLocked bumps the revision, releases the lock and notifies the
// observer.
func (c *Controller) commitLocked() domain.Snapshot {
	c.revision++
	snap := c.snapshotLocked()
	observer := c.observer
	c.mu.Unlock()

	if observer != nil {
		observer(snap)
	}
	return snap
}

func (c *Controller) finishedLocked() bool {
	return c.step >= c.catalog.Len()
}

func (c *Controller) progressLocked() float64 {
	n := c.catalog.Len()
	if n == 0 {
		return 1
	}
	p := float64(c.step) / float64(n)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

func (c *Controller) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		SessionID: c.sessionID,
		CatalogID: c.catalog.ID(),
		Revision:  c.revision,
		StepIndex: c.step,
		Total:     c.catalog.Len(),
		Answered:  c.answers.Answered(),
		Direction: c.direction,
		Finished:  c.finishedLocked(),
		Progress:  c.progressLocked(),
		Pending:   c.slot.pending(),
		Answers:   c.answers.Entries(),
	}
	if q, ok := c.catalog.At(c.step); ok {
		snap.Question = &q
	}
	if snap.Finished {
		if v, err := eligibility.Evaluate(c.catalog, c.answers); err == nil {
			snap.Verdict = &v
		}
	}
	return snap
}
