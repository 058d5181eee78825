package wizard

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visa-checker/internal/domain"
)

type manualTimer struct {
	f       func()
	stopped bool
	fired   bool
}

// manualScheduler queues callbacks until the test fires them.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (s *manualScheduler) AfterFunc(_ time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{f: f}
	s.timers = append(s.timers, t)
	return &manualHandle{s: s, t: t}
}

type manualHandle struct {
	s *manualScheduler
	t *manualTimer
}

func (h *manualHandle) Stop() bool {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	if h.t.stopped || h.t.fired {
		return false
	}
	h.t.stopped = true
	return true
}

// fire runs every live callback.
func (s *manualScheduler) fire() int {
	return s.run(false)
}

// fireStale also runs stopped callbacks, like a timer that fired just before
// Stop was called.
func (s *manualScheduler) fireStale() int {
	return s.run(true)
}

func (s *manualScheduler) run(includeStopped bool) int {
	s.mu.Lock()
	var due []*manualTimer
	for _, t := range s.timers {
		if t.fired || (t.stopped && !includeStopped) {
			continue
		}
		t.fired = true
		due = append(due, t)
	}
	s.timers = nil
	s.mu.Unlock()

	for _, t := range due {
		t.f()
	}
	return len(due)
}

func fiveQuestions() domain.Catalog {
	return domain.MustCatalog(domain.CatalogDefinition{
		ID: "five",
		Questions: []domain.Question{
			{ID: "q1", Text: "One?", Expected: true},
			{ID: "q2", Text: "Two?", Expected: true},
			{ID: "q3", Text: "Three?", Expected: true},
			{ID: "q4", Text: "Four?", Expected: true},
			{ID: "q5", Text: "Five?", Expected: true},
		},
	})
}

func withRecord() domain.Catalog {
	return domain.MustCatalog(domain.CatalogDefinition{
		ID: "record",
		Questions: []domain.Question{
			{ID: "age", Text: "Are you 18 or older?", Expected: true},
			{ID: "skill", Text: "Did you pass the skills test?", Expected: true},
			{ID: "record", Text: "Do you have a criminal record?", Expected: false},
			{ID: "health", Text: "Are you in good health?", Expected: true},
		},
	})
}

func newManual(t *testing.T, catalog domain.Catalog, opts ...Option) (*Controller, *manualScheduler) {
	t.Helper()
	sched := &manualScheduler{}
	opts = append([]Option{WithScheduler(sched), WithDelay(time.Second)}, opts...)
	c := New(catalog, opts...)
	t.Cleanup(c.Stop)
	return c, sched
}

func answerAll(c *Controller, values ...bool) {
	for _, v := range values {
		c.Answer(v)
	}
}

func TestNewStartsAsking(t *testing.T) {
	c := New(fiveQuestions())

	assert.Equal(t, 0, c.StepIndex())
	assert.False(t, c.IsFinished())
	assert.Equal(t, domain.Forward, c.Direction())
	assert.Zero(t, c.ProgressFraction())

	q, err := c.CurrentQuestion()
	require.NoError(t, err)
	assert.Equal(t, "q1", q.ID)

	for _, e := range c.Snapshot().Answers {
		assert.Equal(t, domain.Unanswered, e.Answer, e.QuestionID)
	}
}

func TestAnswerDefersAdvance(t *testing.T) {
	c, sched := newManual(t, fiveQuestions())

	snap := c.Answer(true)
	assert.Equal(t, 0, snap.StepIndex)
	assert.True(t, snap.Pending)
	assert.Equal(t, domain.Yes, snap.AnswerFor("q1"))

	require.Equal(t, 1, sched.fire())
	assert.Equal(t, 1, c.StepIndex())
	assert.False(t, c.Pending())
	assert.InDelta(t, 0.2, c.ProgressFraction(), 1e-9)
}

func TestAllExpectedAnswersQualify(t *testing.T) {
	c := New(fiveQuestions(), WithDelay(0))
	answerAll(c, true, true, true, true, true)

	require.True(t, c.IsFinished())
	v, err := c.Verdict()
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictQualified, v)
	assert.Equal(t, 1.0, c.ProgressFraction())

	snap := c.Snapshot()
	require.NotNil(t, snap.Verdict)
	assert.Equal(t, domain.VerdictQualified, *snap.Verdict)
	assert.Nil(t, snap.Question)
}

func TestOneUnexpectedAnswerNeedsReview(t *testing.T) {
	c := New(fiveQuestions(), WithDelay(0))
	answerAll(c, true, true, false, true, true)

	a, err := c.Assessment()
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictNeedsReview, a.Verdict)
	assert.Equal(t, []string{"q3"}, a.Unmet)
}

func TestNegativelyPhrasedQuestionExpectsNo(t *testing.T) {
	c := New(withRecord(), WithDelay(0))
	answerAll(c, true, true, false, true)

	v, err := c.Verdict()
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictQualified, v)

	c.Reset()
	answerAll(c, true, true, true, true)
	v, err = c.Verdict()
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictNeedsReview, v)
}

func TestBackAtFirstQuestionIsIgnored(t *testing.T) {
	c, _ := newManual(t, fiveQuestions())
	before := c.Snapshot()

	for i := 0; i < 3; i++ {
		snap := c.Back()
		assert.True(t, snap.Ignored)
		assert.Equal(t, 0, snap.StepIndex)
	}
	after := c.Snapshot()
	assert.Equal(t, before.Revision, after.Revision)
	assert.Equal(t, domain.Forward, after.Direction)
}

func TestResetAfterFinish(t *testing.T) {
	c := New(fiveQuestions(), WithDelay(0))
	answerAll(c, true, false, true, false, true)
	require.True(t, c.IsFinished())

	snap := c.Reset()
	assert.False(t, c.IsFinished())
	assert.Equal(t, 0, snap.StepIndex)
	assert.Zero(t, snap.Answered)
	for _, e := range snap.Answers {
		assert.Equal(t, domain.Unanswered, e.Answer)
	}
	assert.Nil(t, snap.Verdict)
}

func TestAnswerThenBackDoesNotDoubleMove(t *testing.T) {
	c, sched := newManual(t, fiveQuestions())
	c.Answer(true)
	sched.fire()
	c.Answer(true)
	sched.fire()
	require.Equal(t, 2, c.StepIndex())

	c.Answer(false)
	snap := c.Back()
	assert.False(t, snap.Ignored)
	assert.Equal(t, domain.Backward, snap.Direction)
	assert.False(t, snap.Pending)

	assert.Zero(t, sched.fire())
	assert.Equal(t, 2, c.StepIndex())
	assert.Equal(t, domain.No, c.Answers().Answer("q3"))
}

func TestAnswerThenBackOnFirstQuestion(t *testing.T) {
	c, sched := newManual(t, fiveQuestions())
	c.Answer(true)
	c.Back()
	sched.fire()
	assert.Equal(t, 0, c.StepIndex())
}

func TestStaleAdvanceAfterResetIsDiscarded(t *testing.T) {
	c, sched := newManual(t, fiveQuestions())
	c.Answer(true)
	c.Reset()

	require.Equal(t, 1, sched.fireStale())
	assert.Equal(t, 0, c.StepIndex())
	assert.Zero(t, c.Snapshot().Answered)
}

func TestSecondAnswerReplacesPendingAdvance(t *testing.T) {
	c, sched := newManual(t, fiveQuestions())
	c.Answer(true)
	c.Answer(false)

	sched.fireStale()
	assert.Equal(t, 1, c.StepIndex())
	assert.Equal(t, domain.No, c.Answers().Answer("q1"))
}

func TestAnswerIgnoredWhenFinished(t *testing.T) {
	c := New(fiveQuestions(), WithDelay(0))
	answerAll(c, true, true, true, true, true)
	rev := c.Snapshot().Revision

	snap := c.Answer(false)
	assert.True(t, snap.Ignored)
	assert.Equal(t, rev, snap.Revision)
	assert.Equal(t, 5, c.StepIndex())
	v, err := c.Verdict()
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictQualified, v)
}

func TestCurrentQuestionOutOfRangeWhenFinished(t *testing.T) {
	c := New(fiveQuestions(), WithDelay(0))
	answerAll(c, true, true, true, true, true)

	_, err := c.CurrentQuestion()
	assert.ErrorIs(t, err, domain.ErrOutOfRange)
}

func TestBackKeepsPreviousAnswer(t *testing.T) {
	c := New(fiveQuestions(), WithDelay(0))
	c.Answer(false)
	snap := c.Back()

	assert.Equal(t, 0, snap.StepIndex)
	assert.Equal(t, domain.Backward, snap.Direction)
	assert.Equal(t, domain.No, snap.AnswerFor("q1"))
	require.NotNil(t, snap.Question)
	assert.Equal(t, "q1", snap.Question.ID)
}

func TestBackFromFinished(t *testing.T) {
	c := New(fiveQuestions(), WithDelay(0))
	answerAll(c, true, true, true, true, true)

	snap := c.Back()
	assert.False(t, snap.Finished)
	assert.Equal(t, 4, snap.StepIndex)
	assert.Nil(t, snap.Verdict)
}

func TestVerdictBeforeFinishIsPreconditionError(t *testing.T) {
	c := New(fiveQuestions(), WithDelay(0))
	c.Answer(true)

	_, err := c.Verdict()
	assert.ErrorIs(t, err, domain.ErrPrecondition)

	answerAll(c, true, true, true, true)
	c.Back()
	_, err = c.Verdict()
	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

func TestObserverSeesDeferredAdvance(t *testing.T) {
	var mu sync.Mutex
	var seen []domain.Snapshot
	c, sched := newManual(t, fiveQuestions(), WithObserver(func(s domain.Snapshot) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	}), WithSessionID("s-1"))

	c.Answer(true)
	sched.fire()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.True(t, seen[0].Pending)
	assert.Equal(t, 0, seen[0].StepIndex)
	assert.Equal(t, 1, seen[1].StepIndex)
	assert.Greater(t, seen[1].Revision, seen[0].Revision)
	assert.Equal(t, "s-1", seen[1].SessionID)
}

func TestRealTimerAdvances(t *testing.T) {
	c := New(fiveQuestions(), WithDelay(5*time.Millisecond))
	t.Cleanup(c.Stop)

	c.Answer(true)
	require.Eventually(t, func() bool { return c.StepIndex() == 1 }, time.Second, time.Millisecond)
	assert.False(t, c.Pending())
}

func TestStepStaysInRange(t *testing.T) {
	c, sched := newManual(t, withRecord())
	n := c.Catalog().Len()
	rnd := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		switch rnd.Intn(6) {
		case 0, 1:
			c.Answer(rnd.Intn(2) == 0)
		case 2:
			c.Back()
		case 3:
			if rnd.Intn(10) == 0 {
				c.Reset()
			}
		case 4:
			sched.fire()
		case 5:
			sched.fireStale()
		}

		snap := c.Snapshot()
		require.GreaterOrEqual(t, snap.StepIndex, 0)
		require.LessOrEqual(t, snap.StepIndex, n)
		require.Equal(t, snap.StepIndex == n, snap.Finished)
		require.Equal(t, snap.Finished, c.IsFinished())
		require.GreaterOrEqual(t, snap.Progress, 0.0)
		require.LessOrEqual(t, snap.Progress, 1.0)
	}
}
