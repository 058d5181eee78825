package wizard

import "time"

// Timer is the handle of a scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs callbacks after a delay. The default uses time.AfterFunc;
// tests substitute a manual scheduler.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type timeScheduler struct{}

func (timeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// deferredSlot holds at most one pending action. Each arm bumps the
// generation so a callback that already left the timer queue can tell it was
// superseded. All methods require the owner's lock.
type deferredSlot struct {
	sched Scheduler
	timer Timer
	gen   uint64
}

func (d *deferredSlot) pending() bool { return d.timer != nil }

// arm cancels any pending action and schedules fn(gen) after delay.
func (d *deferredSlot) arm(delay time.Duration, fn func(gen uint64)) {
	d.cancel()
	d.gen++
	gen := d.gen
	d.timer = d.sched.AfterFunc(delay, func() { fn(gen) })
}

// cancel stops the pending action, if any, and reports whether one existed.
func (d *deferredSlot) cancel() bool {
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.gen++
	return true
}

// claim is called from the fired callback; it succeeds only for the current
// generation and clears the slot.
func (d *deferredSlot) claim(gen uint64) bool {
	if d.timer == nil || gen != d.gen {
		return false
	}
	d.timer = nil
	return true
}
