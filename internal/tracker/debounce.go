package tracker

import (
	"sync"
	"time"

	"github.com/coder/quartz"
)

// Debouncer collapses bursts of calls into one delayed run. Scheduled and
// exclusive runs are serialized; once Cancel or Exclusive returns, an
// earlier scheduled run that has not started never executes.
type Debouncer struct {
	clock quartz.Clock
	delay time.Duration

	run sync.Mutex // held while a run executes

	mu    sync.Mutex
	gen   uint64
	timer *quartz.Timer
}

// NewDebouncer returns a Debouncer that waits delay after the last Schedule.
func NewDebouncer(clock quartz.Clock, delay time.Duration) *Debouncer {
	return &Debouncer{clock: clock, delay: delay}
}

// Schedule replaces any pending run with fn, delayed by the debounce window.
func (d *Debouncer) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.clock.AfterFunc(d.delay, func() {
		d.run.Lock()
		defer d.run.Unlock()
		if !d.claim(gen) {
			return
		}
		fn()
	}, "debounce")
}

// claim reports whether gen is still the newest schedule and marks it taken.
func (d *Debouncer) claim(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gen != gen {
		return false
	}
	d.timer = nil
	return true
}

// Cancel drops the pending run and reports whether there was one.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	return true
}

// Exclusive cancels the pending run and executes fn immediately, ordered
// after any run already in progress.
func (d *Debouncer) Exclusive(fn func()) {
	d.run.Lock()
	defer d.run.Unlock()
	d.Cancel()
	fn()
}

// Pending reports whether a run is scheduled and has not started.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
