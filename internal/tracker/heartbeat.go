package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/coder/quartz"
)

// DefaultHeartbeat is how often an open interval is forcibly flushed.
const DefaultHeartbeat = 30 * time.Second

// Heartbeat periodically calls a tick function. At most one ticker runs.
type Heartbeat struct {
	clock  quartz.Clock
	period time.Duration
	tick   func(ctx context.Context)

	mu     sync.Mutex
	cancel context.CancelFunc
	waiter quartz.Waiter
}

// NewHeartbeat returns a stopped Heartbeat.
func NewHeartbeat(clock quartz.Clock, period time.Duration, tick func(ctx context.Context)) *Heartbeat {
	if period <= 0 {
		period = DefaultHeartbeat
	}
	return &Heartbeat{clock: clock, period: period, tick: tick}
}

// Start begins ticking until Stop or ctx is done. It returns false when the
// heartbeat was already running.
func (h *Heartbeat) Start(ctx context.Context) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.waiter = h.clock.TickerFunc(ctx, h.period, func() error {
		h.tick(ctx)
		return nil
	}, "heartbeat")
	return true
}

// Stop cancels the ticker and waits for an in-flight tick to return.
func (h *Heartbeat) Stop() {
	h.mu.Lock()
	cancel, waiter := h.cancel, h.waiter
	h.cancel, h.waiter = nil, nil
	h.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	_ = waiter.Wait()
}

// Running reports whether the ticker is active.
func (h *Heartbeat) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancel != nil
}
