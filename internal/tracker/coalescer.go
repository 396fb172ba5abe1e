package tracker

import (
	"context"
	"sync"

	"cdr.dev/slog/v3"
)

// Idle states reported by the browser.
const (
	IdleActive = "active"
	IdleIdle   = "idle"
	IdleLocked = "locked"
)

// Coalescer turns raw browser lifecycle signals into engine actions. Tab
// switches and navigations are debounced; losing focus, going idle, closing
// the tracked tab and suspending act immediately and cancel pending work.
type Coalescer struct {
	engine    *Engine
	tabs      TabQuerier
	heartbeat *Heartbeat
	debounce  *Debouncer
	logger    slog.Logger

	mu        sync.Mutex
	scheduled int // tab of the most recent debounced action
	hasSched  bool
}

// NewCoalescer wires lifecycle handling to engine.
func NewCoalescer(engine *Engine, tabs TabQuerier, heartbeat *Heartbeat, debounce *Debouncer, logger slog.Logger) *Coalescer {
	return &Coalescer{
		engine:    engine,
		tabs:      tabs,
		heartbeat: heartbeat,
		debounce:  debounce,
		logger:    logger.Named("coalescer"),
	}
}

// Startup performs the daily reset check, starts the heartbeat and begins
// tracking the focused tab, if any.
func (c *Coalescer) Startup(ctx context.Context) {
	c.engine.EnsureDailyReset(ctx)
	c.heartbeat.Start(ctx)

	tab, ok, err := c.tabs.FocusedTab(ctx)
	if err != nil {
		c.logger.Warn(ctx, "query focused tab", slog.Error(err))
		return
	}
	if !ok {
		return
	}
	c.debounce.Exclusive(func() {
		c.engine.SwitchTo(ctx, tab.ID, tab.URL)
	})
}

// Suspend flushes the open interval and stops the heartbeat.
func (c *Coalescer) Suspend(ctx context.Context) {
	c.stop(ctx, ReasonSuspend)
	c.heartbeat.Stop()
}

// TabActivated handles a tab gaining focus within its window.
func (c *Coalescer) TabActivated(ctx context.Context, tabID int) {
	tab, ok, err := c.tabs.Tab(ctx, tabID)
	if err != nil {
		c.logger.Warn(ctx, "query activated tab", slog.F("tab_id", tabID), slog.Error(err))
		return
	}
	if !ok {
		return
	}
	c.consider(ctx, tab)
}

// TabUpdated handles a tab change. Only a completed load in the active tab
// matters.
func (c *Coalescer) TabUpdated(ctx context.Context, tab Tab) {
	if tab.Status != "complete" || !tab.Active {
		return
	}
	c.consider(ctx, tab)
}

// TabRemoved drops a pending switch to the closed tab and stops tracking
// when the tracked tab closes.
func (c *Coalescer) TabRemoved(ctx context.Context, tabID int) {
	c.mu.Lock()
	pending := c.hasSched && c.scheduled == tabID
	c.mu.Unlock()
	if pending {
		c.debounce.Cancel()
	}

	current, _, ok := c.engine.Current()
	if !ok || current != tabID {
		return
	}
	c.stop(ctx, ReasonTabRemoved)
}

// WindowFocusChanged handles the browser gaining or losing OS focus.
func (c *Coalescer) WindowFocusChanged(ctx context.Context, windowID int, focused bool) {
	if !focused {
		c.stop(ctx, ReasonFocusLost)
		return
	}

	tab, ok, err := c.tabs.ActiveTab(ctx, windowID)
	if err != nil {
		c.logger.Warn(ctx, "query active tab", slog.F("window_id", windowID), slog.Error(err))
		return
	}
	if !ok {
		return
	}
	c.consider(ctx, tab)
}

// IdleStateChanged handles user presence changes.
func (c *Coalescer) IdleStateChanged(ctx context.Context, state string) {
	switch state {
	case IdleIdle, IdleLocked:
		c.stop(ctx, ReasonIdle)
	case IdleActive:
		tab, ok, err := c.tabs.FocusedTab(ctx)
		if err != nil {
			c.logger.Warn(ctx, "query focused tab", slog.Error(err))
			return
		}
		if ok {
			c.consider(ctx, tab)
		}
	default:
		c.logger.Debug(ctx, "ignoring idle state", slog.F("state", state))
	}
}

// consider schedules the debounced action for tab. Tracking may resume after
// a suspend, so the heartbeat is (re)started here too.
func (c *Coalescer) consider(ctx context.Context, tab Tab) {
	c.mu.Lock()
	c.scheduled, c.hasSched = tab.ID, true
	c.mu.Unlock()

	if _, ok := Hostname(tab.URL); !ok {
		c.debounce.Schedule(func() {
			c.engine.StopTracking(ctx, ReasonNavigation)
		})
		return
	}
	if c.heartbeat.Start(ctx) {
		c.logger.Debug(ctx, "heartbeat restarted")
	}
	c.debounce.Schedule(func() {
		c.engine.SwitchTo(ctx, tab.ID, tab.URL)
	})
}

func (c *Coalescer) stop(ctx context.Context, reason string) {
	c.debounce.Exclusive(func() {
		c.engine.StopTracking(ctx, reason)
	})
}
