package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cdr.dev/slog/v3"
	"github.com/coder/quartz"

	"github.com/runnerr0/detox/internal/storage"
)

// Accrual reasons, used for logging and the accruals_total label.
const (
	ReasonHeartbeat  = "heartbeat"
	ReasonSwitch     = "switch"
	ReasonNavigation = "navigation"
	ReasonFocusLost  = "focus-lost"
	ReasonIdle       = "idle"
	ReasonTabRemoved = "tab-removed"
	ReasonSuspend    = "suspend"
)

// Options configures an Engine.
type Options struct {
	Sites     SiteStore
	KV        KV
	Messenger Messenger
	Clock     quartz.Clock
	Location  *time.Location
	Logger    slog.Logger
	Metrics   *Metrics
}

// Engine owns the tracking session and merges elapsed time into the store.
// At most one batch is applied at a time; intervals cut while a batch is in
// flight are queued and the callers wait for them to land.
type Engine struct {
	sites   SiteStore
	clock   quartz.Clock
	loc     *time.Location
	logger  slog.Logger
	metrics *Metrics

	reset  *DailyReset
	budget *BudgetMonitor

	mu      sync.Mutex
	session *Session
	running bool
	pending []Interval
	done    chan struct{}
}

// NewEngine returns an idle Engine.
func NewEngine(opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}

	e := &Engine{
		sites:   opts.Sites,
		clock:   opts.Clock,
		loc:     opts.Location,
		logger:  opts.Logger.Named("engine"),
		metrics: opts.Metrics,
		session: NewSession(),
	}
	e.reset = NewDailyReset(opts.Sites, opts.KV, opts.Clock, opts.Location, opts.Logger.Named("reset"), opts.Metrics)
	e.budget = NewBudgetMonitor(opts.Sites, opts.Messenger, e.Current, opts.Logger.Named("budget"), opts.Metrics)
	return e
}

// Current returns the tracked tab and domain.
func (e *Engine) Current() (tabID int, domain string, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Current()
}

// Totals returns the in-memory per-registrable-domain time since start.
func (e *Engine) Totals() map[string]time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Totals()
}

// EnsureDailyReset runs the daily reset if it is due.
func (e *Engine) EnsureDailyReset(ctx context.Context) {
	if _, err := e.reset.Ensure(ctx); err != nil {
		e.metrics.Errors.WithLabelValues(errKindReset).Inc()
		e.logger.Error(ctx, "daily reset", slog.Error(err))
	}
}

// Accrue cuts the open interval, if any, and merges it into the store. It
// returns once the interval has been applied or dropped.
func (e *Engine) Accrue(ctx context.Context, reason string) {
	e.mu.Lock()
	if iv, ok := e.session.cut(e.clock.Now(), e.loc); ok {
		iv.Reason = reason
		e.pending = append(e.pending, iv)
	}
	e.drain(ctx)
}

// SwitchTo starts tracking the host of rawURL in tabID. The previous
// domain's interval is flushed first. A URL that is not http(s) stops
// tracking instead.
func (e *Engine) SwitchTo(ctx context.Context, tabID int, rawURL string) {
	host, ok := Hostname(rawURL)
	if !ok {
		e.StopTracking(ctx, ReasonNavigation)
		return
	}

	e.mu.Lock()
	if iv, ok := e.session.switchTo(tabID, host, e.clock.Now(), e.loc); ok {
		iv.Reason = ReasonSwitch
		e.pending = append(e.pending, iv)
	}
	e.drain(ctx)
}

// StopTracking flushes the open interval and clears the session.
func (e *Engine) StopTracking(ctx context.Context, reason string) {
	e.mu.Lock()
	if iv, ok := e.session.clear(e.clock.Now(), e.loc); ok {
		iv.Reason = reason
		e.pending = append(e.pending, iv)
	}
	e.drain(ctx)
}

// drain is entered with e.mu held and returns with it released. The first
// caller applies batches until the queue is empty; later callers wait for
// that run to finish, which includes their own intervals.
func (e *Engine) drain(ctx context.Context) {
	if e.running {
		done := e.done
		e.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
		}
		return
	}

	e.running = true
	e.done = make(chan struct{})
	for {
		batch := coalesce(e.pending)
		e.pending = nil
		e.mu.Unlock()

		e.apply(ctx, batch)

		e.mu.Lock()
		if len(e.pending) == 0 {
			break
		}
	}
	e.running = false
	close(e.done)
	e.mu.Unlock()
}

// apply resets counters if a new day began, then merges each interval into
// its matching site. Failures are logged and the interval is dropped.
func (e *Engine) apply(ctx context.Context, batch []Interval) {
	defer func() {
		if r := recover(); r != nil {
			e.metrics.Errors.WithLabelValues(errKindPanic).Inc()
			e.logger.Critical(ctx, "accrual panicked", slog.F("panic", fmt.Sprint(r)))
		}
	}()

	if _, err := e.reset.Ensure(ctx); err != nil {
		e.metrics.Errors.WithLabelValues(errKindReset).Inc()
		e.logger.Error(ctx, "daily reset before accrual", slog.Error(err))
		return
	}
	if len(batch) == 0 {
		return
	}

	sites, err := e.sites.GetAll(ctx)
	if err != nil {
		e.metrics.Errors.WithLabelValues(errKindRead).Inc()
		e.logger.Error(ctx, "read sites for accrual", slog.Error(err), slog.F("intervals", len(batch)))
		return
	}

	today := e.reset.Today()
	for _, iv := range batch {
		i, ok := MatchSite(sites, iv.Domain)
		if !ok {
			continue
		}
		site := &sites[i]
		if !site.IsTrackingAllowed {
			continue
		}

		if err := e.merge(ctx, site, iv, today); err != nil {
			e.metrics.Errors.WithLabelValues(errKindWrite).Inc()
			e.logger.Error(ctx, "persist accrual",
				slog.F("domain", site.Domain),
				slog.F("seconds", iv.Seconds),
				slog.Error(err),
			)
			continue
		}

		if _, err := e.budget.CheckLimit(ctx, site.ID); err != nil {
			e.metrics.Errors.WithLabelValues(errKindWrite).Inc()
			e.logger.Error(ctx, "check daily limit", slog.F("domain", site.Domain), slog.Error(err))
		}
	}
}

// merge adds the interval to the site's history and, for today's
// intervals, to its daily counter, then persists both.
func (e *Engine) merge(ctx context.Context, site *storage.Site, iv Interval, today string) error {
	next := site.Clone()
	next.AddTime(iv.Date, iv.Seconds)
	if iv.Date == today {
		next.DailyTime = site.DailyTime + iv.Seconds
	}

	patch := storage.SitePatch{DateTracking: next.DateTracking}
	if next.DailyTime != site.DailyTime {
		patch.DailyTime = &next.DailyTime
	}
	if err := e.sites.Update(ctx, site.ID, patch); err != nil {
		return err
	}
	*site = next

	e.metrics.Accruals.WithLabelValues(iv.Reason).Inc()
	e.metrics.AccruedSeconds.WithLabelValues(site.Domain).Add(float64(iv.Seconds))
	e.logger.Debug(ctx, "accrued time",
		slog.F("domain", site.Domain),
		slog.F("host", iv.Domain),
		slog.F("date", iv.Date),
		slog.F("seconds", iv.Seconds),
		slog.F("daily_time", site.DailyTime),
		slog.F("reason", iv.Reason),
	)
	return nil
}
