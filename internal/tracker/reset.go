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

// DailyReset zeroes every site's daily counter once per calendar day,
// recording the day under LastResetKey. History is left untouched.
type DailyReset struct {
	sites   SiteStore
	kv      KV
	clock   quartz.Clock
	loc     *time.Location
	logger  slog.Logger
	metrics *Metrics

	mu   sync.Mutex
	last string
}

// NewDailyReset returns a DailyReset keyed to days in loc.
func NewDailyReset(sites SiteStore, kv KV, clock quartz.Clock, loc *time.Location, logger slog.Logger, metrics *Metrics) *DailyReset {
	if loc == nil {
		loc = time.Local
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &DailyReset{
		sites:   sites,
		kv:      kv,
		clock:   clock,
		loc:     loc,
		logger:  logger,
		metrics: metrics,
	}
}

// Today returns the current calendar date as YYYY-MM-DD.
func (r *DailyReset) Today() string {
	return r.clock.Now().In(r.loc).Format(storage.DateLayout)
}

// Ensure performs the reset if it has not happened today and reports
// whether it did. On error the marker is not written, so the next call
// tries again.
func (r *DailyReset) Ensure(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	today := r.Today()
	if r.last == today {
		return false, nil
	}

	marker, ok, err := r.kv.GetConfig(ctx, LastResetKey)
	if err != nil {
		return false, fmt.Errorf("read reset marker: %w", err)
	}
	if ok && marker == today {
		r.last = today
		return false, nil
	}

	sites, err := r.sites.GetAll(ctx)
	if err != nil {
		return false, fmt.Errorf("read sites: %w", err)
	}
	var zero int64
	for _, site := range sites {
		if site.DailyTime == 0 {
			continue
		}
		if err := r.sites.Update(ctx, site.ID, storage.SitePatch{DailyTime: &zero}); err != nil {
			return false, fmt.Errorf("reset %s: %w", site.Domain, err)
		}
	}

	if err := r.kv.SetConfig(ctx, LastResetKey, today); err != nil {
		return false, fmt.Errorf("write reset marker: %w", err)
	}
	r.last = today
	r.metrics.DailyResets.Inc()
	r.logger.Info(ctx, "daily counters reset",
		slog.F("date", today),
		slog.F("previous", marker),
		slog.F("sites", len(sites)),
	)
	return true, nil
}
