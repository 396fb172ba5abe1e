package tracker

import (
	"context"
	"fmt"

	"cdr.dev/slog/v3"

	"github.com/runnerr0/detox/internal/storage"
)

// BudgetMonitor blocks a site once its daily time reaches its limit and
// tells the tab currently showing it.
type BudgetMonitor struct {
	sites     SiteStore
	messenger Messenger
	current   func() (tabID int, domain string, ok bool)
	logger    slog.Logger
	metrics   *Metrics
}

// NewBudgetMonitor returns a BudgetMonitor. current reports the tab and
// domain being tracked right now; messenger may be nil.
func NewBudgetMonitor(sites SiteStore, messenger Messenger, current func() (int, string, bool), logger slog.Logger, metrics *Metrics) *BudgetMonitor {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &BudgetMonitor{
		sites:     sites,
		messenger: messenger,
		current:   current,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckLimit re-reads the site and, when it has a limit that dailyTime has
// reached, persists isBlocked and notifies the current tab. It reports
// whether the site is over its limit. Delivery failures are logged only.
func (b *BudgetMonitor) CheckLimit(ctx context.Context, siteID string) (bool, error) {
	sites, err := b.sites.GetAll(ctx)
	if err != nil {
		return false, fmt.Errorf("read sites: %w", err)
	}

	var site *storage.Site
	for i := range sites {
		if sites[i].ID == siteID {
			site = &sites[i]
			break
		}
	}
	if site == nil {
		return false, storage.ErrSiteNotFound
	}
	if !site.OverLimit() {
		return false, nil
	}

	if !site.IsBlocked {
		blocked := true
		if err := b.sites.Update(ctx, site.ID, storage.SitePatch{IsBlocked: &blocked}); err != nil {
			return true, fmt.Errorf("block %s: %w", site.Domain, err)
		}
		b.metrics.Blocks.Inc()
		b.logger.Info(ctx, "daily limit reached",
			slog.F("domain", site.Domain),
			slog.F("daily_time", site.DailyTime),
			slog.F("daily_limit_minutes", *site.DailyLimit),
		)
	}

	b.notify(ctx, site.Domain)
	return true, nil
}

func (b *BudgetMonitor) notify(ctx context.Context, domain string) {
	if b.messenger == nil || b.current == nil {
		return
	}
	tabID, host, ok := b.current()
	if !ok || !DomainMatches(host, domain) {
		return
	}
	if err := b.messenger.SendBlock(ctx, tabID); err != nil {
		b.metrics.Errors.WithLabelValues(errKindDeliver).Inc()
		b.logger.Warn(ctx, "deliver block message",
			slog.F("tab_id", tabID),
			slog.F("domain", domain),
			slog.Error(err),
		)
	}
}
