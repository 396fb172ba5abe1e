package cli

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/runnerr0/detox/internal/config"
	"github.com/runnerr0/detox/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version      string           `json:"version"`
	Date         string           `json:"date"`
	TotalSites   int64            `json:"total_sites"`
	BlockedSites int64            `json:"blocked_sites"`
	TodaySeconds int64            `json:"today_seconds"`
	Sites        []siteStatusJSON `json:"sites"`
}

type siteStatusJSON struct {
	Domain            string `json:"domain"`
	DailyTime         int64  `json:"daily_time"`
	DailyLimit        *int   `json:"daily_limit,omitempty"`
	IsBlocked         bool   `json:"is_blocked"`
	IsTrackingAllowed bool   `json:"is_tracking_allowed"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	return withStore(c.globals, func(ctx context.Context, store *storage.SQLiteStore, cfg *config.Config) error {
		return c.executeWithStore(ctx, store, today(cfg))
	})
}

// executeWithStore runs status against a provided store (for testing).
func (c *StatusCommand) executeWithStore(ctx context.Context, store storage.Store, date string) error {
	stats, err := store.GetStats(ctx, date)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	sites, err := store.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("read sites: %w", err)
	}
	sites = filterSites(sites, c.Search)
	if err := sortSites(sites, c.Sort); err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return c.printStatusJSON(stats, sites, date)
	}
	return c.printStatusHuman(stats, sites, date)
}

// filterSites keeps sites whose domain contains search, case-insensitively.
func filterSites(sites []storage.Site, search string) []storage.Site {
	if search == "" {
		return sites
	}
	out := sites[:0:0]
	for _, s := range sites {
		if containsFold(s.Domain, search) {
			out = append(out, s)
		}
	}
	return out
}

// sortSites orders sites in place. Ties keep store order.
func sortSites(sites []storage.Site, order string) error {
	var compare func(a, b storage.Site) int
	switch order {
	case "", "time":
		compare = func(a, b storage.Site) int { return cmp.Compare(b.DailyTime, a.DailyTime) }
	case "time-reverse":
		compare = func(a, b storage.Site) int { return cmp.Compare(a.DailyTime, b.DailyTime) }
	case "alpha":
		compare = func(a, b storage.Site) int { return strings.Compare(a.Domain, b.Domain) }
	case "alpha-reverse":
		compare = func(a, b storage.Site) int { return strings.Compare(b.Domain, a.Domain) }
	default:
		return fmt.Errorf("unknown sort order %q", order)
	}
	slices.SortStableFunc(sites, compare)
	return nil
}

func (c *StatusCommand) printStatusHuman(stats *storage.Stats, sites []storage.Site, date string) error {
	fmt.Println("Detox Status")
	fmt.Println("============")
	fmt.Printf("Version:  %s\n", c.version)
	fmt.Printf("Date:     %s\n", date)
	fmt.Printf("Sites:    %d (%d blocked)\n", stats.TotalSites, stats.BlockedSites)
	fmt.Printf("Today:    %s\n", formatTime(stats.TodaySeconds))

	if len(sites) == 0 {
		fmt.Println()
		if c.Search != "" {
			fmt.Printf("No sites match %q.\n", c.Search)
		} else {
			fmt.Println("No sites configured.")
		}
		return nil
	}

	fmt.Println()
	fmt.Printf("  %-24s %-12s %-12s %s\n", "DOMAIN", "TODAY", "LIMIT", "STATE")
	for _, s := range sites {
		fmt.Printf("  %-24s %-12s %-12s %s\n", s.Domain, formatTime(s.DailyTime), formatLimit(s.DailyLimit), siteState(s))
	}
	return nil
}

func (c *StatusCommand) printStatusJSON(stats *storage.Stats, sites []storage.Site, date string) error {
	out := statusJSON{
		Version:      c.version,
		Date:         date,
		TotalSites:   stats.TotalSites,
		BlockedSites: stats.BlockedSites,
		TodaySeconds: stats.TodaySeconds,
		Sites:        make([]siteStatusJSON, len(sites)),
	}
	for i, s := range sites {
		out.Sites[i] = siteStatusJSON{
			Domain:            s.Domain,
			DailyTime:         s.DailyTime,
			DailyLimit:        s.DailyLimit,
			IsBlocked:         s.IsBlocked,
			IsTrackingAllowed: s.IsTrackingAllowed,
		}
	}
	return printJSON(out)
}

func siteState(s storage.Site) string {
	switch {
	case s.IsBlocked:
		return "blocked"
	case !s.IsTrackingAllowed:
		return "not tracked"
	default:
		return "tracking"
	}
}
