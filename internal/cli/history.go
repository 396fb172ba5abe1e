package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/detox/internal/config"
	"github.com/runnerr0/detox/internal/storage"
)

type historyJSON struct {
	Domain    string              `json:"domain"`
	DailyTime int64               `json:"daily_time"`
	History   []storage.DateEntry `json:"history"`
}

// Execute implements the go-flags Commander interface for HistoryCommand.
func (c *HistoryCommand) Execute(args []string) error {
	if c.Domain == "" {
		return fmt.Errorf("--domain is required for history command")
	}
	return withStore(c.globals, func(ctx context.Context, store *storage.SQLiteStore, _ *config.Config) error {
		return c.executeWithStore(ctx, store)
	})
}

// executeWithStore prints history from a provided store (for testing).
func (c *HistoryCommand) executeWithStore(ctx context.Context, store storage.Store) error {
	site, err := findSite(ctx, store, c.Domain)
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(historyJSON{Domain: site.Domain, DailyTime: site.DailyTime, History: site.DateTracking})
	}

	fmt.Printf("%s (limit %s)\n", site.Domain, formatLimit(site.DailyLimit))
	if len(site.DateTracking) == 0 {
		fmt.Println("  no history yet")
		return nil
	}

	var total int64
	for i := len(site.DateTracking) - 1; i >= 0; i-- {
		e := site.DateTracking[i]
		total += e.TimeSpent
		fmt.Printf("  %s  %s\n", e.Date, formatTime(e.TimeSpent))
	}
	fmt.Printf("  %-10s  %s over %d days\n", "total", formatTime(total), len(site.DateTracking))
	return nil
}
