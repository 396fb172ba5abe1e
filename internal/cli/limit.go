package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/detox/internal/config"
	"github.com/runnerr0/detox/internal/storage"
)

// Execute implements the go-flags Commander interface for LimitCommand.
func (c *LimitCommand) Execute(args []string) error {
	if c.Domain == "" {
		return fmt.Errorf("--domain is required for limit command")
	}
	if err := c.validate(); err != nil {
		return err
	}
	return withStore(c.globals, func(ctx context.Context, store *storage.SQLiteStore, _ *config.Config) error {
		return c.executeWithStore(ctx, store)
	})
}

func (c *LimitCommand) validate() error {
	switch {
	case c.Clear && c.Minutes != 0:
		return fmt.Errorf("--minutes and --clear are mutually exclusive")
	case !c.Clear && c.Minutes <= 0:
		return fmt.Errorf("--minutes must be a positive number of minutes (or use --clear)")
	}
	return nil
}

// executeWithStore updates the limit in a provided store (for testing).
func (c *LimitCommand) executeWithStore(ctx context.Context, store storage.Store) error {
	if err := c.validate(); err != nil {
		return err
	}
	site, err := findSite(ctx, store, c.Domain)
	if err != nil {
		return err
	}

	var limit *int
	if !c.Clear {
		minutes := c.Minutes
		limit = &minutes
	}
	if err := store.Update(ctx, site.ID, storage.SitePatch{DailyLimit: &limit}); err != nil {
		return fmt.Errorf("update %s: %w", site.Domain, err)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]any{"domain": site.Domain, "daily_limit": limit})
	}
	if limit == nil {
		fmt.Printf("Removed the daily limit for %s.\n", site.Domain)
		return nil
	}
	fmt.Printf("Daily limit for %s set to %s (used today: %s).\n", site.Domain, formatLimit(limit), formatTime(site.DailyTime))
	return nil
}
