package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/detox/internal/config"
	"github.com/runnerr0/detox/internal/storage"
)

type pruneJSON struct {
	Cutoff  string `json:"cutoff"`
	Entries int    `json:"entries"`
	Sites   int    `json:"sites"`
	DryRun  bool   `json:"dry_run"`
}

// Execute implements the go-flags Commander interface for PruneCommand.
func (c *PruneCommand) Execute(args []string) error {
	if c.OlderThan == "" {
		return fmt.Errorf("--older-than is required for prune command")
	}
	if _, err := parseDuration(c.OlderThan); err != nil {
		return err
	}
	return withStore(c.globals, func(ctx context.Context, store *storage.SQLiteStore, cfg *config.Config) error {
		return c.executeWithStore(ctx, store, today(cfg))
	})
}

// executeWithStore prunes a provided store relative to date (for testing).
func (c *PruneCommand) executeWithStore(ctx context.Context, store storage.Store, date string) error {
	age, err := parseDuration(c.OlderThan)
	if err != nil {
		return err
	}
	now, err := time.Parse(storage.DateLayout, date)
	if err != nil {
		return fmt.Errorf("parse date: %w", err)
	}
	cutoff := now.Add(-age).Format(storage.DateLayout)

	sites, err := store.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("read sites: %w", err)
	}

	out := pruneJSON{Cutoff: cutoff, DryRun: c.DryRun}
	for _, site := range sites {
		kept := make([]storage.DateEntry, 0, len(site.DateTracking))
		for _, e := range site.DateTracking {
			if e.Date >= cutoff {
				kept = append(kept, e)
			}
		}
		dropped := len(site.DateTracking) - len(kept)
		if dropped == 0 {
			continue
		}
		out.Entries += dropped
		out.Sites++
		if c.DryRun {
			continue
		}
		if err := store.Update(ctx, site.ID, storage.SitePatch{DateTracking: kept}); err != nil {
			return fmt.Errorf("prune %s: %w", site.Domain, err)
		}
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(out)
	}
	verb := "Pruned"
	if c.DryRun {
		verb = "Would prune"
	}
	fmt.Printf("%s %d history entries before %s from %d sites.\n", verb, out.Entries, cutoff, out.Sites)
	return nil
}
