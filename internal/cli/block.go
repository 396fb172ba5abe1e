package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/detox/internal/config"
	"github.com/runnerr0/detox/internal/storage"
)

// Execute implements the go-flags Commander interface for BlockCommand.
func (c *BlockCommand) Execute(args []string) error {
	if c.Domain == "" {
		return fmt.Errorf("--domain is required for block command")
	}
	return withStore(c.globals, func(ctx context.Context, store *storage.SQLiteStore, _ *config.Config) error {
		return c.executeWithStore(ctx, store)
	})
}

// executeWithStore toggles the block flag in a provided store (for testing).
func (c *BlockCommand) executeWithStore(ctx context.Context, store storage.Store) error {
	site, err := findSite(ctx, store, c.Domain)
	if err != nil {
		return err
	}

	blocked := !c.Off
	if err := store.Update(ctx, site.ID, storage.SitePatch{IsBlocked: &blocked}); err != nil {
		return fmt.Errorf("update %s: %w", site.Domain, err)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]any{"domain": site.Domain, "is_blocked": blocked})
	}
	if blocked {
		fmt.Printf("Blocked %s.\n", site.Domain)
	} else {
		fmt.Printf("Unblocked %s.\n", site.Domain)
		if site.OverLimit() {
			fmt.Println("  Note: the daily limit is already reached; it will block again on the next visit.")
		}
	}
	return nil
}
