package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/runnerr0/detox/internal/config"
	"github.com/runnerr0/detox/internal/storage"
)

// Execute implements the go-flags Commander interface for PurgeCommand.
func (c *PurgeCommand) Execute(args []string) error {
	if !c.All {
		return fmt.Errorf("purge requires --all flag for safety")
	}
	if !c.Force {
		if err := c.confirm(); err != nil {
			return err
		}
	}
	return withStore(c.globals, func(ctx context.Context, store *storage.SQLiteStore, cfg *config.Config) error {
		return c.executeWithStore(ctx, store, cfg.Tracking.SeedDomains)
	})
}

func (c *PurgeCommand) confirm() error {
	fmt.Println("⚠ WARNING: This will permanently delete ALL detox data.")
	fmt.Println("  - All sites, limits and block settings")
	fmt.Println("  - All daily history")
	fmt.Println()
	fmt.Println("The default site list is restored afterwards. This action cannot be undone.")
	fmt.Println()
	fmt.Print(`Type "PURGE" to confirm: `)

	var in io.Reader = os.Stdin
	if c.in != nil {
		in = c.in
	}
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return fmt.Errorf("aborted: no input received")
	}
	if strings.TrimSpace(scanner.Text()) != "PURGE" {
		return fmt.Errorf("aborted: confirmation text did not match")
	}
	return nil
}

// executeWithStore replaces every site in a provided store with the seed
// list (for testing).
func (c *PurgeCommand) executeWithStore(ctx context.Context, store storage.Store, seed []string) error {
	sites := storage.SeedSites(seed)
	if err := store.ReplaceAll(ctx, sites); err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}
	if err := store.SetConfig(ctx, storage.SeededKey, "true"); err != nil {
		return fmt.Errorf("write seed marker: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]any{
			"purged":  true,
			"sites":   len(sites),
			"message": "all data deleted, defaults restored",
		})
	}

	fmt.Printf("Purged all data. Restored %d default sites.\n", len(sites))
	return nil
}
