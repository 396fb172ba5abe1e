package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/runnerr0/detox/internal/config"
	"github.com/runnerr0/detox/internal/storage"
)

// Execute implements the go-flags Commander interface for TrackCommand.
func (c *TrackCommand) Execute(args []string) error {
	if c.Domain == "" {
		return fmt.Errorf("--domain is required for track command")
	}
	if err := c.validate(); err != nil {
		return err
	}
	return withStore(c.globals, func(ctx context.Context, store *storage.SQLiteStore, _ *config.Config) error {
		return c.executeWithStore(ctx, store)
	})
}

func (c *TrackCommand) validate() error {
	n := 0
	for _, set := range []bool{c.Add, c.Enable, c.Disable} {
		if set {
			n++
		}
	}
	if n != 1 {
		return fmt.Errorf("exactly one of --add, --enable or --disable is required")
	}
	return nil
}

// executeWithStore applies the change to a provided store (for testing).
func (c *TrackCommand) executeWithStore(ctx context.Context, store storage.Store) error {
	if err := c.validate(); err != nil {
		return err
	}
	if c.Add {
		return c.add(ctx, store)
	}

	site, err := findSite(ctx, store, c.Domain)
	if err != nil {
		return err
	}
	allowed := c.Enable
	if err := store.Update(ctx, site.ID, storage.SitePatch{IsTrackingAllowed: &allowed}); err != nil {
		return fmt.Errorf("update %s: %w", site.Domain, err)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]any{"domain": site.Domain, "is_tracking_allowed": allowed})
	}
	if allowed {
		fmt.Printf("Tracking %s.\n", site.Domain)
	} else {
		fmt.Printf("Stopped tracking %s.\n", site.Domain)
	}
	return nil
}

func (c *TrackCommand) add(ctx context.Context, store storage.Store) error {
	site := storage.NewSite(c.Domain)
	if site.Domain == "" {
		return fmt.Errorf("invalid domain: %q", c.Domain)
	}

	if _, err := findSite(ctx, store, site.Domain); err == nil {
		return fmt.Errorf("site %s already exists", site.Domain)
	} else if !errors.Is(err, storage.ErrSiteNotFound) {
		return err
	}

	sites, err := store.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("read sites: %w", err)
	}
	if err := store.ReplaceAll(ctx, append(sites, site)); err != nil {
		return fmt.Errorf("add %s: %w", site.Domain, err)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]any{"id": site.ID, "domain": site.Domain})
	}
	fmt.Printf("Added %s.\n", site.Domain)
	return nil
}
