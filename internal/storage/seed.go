package storage

import (
	"context"
	"fmt"
)

// SeededKey marks that the default site list has been written once.
const SeededKey = "seeded"

// SeedSites returns a fresh site for each domain, normalized and
// deduplicated, in order.
func SeedSites(domains []string) []Site {
	seen := make(map[string]bool, len(domains))
	sites := make([]Site, 0, len(domains))
	for _, d := range domains {
		d = NormalizeDomain(d)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		sites = append(sites, NewSite(d))
	}
	return sites
}

// Seed writes the default site list on first use and reports whether it
// did. A store that already holds sites is only marked, never overwritten.
func Seed(ctx context.Context, store Store, domains []string) (bool, error) {
	if _, ok, err := store.GetConfig(ctx, SeededKey); err != nil {
		return false, fmt.Errorf("read seed marker: %w", err)
	} else if ok {
		return false, nil
	}

	existing, err := store.GetAll(ctx)
	if err != nil {
		return false, fmt.Errorf("read sites: %w", err)
	}
	seeded := false
	if len(existing) == 0 {
		if err := store.ReplaceAll(ctx, SeedSites(domains)); err != nil {
			return false, fmt.Errorf("seed sites: %w", err)
		}
		seeded = true
	}

	if err := store.SetConfig(ctx, SeededKey, "true"); err != nil {
		return false, fmt.Errorf("write seed marker: %w", err)
	}
	return seeded, nil
}
