package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/runnerr0/detox/internal/config"
	"github.com/runnerr0/detox/internal/storage"
)

// loadConfig loads --config, or the default config file, writing defaults
// when it does not exist yet.
func loadConfig(globals *GlobalFlags) (*config.Config, error) {
	if globals != nil && globals.Config != "" {
		path, err := config.ExpandPath(globals.Config)
		if err != nil {
			return nil, err
		}
		return config.LoadOrCreateAt(path)
	}
	return config.LoadOrCreate()
}

// openStore opens the configured database, runs migrations, and returns a
// ready-to-use store and the underlying *sql.DB.
func openStore(cfg *config.Config) (*storage.SQLiteStore, *sql.DB, error) {
	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return nil, nil, fmt.Errorf("resolve database path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	runner := storage.NewMigrationRunner(db)
	if err := runner.Run(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	store, err := storage.NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("create store: %w", err)
	}

	return store, db, nil
}

// withStore loads config, opens the store, seeds it on first use and runs
// fn against it.
func withStore(globals *GlobalFlags, fn func(ctx context.Context, store *storage.SQLiteStore, cfg *config.Config) error) error {
	cfg, err := loadConfig(globals)
	if err != nil {
		return err
	}
	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	ctx := context.Background()
	if _, err := storage.Seed(ctx, store, cfg.Tracking.SeedDomains); err != nil {
		return err
	}
	return fn(ctx, store, cfg)
}

// today returns the current date in the configured time zone.
func today(cfg *config.Config) string {
	loc, err := cfg.Tracking.Location()
	if err != nil {
		loc = time.Local
	}
	return time.Now().In(loc).Format(storage.DateLayout)
}

// findSite returns the site configured for domain.
func findSite(ctx context.Context, store storage.Store, domain string) (storage.Site, error) {
	if domain == "" {
		return storage.Site{}, fmt.Errorf("--domain is required")
	}
	want := storage.NormalizeDomain(domain)

	sites, err := store.GetAll(ctx)
	if err != nil {
		return storage.Site{}, fmt.Errorf("read sites: %w", err)
	}
	for _, s := range sites {
		if s.Domain == want {
			return s, nil
		}
	}
	return storage.Site{}, fmt.Errorf("%w: %s", storage.ErrSiteNotFound, want)
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseDuration parses a human-friendly duration string like "30d", "7d", "24h", "2w".
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("invalid duration: empty string")
	}

	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]

	n, err := strconv.Atoi(numStr)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	switch suffix {
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("invalid duration: %q (use d, h, or w suffix)", s)
	}
}

// formatTime renders seconds as "Xh Ym", with a leading "Zd" past a day.
func formatTime(seconds int64) string {
	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// formatLimit renders a daily limit in minutes.
func formatLimit(limit *int) string {
	if limit == nil {
		return "-"
	}
	return formatTime(int64(*limit) * 60)
}

// containsFold reports whether s contains substr, ignoring case.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
