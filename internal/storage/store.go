package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store defines the persistence operations detox needs.
type Store interface {
	GetAll(ctx context.Context) ([]Site, error)
	GetSite(ctx context.Context, id string) (Site, error)
	ReplaceAll(ctx context.Context, sites []Site) error
	Update(ctx context.Context, id string, patch SitePatch) error
	GetConfig(ctx context.Context, key string) (string, bool, error)
	SetConfig(ctx context.Context, key, value string) error
	Subscribe() (<-chan []Site, func())
	GetStats(ctx context.Context, today string) (*Stats, error)
	Close() error
}

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	feed *feed

	// Prepared statements
	getSite   *sql.Stmt
	getConfig *sql.Stmt
	setConfig *sql.Stmt
}

// NewSQLiteStore creates a new SQLiteStore from an already-opened and migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db, feed: newFeed()}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.getSite, err = s.db.Prepare(`
		SELECT id, domain, is_tracking_allowed, is_blocked, daily_time, daily_limit
		FROM sites WHERE id = ?
	`)
	if err != nil {
		return err
	}

	s.getConfig, err = s.db.Prepare(`SELECT value FROM config WHERE key = ?`)
	if err != nil {
		return err
	}

	s.setConfig, err = s.db.Prepare(`
		INSERT INTO config (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`)
	if err != nil {
		return err
	}

	return nil
}

// NewSite returns a tracking-allowed, unlimited site with a fresh id.
func NewSite(domain string) Site {
	return Site{
		ID:                uuid.NewString(),
		Domain:            NormalizeDomain(domain),
		IsTrackingAllowed: true,
		DateTracking:      []DateEntry{},
	}
}

// NormalizeDomain lowercases a configured domain and strips a scheme, path
// and leading "www." so it can be matched against hostnames.
func NormalizeDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	d = strings.TrimPrefix(d, "www.")
	return strings.TrimSuffix(d, ".")
}

// GetAll returns every site in store order with its history attached.
func (s *SQLiteStore) GetAll(ctx context.Context) ([]Site, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, domain, is_tracking_allowed, is_blocked, daily_time, daily_limit
		FROM sites ORDER BY position, created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query sites: %w", err)
	}
	defer rows.Close()

	var sites []Site
	index := make(map[string]int)
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		index[site.ID] = len(sites)
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	hist, err := s.db.QueryContext(ctx,
		"SELECT site_id, date, time_spent FROM date_tracking ORDER BY site_id, id",
	)
	if err != nil {
		return nil, fmt.Errorf("query date tracking: %w", err)
	}
	defer hist.Close()

	for hist.Next() {
		var siteID string
		var e DateEntry
		if err := hist.Scan(&siteID, &e.Date, &e.TimeSpent); err != nil {
			return nil, fmt.Errorf("scan date tracking: %w", err)
		}
		if i, ok := index[siteID]; ok {
			sites[i].DateTracking = append(sites[i].DateTracking, e)
		}
	}
	if err := hist.Err(); err != nil {
		return nil, err
	}

	// Return empty slice rather than nil
	if sites == nil {
		sites = []Site{}
	}
	return sites, nil
}

// GetSite retrieves a single site by id.
func (s *SQLiteStore) GetSite(ctx context.Context, id string) (Site, error) {
	site, err := scanSite(s.getSite.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Site{}, fmt.Errorf("site %s: %w", id, ErrSiteNotFound)
		}
		return Site{}, fmt.Errorf("get site: %w", err)
	}

	site.DateTracking, err = loadHistory(ctx, s.db, id)
	if err != nil {
		return Site{}, err
	}
	return site, nil
}

// ReplaceAll swaps the whole site list for sites, preserving their order.
func (s *SQLiteStore) ReplaceAll(ctx context.Context, sites []Site) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, stmt := range []string{"DELETE FROM date_tracking", "DELETE FROM sites"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear sites (%s): %w", stmt, err)
		}
	}

	for i, site := range sites {
		if site.ID == "" {
			site.ID = uuid.NewString()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sites (id, position, domain, is_tracking_allowed, is_blocked, daily_time, daily_limit)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			site.ID, i, NormalizeDomain(site.Domain), site.IsTrackingAllowed, site.IsBlocked,
			site.DailyTime, nullableLimit(site.DailyLimit),
		)
		if err != nil {
			return fmt.Errorf("insert site %s: %w", site.Domain, err)
		}
		if err := writeHistory(ctx, tx, site.ID, site.DateTracking); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.notify(ctx)
	return nil
}

// Update merges patch into the site with the given id. Only non-nil fields
// are written.
func (s *SQLiteStore) Update(ctx context.Context, id string, patch SitePatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var clauses []string
	var args []interface{}

	if patch.Domain != nil {
		clauses = append(clauses, "domain = ?")
		args = append(args, NormalizeDomain(*patch.Domain))
	}
	if patch.IsTrackingAllowed != nil {
		clauses = append(clauses, "is_tracking_allowed = ?")
		args = append(args, *patch.IsTrackingAllowed)
	}
	if patch.IsBlocked != nil {
		clauses = append(clauses, "is_blocked = ?")
		args = append(args, *patch.IsBlocked)
	}
	if patch.DailyTime != nil {
		clauses = append(clauses, "daily_time = ?")
		args = append(args, *patch.DailyTime)
	}
	if patch.DailyLimit != nil {
		clauses = append(clauses, "daily_limit = ?")
		args = append(args, nullableLimit(*patch.DailyLimit))
	}
	clauses = append(clauses, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	res, err := tx.ExecContext(ctx,
		"UPDATE sites SET "+strings.Join(clauses, ", ")+" WHERE id = ?", args...,
	)
	if err != nil {
		return fmt.Errorf("update site: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("site %s: %w", id, ErrSiteNotFound)
	}

	if patch.DateTracking != nil {
		if _, err := tx.ExecContext(ctx, "DELETE FROM date_tracking WHERE site_id = ?", id); err != nil {
			return fmt.Errorf("clear date tracking: %w", err)
		}
		if err := writeHistory(ctx, tx, id, patch.DateTracking); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.notify(ctx)
	return nil
}

// GetConfig reads a scalar from the config table.
func (s *SQLiteStore) GetConfig(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.getConfig.QueryRowContext(ctx, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get config %s: %w", key, err)
	}
	return value, true, nil
}

// SetConfig writes a scalar to the config table.
func (s *SQLiteStore) SetConfig(ctx context.Context, key, value string) error {
	if _, err := s.setConfig.ExecContext(ctx, key, value); err != nil {
		return fmt.Errorf("set config %s: %w", key, err)
	}
	return nil
}

// Subscribe returns a channel that receives the full site list after every
// write, plus a function that ends the subscription. Slow readers only see
// the latest list.
func (s *SQLiteStore) Subscribe() (<-chan []Site, func()) {
	return s.feed.subscribe()
}

// notify publishes the current site list to subscribers, if any.
func (s *SQLiteStore) notify(ctx context.Context) {
	if !s.feed.active() {
		return
	}
	sites, err := s.GetAll(ctx)
	if err != nil {
		return
	}
	s.feed.publish(sites)
}

// GetStats returns aggregate statistics about the database.
func (s *SQLiteStore) GetStats(ctx context.Context, today string) (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(is_blocked), 0) FROM sites",
	).Scan(&stats.TotalSites, &stats.BlockedSites)
	if err != nil {
		return nil, fmt.Errorf("count sites: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(time_spent), 0) FROM date_tracking WHERE date = ?", today,
	).Scan(&stats.TodaySeconds)
	if err != nil {
		return nil, fmt.Errorf("sum today: %w", err)
	}

	var oldest, newest sql.NullString
	err = s.db.QueryRowContext(ctx, "SELECT MIN(date), MAX(date) FROM date_tracking").Scan(&oldest, &newest)
	if err != nil {
		return nil, fmt.Errorf("history range: %w", err)
	}
	if oldest.Valid {
		stats.OldestDate, _ = time.Parse(DateLayout, oldest.String)
	}
	if newest.Valid {
		stats.NewestDate, _ = time.Parse(DateLayout, newest.String)
	}

	return stats, nil
}

// Close releases all prepared statements and subscriptions. The underlying
// *sql.DB is NOT closed; that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.getSite, s.getConfig, s.setConfig} {
		if stmt != nil {
			stmt.Close()
		}
	}
	s.feed.close()
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSite(row rowScanner) (Site, error) {
	var site Site
	var limit sql.NullInt64
	if err := row.Scan(
		&site.ID, &site.Domain, &site.IsTrackingAllowed, &site.IsBlocked,
		&site.DailyTime, &limit,
	); err != nil {
		return Site{}, err
	}
	if limit.Valid {
		l := int(limit.Int64)
		site.DailyLimit = &l
	}
	site.DateTracking = []DateEntry{}
	return site, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func loadHistory(ctx context.Context, q querier, siteID string) ([]DateEntry, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT date, time_spent FROM date_tracking WHERE site_id = ? ORDER BY id", siteID,
	)
	if err != nil {
		return nil, fmt.Errorf("query date tracking: %w", err)
	}
	defer rows.Close()

	entries := []DateEntry{}
	for rows.Next() {
		var e DateEntry
		if err := rows.Scan(&e.Date, &e.TimeSpent); err != nil {
			return nil, fmt.Errorf("scan date tracking: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// writeHistory inserts entries in order, keeping only the newest
// MaxDateEntries.
func writeHistory(ctx context.Context, tx *sql.Tx, siteID string, entries []DateEntry) error {
	if over := len(entries) - MaxDateEntries; over > 0 {
		entries = entries[over:]
	}
	for _, e := range entries {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO date_tracking (site_id, date, time_spent) VALUES (?, ?, ?)",
			siteID, e.Date, e.TimeSpent,
		)
		if err != nil {
			return fmt.Errorf("insert date tracking %s: %w", e.Date, err)
		}
	}
	return nil
}

func nullableLimit(limit *int) interface{} {
	if limit == nil {
		return nil
	}
	return *limit
}
