package storage

import "database/sql"

// migrateV001 creates the initial schema: sites, their per-date history and
// the key/value config table. Every statement uses IF NOT EXISTS for
// idempotency.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		// ── Tables ──────────────────────────────────────────────

		`CREATE TABLE IF NOT EXISTS sites (
			id                  TEXT PRIMARY KEY,
			position            INTEGER NOT NULL DEFAULT 0,
			domain              TEXT NOT NULL UNIQUE,
			is_tracking_allowed BOOLEAN NOT NULL DEFAULT 1,
			is_blocked          BOOLEAN NOT NULL DEFAULT 0,
			daily_time          INTEGER NOT NULL DEFAULT 0 CHECK (daily_time >= 0),
			daily_limit         INTEGER CHECK (daily_limit IS NULL OR daily_limit > 0),
			created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS date_tracking (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			site_id    TEXT NOT NULL REFERENCES sites(id) ON DELETE CASCADE,
			date       TEXT NOT NULL,
			time_spent INTEGER NOT NULL DEFAULT 0 CHECK (time_spent >= 0),
			UNIQUE(site_id, date)
		)`,

		`CREATE TABLE IF NOT EXISTS config (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// ── Indexes ────────────────────────────────────────────

		`CREATE INDEX IF NOT EXISTS idx_sites_position      ON sites(position)`,
		`CREATE INDEX IF NOT EXISTS idx_date_tracking_site  ON date_tracking(site_id, id)`,
		`CREATE INDEX IF NOT EXISTS idx_date_tracking_date  ON date_tracking(date)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
