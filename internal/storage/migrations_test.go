package storage

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	// Every pooled connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrationRunner_FreshDB(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)

	err := runner.Run()
	require.NoError(t, err)

	expectedTables := []string{
		"sites",
		"date_tracking",
		"config",
		"schema_migrations",
	}
	for _, table := range expectedTables {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrationRunner_IndexesCreated(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, NewMigrationRunner(db).Run())

	for _, idx := range []string{"idx_sites_position", "idx_date_tracking_site", "idx_date_tracking_date"} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='index' AND name=?", idx,
		).Scan(&name)
		require.NoError(t, err, "index %s should exist", idx)
	}
}

func TestMigrationRunner_Idempotent(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)

	require.NoError(t, runner.Run())
	require.NoError(t, runner.Run())

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "should have exactly 1 migration recorded after double-run")

	v, err := runner.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestMigrationRunner_VersionOnFreshDB(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(`CREATE TABLE schema_migrations (version INTEGER PRIMARY KEY, name TEXT NOT NULL, applied_at DATETIME)`)
	require.NoError(t, err)

	v, err := NewMigrationRunner(db).Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, v)
}

func TestMigrationRunner_ForeignKeyEnforcement(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, NewMigrationRunner(db).Run())

	_, err := db.Exec(
		"INSERT INTO date_tracking (site_id, date, time_spent) VALUES ('nonexistent', '2024-01-01', 5)",
	)
	assert.Error(t, err, "foreign key constraint should prevent orphan history rows")
}

func TestMigrationRunner_Constraints(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, NewMigrationRunner(db).Run())

	_, err := db.Exec("INSERT INTO sites (id, domain) VALUES ('a', 'x.com')")
	require.NoError(t, err)

	_, err = db.Exec("INSERT INTO sites (id, domain) VALUES ('b', 'x.com')")
	assert.Error(t, err, "domain must be unique")

	_, err = db.Exec("INSERT INTO sites (id, domain, daily_limit) VALUES ('c', 'y.com', 0)")
	assert.Error(t, err, "daily_limit must be positive")

	_, err = db.Exec("INSERT INTO sites (id, domain, daily_time) VALUES ('d', 'z.com', -1)")
	assert.Error(t, err, "daily_time must be non-negative")
}
