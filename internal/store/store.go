// Package store provides an embedded, dependency-free backend for the
// ambient cache/audit/auth tables (SPEC_FULL.md §C) so the service can run
// in a local/dev/test mode without a live Redis, Postgres, or River queue.
// It is not a substitute for internal/db.Pool: checkers still require
// Postgres/PostGIS directly, and internal/audit + internal/auth keep their
// own Postgres-backed paths for production. This package only backs the
// three narrower interfaces those packages already expose (internal/cache.
// Store, internal/audit.Persister, internal/auth.Store), so the same
// SQLiteStore value can be handed to any of those call sites
// interchangeably.
//
// Grounded on the prior store/sqlite.go: modernc.org/sqlite, WAL-mode
// pragmas embedded in the DSN, and a single migration string run at
// startup.
package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite" // Register the pure-Go SQLite driver.
)

// SQLiteStore backs internal/cache.Store, internal/audit.Persister, and
// internal/auth.Store with a single embedded database, for deployments that
// run without Redis/Postgres/River (local development, integration tests,
// demos).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode via pragmas embedded in the DSN, so every pooled connection gets
// the same settings.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if !strings.Contains(dsn, "?") {
		dsn += "?"
	} else {
		dsn += "&"
	}
	dsn += "_pragma=busy_timeout(30000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "store: open sqlite")
	}
	db.SetMaxOpenConns(10)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "store: ping sqlite")
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is alive, matching the shape
// internal/monitoring.Collector expects from a data-store dependency.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const migration = `
CREATE TABLE IF NOT EXISTS cache_entries (
	fingerprint TEXT PRIMARY KEY,
	value       TEXT NOT NULL,
	cached_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cache_entries_expires_at ON cache_entries(expires_at);

CREATE TABLE IF NOT EXISTS audit_rows (
	id                 TEXT PRIMARY KEY,
	check_id           TEXT NOT NULL,
	raw_input          TEXT NOT NULL,
	normalized_value   TEXT NOT NULL,
	verdict            TEXT NOT NULL,
	score              INTEGER NOT NULL,
	sources            TEXT NOT NULL,
	summary            TEXT NOT NULL,
	metadata           TEXT NOT NULL,
	processing_time_ms INTEGER NOT NULL,
	created_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_audit_rows_check_id ON audit_rows(check_id);
CREATE INDEX IF NOT EXISTS idx_audit_rows_created_at ON audit_rows(created_at);

CREATE TABLE IF NOT EXISTS api_keys (
	id             TEXT PRIMARY KEY,
	prefix         TEXT NOT NULL UNIQUE,
	hash           TEXT NOT NULL,
	hash_version   INTEGER NOT NULL,
	name           TEXT NOT NULL,
	permissions    TEXT NOT NULL,
	rate_limit_rpm INTEGER NOT NULL DEFAULT 60,
	is_active      INTEGER NOT NULL DEFAULT 1,
	expires_at     DATETIME,
	last_used_at   DATETIME,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_api_keys_prefix ON api_keys(prefix);
`

// Migrate creates every table this store owns if they do not already exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, migration); err != nil {
		return eris.Wrap(err, "store: migrate")
	}
	return nil
}

// now is a var so cache-expiry tests can override it.
var now = func() time.Time { return time.Now().UTC() }
