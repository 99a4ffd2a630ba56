package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/verdefield/agrocheck/internal/db"
)

// migration creates the auth table this service owns (spec.md §6's
// "Auth table: API keys (prefix + hash + permissions + rate limit)").
const migration = `
CREATE TABLE IF NOT EXISTS api_keys (
	id             TEXT PRIMARY KEY,
	prefix         TEXT NOT NULL UNIQUE,
	hash           TEXT NOT NULL,
	hash_version   INTEGER NOT NULL,
	name           TEXT NOT NULL,
	permissions    TEXT NOT NULL DEFAULT '',
	rate_limit_rpm INTEGER NOT NULL DEFAULT 0,
	is_active      BOOLEAN NOT NULL DEFAULT true,
	expires_at     TIMESTAMPTZ,
	last_used_at   TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_api_keys_prefix ON api_keys (prefix);
`

// Migrate creates the auth table if it does not already exist.
func Migrate(ctx context.Context, pool db.Pool) error {
	_, err := pool.Exec(ctx, migration)
	if err != nil {
		return eris.Wrap(err, "auth: migrate")
	}
	return nil
}

// PostgresStore implements Store against the api_keys table.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore builds a PostgresStore.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// LookupByPrefix implements Store.
func (s *PostgresStore) LookupByPrefix(ctx context.Context, prefix string) (*APIKey, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, prefix, hash, hash_version, name, permissions, rate_limit_rpm, is_active, expires_at
		FROM api_keys
		WHERE prefix = $1`, prefix)

	var (
		key         APIKey
		permissions string
	)
	err := row.Scan(&key.ID, &key.Prefix, &key.Hash, &key.HashVersion, &key.Name,
		&permissions, &key.RateLimitRPM, &key.IsActive, &key.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "auth: lookup by prefix")
	}

	key.Permissions = splitPermissions(permissions)
	return &key, nil
}

// UpdateLastUsed implements Store.
func (s *PostgresStore) UpdateLastUsed(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `UPDATE api_keys SET last_used_at = $1 WHERE id = $2`, time.Now().UTC(), id)
	if err != nil {
		return eris.Wrap(err, "auth: update last used")
	}
	return nil
}

func splitPermissions(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
