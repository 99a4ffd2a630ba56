package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rotisserie/eris"

	"github.com/verdefield/agrocheck/internal/auth"
	"github.com/verdefield/agrocheck/internal/cache"
	"github.com/verdefield/agrocheck/internal/model"
)

// Get implements internal/cache.Store: a local-disk fallback for the
// fingerprinted checker-result cache when no Redis instance is available.
func (s *SQLiteStore) Get(ctx context.Context, namespace, key, subkey string) (model.CheckerResult, bool) {
	fp := cache.Fingerprint(namespace, key, subkey)

	row := s.db.QueryRowContext(ctx,
		`SELECT value FROM cache_entries WHERE fingerprint = ? AND expires_at > ?`,
		fingerprintKey(fp), now(),
	)
	var raw string
	if err := row.Scan(&raw); err != nil {
		return model.CheckerResult{}, false
	}

	var result model.CheckerResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return model.CheckerResult{}, false
	}
	result.Cached = true
	return result, true
}

// Set implements internal/cache.Store.
func (s *SQLiteStore) Set(ctx context.Context, namespace, key, subkey string, result model.CheckerResult, ttl time.Duration) {
	fp := cache.Fingerprint(namespace, key, subkey)

	stored := result
	stored.Cached = false
	raw, err := json.Marshal(stored)
	if err != nil {
		return
	}

	_, _ = s.db.ExecContext(ctx,
		`INSERT INTO cache_entries (fingerprint, value, cached_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET value = excluded.value, cached_at = excluded.cached_at, expires_at = excluded.expires_at`,
		fingerprintKey(fp), string(raw), now(), now().Add(ttl),
	)
}

// Enqueue implements internal/audit.Persister: a synchronous local-disk
// fallback for the durable River-backed audit queue, used when no Postgres
// connection is configured.
func (s *SQLiteStore) Enqueue(ctx context.Context, row model.AuditRow) error {
	rawInput, err := json.Marshal(row.RawInput)
	if err != nil {
		return eris.Wrap(err, "store: marshal raw input")
	}
	sources, err := json.Marshal(row.Sources)
	if err != nil {
		return eris.Wrap(err, "store: marshal sources")
	}
	summary, err := json.Marshal(row.Summary)
	if err != nil {
		return eris.Wrap(err, "store: marshal summary")
	}
	metadata, err := json.Marshal(row.Metadata)
	if err != nil {
		return eris.Wrap(err, "store: marshal metadata")
	}

	id := row.ID
	if id == "" {
		id = ulid.Make().String()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_rows
		 (id, check_id, raw_input, normalized_value, verdict, score, sources, summary, metadata, processing_time_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, row.CheckID, string(rawInput), row.NormalizedValue, string(row.Verdict), row.Score,
		string(sources), string(summary), string(metadata), row.ProcessingTimeMs, now(),
	)
	return eris.Wrap(err, "store: enqueue audit row")
}

// LookupByPrefix implements internal/auth.Store.
func (s *SQLiteStore) LookupByPrefix(ctx context.Context, prefix string) (*auth.APIKey, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, prefix, hash, hash_version, name, permissions, rate_limit_rpm, is_active, expires_at
		 FROM api_keys WHERE prefix = ?`,
		prefix,
	)

	var k auth.APIKey
	var permissions string
	var isActive int
	var expiresAt sql.NullTime
	err := row.Scan(&k.ID, &k.Prefix, &k.Hash, &k.HashVersion, &k.Name, &permissions, &k.RateLimitRPM, &isActive, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: lookup api key by prefix")
	}

	k.Permissions = splitPermissions(permissions)
	k.IsActive = isActive != 0
	if expiresAt.Valid {
		t := expiresAt.Time
		k.ExpiresAt = &t
	}
	return &k, nil
}

// UpdateLastUsed implements internal/auth.Store.
func (s *SQLiteStore) UpdateLastUsed(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE api_keys SET last_used_at = ? WHERE id = ?`, now(), id)
	return eris.Wrapf(err, "store: update last used for key %s", id)
}

// CreateAPIKey inserts a new row into api_keys, used by the seed-samples
// command to provision a demo key against the embedded store.
func (s *SQLiteStore) CreateAPIKey(ctx context.Context, id, prefix, hash string, hashVersion int, name string, permissions []string, rateLimitRPM int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_keys (id, prefix, hash, hash_version, name, permissions, rate_limit_rpm, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)`,
		id, prefix, hash, hashVersion, name, strings.Join(permissions, ","), rateLimitRPM, now(),
	)
	return eris.Wrap(err, "store: create api key")
}

func fingerprintKey(fp uint64) string {
	return strconv.FormatUint(fp, 36)
}

// splitPermissions mirrors internal/auth/store.go's comma-separated
// permissions column convention.
func splitPermissions(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
