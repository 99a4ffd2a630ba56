package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdefield/agrocheck/internal/auth"
	"github.com/verdefield/agrocheck/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestNewSQLite_InvalidDSN(t *testing.T) {
	_, err := NewSQLite("/nonexistent/dir/subdir/test.db")
	require.Error(t, err)
}

func TestSQLiteStore_PingAndMigrate(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestSQLiteStore_Cache_SetAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	result := model.CheckerResult{Status: model.StatusPass, Message: "ok"}
	s.Set(ctx, "sanctions", "12345678000199", "", result, time.Hour)

	got, ok := s.Get(ctx, "sanctions", "12345678000199", "")
	require.True(t, ok)
	assert.Equal(t, model.StatusPass, got.Status)
	assert.True(t, got.Cached)
}

func TestSQLiteStore_Cache_MissReturnsFalse(t *testing.T) {
	s := newTestStore(t)
	_, ok := s.Get(context.Background(), "sanctions", "does-not-exist", "")
	assert.False(t, ok)
}

func TestSQLiteStore_Cache_ExpiredEntryMisses(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Set(ctx, "sanctions", "expired-key", "", model.CheckerResult{Status: model.StatusPass}, -time.Hour)

	_, ok := s.Get(ctx, "sanctions", "expired-key", "")
	assert.False(t, ok)
}

func TestSQLiteStore_Enqueue_AuditRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	row := model.AuditRow{
		ID:               "row-1",
		CheckID:          "check-1",
		RawInput:         model.Input{Type: model.InputCNPJ, Value: "12345678000199"},
		NormalizedValue:  "12345678000199",
		Verdict:          model.VerdictNonCompliant,
		Score:            10,
		ProcessingTimeMs: 42,
		CreatedAt:        time.Now().UTC(),
	}
	require.NoError(t, s.Enqueue(ctx, row))

	var count int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_rows WHERE id = ?`, "row-1").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSQLiteStore_Enqueue_GeneratesIDWhenMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	row := model.AuditRow{CheckID: "check-2", RawInput: model.Input{Type: model.InputCPF, Value: "11144477735"}}
	require.NoError(t, s.Enqueue(ctx, row))

	var count int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_rows WHERE check_id = ?`, "check-2").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSQLiteStore_LookupByPrefix_NotFound(t *testing.T) {
	s := newTestStore(t)
	key, err := s.LookupByPrefix(context.Background(), "unknown1")
	require.NoError(t, err)
	assert.Nil(t, key)
}

func TestSQLiteStore_LookupByPrefix_Found(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_keys (id, prefix, hash, hash_version, name, permissions, rate_limit_rpm, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		"key-1", "abcd1234", "hashed", auth.HashVersionBcrypt, "ci", "read,write", 120, 1,
	)
	require.NoError(t, err)

	key, err := s.LookupByPrefix(ctx, "abcd1234")
	require.NoError(t, err)
	require.NotNil(t, key)
	assert.Equal(t, "key-1", key.ID)
	assert.ElementsMatch(t, []string{"read", "write"}, key.Permissions)
	assert.True(t, key.IsActive)
	assert.Equal(t, 120, key.RateLimitRPM)
}

func TestSQLiteStore_UpdateLastUsed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_keys (id, prefix, hash, hash_version, name, permissions, rate_limit_rpm, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		"key-2", "efgh5678", "hashed", auth.HashVersionBcrypt, "ci", "read", 60, 1,
	)
	require.NoError(t, err)

	require.NoError(t, s.UpdateLastUsed(ctx, "key-2"))

	var lastUsed *time.Time
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT last_used_at FROM api_keys WHERE id = ?`, "key-2").Scan(&lastUsed))
	require.NotNil(t, lastUsed)
}

func TestSplitPermissions(t *testing.T) {
	assert.Equal(t, []string{"read", "write"}, splitPermissions("read, write"))
	assert.Nil(t, splitPermissions(""))
}
