package auth

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore_LookupByPrefix_Found(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	pool.ExpectQuery("SELECT id, prefix, hash, hash_version, name, permissions, rate_limit_rpm, is_active, expires_at").
		WithArgs("abcd1234").
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "prefix", "hash", "hash_version", "name", "permissions", "rate_limit_rpm", "is_active", "expires_at"},
		).AddRow("key-1", "abcd1234", "$2a$...", HashVersionBcrypt, "prod key", "read,write", 120, true, nil))

	store := NewPostgresStore(pool)
	key, err := store.LookupByPrefix(context.Background(), "abcd1234")
	require.NoError(t, err)
	require.NotNil(t, key)
	assert.Equal(t, "key-1", key.ID)
	assert.Equal(t, []string{"read", "write"}, key.Permissions)
	assert.Equal(t, 120, key.RateLimitRPM)
}

func TestPostgresStore_LookupByPrefix_NotFound(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	pool.ExpectQuery("SELECT id, prefix, hash, hash_version, name, permissions, rate_limit_rpm, is_active, expires_at").
		WithArgs("missing0").
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "prefix", "hash", "hash_version", "name", "permissions", "rate_limit_rpm", "is_active", "expires_at"},
		))

	store := NewPostgresStore(pool)
	key, err := store.LookupByPrefix(context.Background(), "missing0")
	require.NoError(t, err)
	assert.Nil(t, key)
}

func TestPostgresStore_UpdateLastUsed(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	pool.ExpectExec("UPDATE api_keys SET last_used_at").
		WithArgs(pgxmock.AnyArg(), "key-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	store := NewPostgresStore(pool)
	err = store.UpdateLastUsed(context.Background(), "key-1")
	assert.NoError(t, err)
}

func TestSplitPermissions(t *testing.T) {
	assert.Equal(t, []string{"read", "write"}, splitPermissions("read, write"))
	assert.Nil(t, splitPermissions(""))
}
