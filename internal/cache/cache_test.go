package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdefield/agrocheck/internal/model"
	"github.com/verdefield/agrocheck/internal/resilience"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c, err := New(client, 100, nil)
	require.NoError(t, err)
	return c, mr
}

func TestCache_GetMiss_ThenSetThenGetHit(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	_, ok := c.Get(ctx, "checker", "doc-1", "")
	assert.False(t, ok)

	c.Set(ctx, "checker", "doc-1", "", model.CheckerResult{Status: model.StatusPass}, time.Minute)

	result, ok := c.Get(ctx, "checker", "doc-1", "")
	require.True(t, ok)
	assert.Equal(t, model.StatusPass, result.Status)
	assert.True(t, result.Cached)
}

func TestCache_RedisUnavailable_TreatsAsMiss(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "checker", "doc-2", "", model.CheckerResult{Status: model.StatusFail}, time.Minute)
	c.local.Purge() // force a Redis round-trip
	mr.Close()

	_, ok := c.Get(ctx, "checker", "doc-2", "")
	assert.False(t, ok)
}

func TestCache_RedisDown_OpensCircuitAfterRepeatedFailures(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	c.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{FailureThreshold: 1})

	c.Set(ctx, "checker", "doc-9", "", model.CheckerResult{Status: model.StatusFail}, time.Minute)
	c.local.Purge()
	mr.Close()

	_, ok := c.Get(ctx, "checker", "doc-9", "")
	assert.False(t, ok)
	assert.Equal(t, resilience.CircuitOpen, c.breaker.State())
}

func TestCache_GetOrExecute_CachesSuccessfulExecution(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	calls := 0
	execute := func(ctx context.Context) (model.CheckerResult, error) {
		calls++
		return model.CheckerResult{Status: model.StatusPass}, nil
	}

	r1, err := c.GetOrExecute(ctx, "checker", "doc-3", "", time.Minute, execute)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPass, r1.Status)
	assert.Equal(t, 1, calls)

	r2, err := c.GetOrExecute(ctx, "checker", "doc-3", "", time.Minute, execute)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPass, r2.Status)
	assert.Equal(t, 1, calls, "second call should be served from cache, not re-executed")
}

func TestCache_GetOrExecute_DoesNotCacheExecutionError(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	wantErr := errors.New("boom")
	_, err := c.GetOrExecute(ctx, "checker", "doc-4", "", time.Minute, func(ctx context.Context) (model.CheckerResult, error) {
		return model.CheckerResult{}, wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	_, ok := c.Get(ctx, "checker", "doc-4", "")
	assert.False(t, ok)
}

func TestFingerprint_DistinctInputsDiffer(t *testing.T) {
	a := Fingerprint("labor-blacklist", "12345678900", "")
	b := Fingerprint("labor-blacklist", "98765432100", "")
	assert.NotEqual(t, a, b)
}

func TestFingerprint_SameInputsMatch(t *testing.T) {
	a := Fingerprint("labor-blacklist", "12345678900", "")
	b := Fingerprint("labor-blacklist", "12345678900", "")
	assert.Equal(t, a, b)
}
