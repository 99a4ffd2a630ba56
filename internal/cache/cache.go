// Package cache implements the per-checker result cache described in
// spec.md §4.5: a fingerprinted, TTL-bound, two-tier (in-process LRU over
// Redis) store with singleflight collapse on concurrent misses and
// failure-transparent behavior — a cache outage is logged and treated as a
// miss, never a request failure.
//
// The two-tier shape is grounded on other_examples' h3-spatial-cache
// (internal/scenarios/cache/cache.go), which layers a local index in front
// of a Redis-backed feature store; this package keeps that split (local
// golang-lru/v2 in front of redis/go-redis/v9) but collapses its
// cell-index/feature-store split into a single opaque value store, since a
// CheckerResult has no sub-structure worth caching separately.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/verdefield/agrocheck/internal/model"
	"github.com/verdefield/agrocheck/internal/resilience"
)

// Store is the cache layer's operation contract (spec.md §4.5).
type Store interface {
	Get(ctx context.Context, namespace, key, subkey string) (model.CheckerResult, bool)
	Set(ctx context.Context, namespace, key, subkey string, result model.CheckerResult, ttl time.Duration)
}

// Cache is a two-tier (local LRU over Redis) implementation of Store, with
// singleflight collapse for concurrent misses on the same fingerprint.
type Cache struct {
	local   *lru.Cache[uint64, model.CheckerResult]
	redis   *redis.Client
	group   singleflight.Group
	logger  *zap.Logger
	breaker *resilience.CircuitBreaker
}

// New builds a Cache. redisClient may be nil, in which case the cache
// operates local-only (still useful within a single process for
// singleflight collapse and the in-memory tier). A misses-as-normal
// redis.Nil never counts toward the circuit breaker; only connection-level
// failures do, so a cold cache doesn't trip it.
func New(redisClient *redis.Client, localSize int, logger *zap.Logger) (*Cache, error) {
	if localSize <= 0 {
		localSize = 10000
	}
	local, err := lru.New[uint64, model.CheckerResult](localSize)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		ShouldTrip: func(err error) bool { return err != nil && !errors.Is(err, redis.Nil) },
	})
	return &Cache{local: local, redis: redisClient, logger: logger, breaker: breaker}, nil
}

// Fingerprint computes the cache key tuple's hash: (checkerName,
// canonicalValue), namespaced and sub-keyed per spec.md §4.5.
func Fingerprint(namespace, key, subkey string) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(namespace)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(key)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(subkey)
	return h.Sum64()
}

// Get looks up a cached CheckerResult, checking the local tier first and
// falling back to Redis. A Redis error is logged and treated as a miss.
func (c *Cache) Get(ctx context.Context, namespace, key, subkey string) (model.CheckerResult, bool) {
	fp := Fingerprint(namespace, key, subkey)

	if result, ok := c.local.Get(fp); ok {
		result.Cached = true
		return result, true
	}

	if c.redis == nil {
		return model.CheckerResult{}, false
	}

	raw, err := resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) ([]byte, error) {
		return c.redis.Get(ctx, redisKey(fp)).Bytes()
	})
	switch {
	case errors.Is(err, redis.Nil):
		return model.CheckerResult{}, false
	case err != nil:
		c.logger.Warn("cache get failed, treating as miss", zap.Error(&model.CacheError{Op: "get", Message: err.Error()}))
		return model.CheckerResult{}, false
	}

	var result model.CheckerResult
	if err := json.Unmarshal(raw, &result); err != nil {
		c.logger.Warn("cache value corrupt, treating as miss", zap.Error(&model.CacheError{Op: "get", Message: err.Error()}))
		return model.CheckerResult{}, false
	}

	result.Cached = true
	c.local.Add(fp, result)
	return result, true
}

// Set stores result in both tiers with the given TTL. Errors are logged
// and swallowed per the failure-transparency rule.
func (c *Cache) Set(ctx context.Context, namespace, key, subkey string, result model.CheckerResult, ttl time.Duration) {
	fp := Fingerprint(namespace, key, subkey)

	stored := result
	stored.Cached = false
	c.local.Add(fp, stored)

	if c.redis == nil {
		return
	}

	raw, err := json.Marshal(stored)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.Error(&model.CacheError{Op: "set", Message: err.Error()}))
		return
	}
	err = c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.redis.Set(ctx, redisKey(fp), raw, ttl).Err()
	})
	if err != nil {
		c.logger.Warn("cache set failed", zap.Error(&model.CacheError{Op: "set", Message: err.Error()}))
	}
}

// GetOrExecute implements the singleflight-collapsed cache-lookup →
// execute → cache-store sequence used by the orchestrator's fan-out
// (spec.md §4.5/§4.6): concurrent requests for the same fingerprint
// collapse into one execution, the rest read the joined result.
func (c *Cache) GetOrExecute(ctx context.Context, namespace, key, subkey string, ttl time.Duration, execute func(ctx context.Context) (model.CheckerResult, error)) (model.CheckerResult, error) {
	if result, ok := c.Get(ctx, namespace, key, subkey); ok {
		return result, nil
	}

	fp := Fingerprint(namespace, key, subkey)
	sfKey := redisKey(fp)

	v, err, _ := c.group.Do(sfKey, func() (any, error) {
		result, err := execute(ctx)
		if err != nil {
			return model.CheckerResult{}, err
		}
		c.Set(ctx, namespace, key, subkey, result, ttl)
		return result, nil
	})
	if err != nil {
		return model.CheckerResult{}, err
	}
	return v.(model.CheckerResult), nil
}

func redisKey(fp uint64) string {
	return "agrocheck:check:" + strconv.FormatUint(fp, 36)
}
