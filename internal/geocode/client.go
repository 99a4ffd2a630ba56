// Package geocode resolves free-text Brazilian addresses to coordinates.
// It cascades a primary OpenStreetMap/Nominatim provider with an optional
// fallback provider, caches results in Postgres with a long TTL, and never
// silently degrades an unresolved address to (0, 0): a miss on every
// configured provider surfaces as a GeocodingError (design note, spec §4.1,
// §4.2, §7).
package geocode

import (
	"context"

	"github.com/verdefield/agrocheck/internal/db"
	"github.com/verdefield/agrocheck/internal/model"
	"github.com/verdefield/agrocheck/internal/resilience"
)

// Source identifies which cascade stage produced a geocoding Result.
type Source string

const (
	SourceCache    Source = "cache"
	SourcePrimary  Source = "primary"
	SourceFallback Source = "fallback"
)

// Result is what a successful geocode returns: coordinates plus enough
// provenance for normalize.go to populate metadata.geocodingResult.
type Result struct {
	Coordinates  model.Coordinates
	DisplayName  string
	AddressParts map[string]string
	Source       Source
}

// Client resolves addresses to coordinates.
type Client interface {
	Geocode(ctx context.Context, address string) (Result, error)
}

// Provider is a single geocoding backend tried in cascade order.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, address string) (providerMatch, bool, error)
}

// providerMatch is what a Provider returns on a hit, before CascadeClient
// stamps it with a Source.
type providerMatch struct {
	Coordinates  model.Coordinates
	DisplayName  string
	AddressParts map[string]string
}

// CascadeClient tries each Provider in order, caching the first match. Each
// provider is guarded by its own circuit breaker, keyed by Provider.Name, so
// a provider that is down entirely stops taking requests instead of paying
// its full timeout on every lookup.
type CascadeClient struct {
	providers    []Provider
	pool         db.Pool
	cacheEnabled bool
	cacheTTLDays int
	breakers     *resilience.ServiceBreakers
}

// Option configures a CascadeClient.
type Option func(*CascadeClient)

// WithCacheTTLDays sets how many days a cached geocode result stays fresh.
func WithCacheTTLDays(days int) Option {
	return func(c *CascadeClient) { c.cacheTTLDays = days }
}

// WithCacheDisabled turns off the Postgres-backed cache, used in tests.
func WithCacheDisabled() Option {
	return func(c *CascadeClient) { c.cacheEnabled = false }
}

// WithBreakerConfig overrides the default per-provider circuit breaker
// configuration.
func WithBreakerConfig(cfg resilience.CircuitBreakerConfig) Option {
	return func(c *CascadeClient) { c.breakers = resilience.NewServiceBreakers(cfg) }
}

// NewCascadeClient builds a Client that tries providers in the given order.
// providers[0] is the primary; any remaining entries are fallbacks, invoked
// only once the primary has failed to match.
func NewCascadeClient(pool db.Pool, providers []Provider, opts ...Option) *CascadeClient {
	c := &CascadeClient{
		providers:    providers,
		pool:         pool,
		cacheEnabled: pool != nil,
		cacheTTLDays: 365,
		breakers:     resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BreakerStates reports the current circuit state per provider, for the
// monitoring collector.
func (c *CascadeClient) BreakerStates() map[string]resilience.CircuitState {
	return c.breakers.States()
}

type providerAttempt struct {
	match   providerMatch
	matched bool
}

// Geocode resolves address via the provider cascade, consulting the cache
// first and storing the first match found.
func (c *CascadeClient) Geocode(ctx context.Context, address string) (Result, error) {
	key := cacheKey(address)

	if c.cacheEnabled {
		if cached, err := c.checkCache(ctx, key); err == nil {
			cached.Source = SourceCache
			return cached, nil
		}
	}

	var lastErr error
	for i, p := range c.providers {
		cb := c.breakers.Get(p.Name())
		attempt, err := resilience.ExecuteVal(ctx, cb, func(ctx context.Context) (providerAttempt, error) {
			match, matched, gerr := p.Geocode(ctx, address)
			return providerAttempt{match: match, matched: matched}, gerr
		})
		if err != nil {
			lastErr = err
			continue
		}
		if !attempt.matched {
			continue
		}
		match := attempt.match

		src := SourcePrimary
		if i > 0 {
			src = SourceFallback
		}
		result := Result{
			Coordinates:  match.Coordinates,
			DisplayName:  match.DisplayName,
			AddressParts: match.AddressParts,
			Source:       src,
		}
		if c.cacheEnabled {
			_ = c.storeCache(ctx, key, result)
		}
		return result, nil
	}

	if lastErr != nil {
		return Result{}, &model.GeocodingError{Address: address, Message: lastErr.Error()}
	}
	return Result{}, &model.GeocodingError{Address: address, Message: "no provider matched this address"}
}
