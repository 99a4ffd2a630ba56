package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterEntry pairs a token-bucket limiter with its last-seen time so the
// cleanup goroutine can evict limiters for keys that stopped being used.
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a per-API-key requests-per-minute quota (spec.md
// §6: "enforce per-key rate limit (requests-per-minute; token bucket)"),
// grounded on Togather-Foundation-server/internal/api/middleware/ratelimit.go's
// lazily-created limiter map and TTL cleanup loop, keyed per API key
// instead of per tier.
type RateLimiter struct {
	mu          sync.Mutex
	limiters    map[string]*limiterEntry
	defaultRPM  int
	stopCleanup chan struct{}
}

// NewRateLimiter builds a RateLimiter. defaultRPM is used for any key whose
// APIKey.RateLimitRPM is zero.
func NewRateLimiter(defaultRPM int) *RateLimiter {
	rl := &RateLimiter{
		limiters:    make(map[string]*limiterEntry),
		defaultRPM:  defaultRPM,
		stopCleanup: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Allow reports whether a request for the given key ID is within quota.
// rpm overrides the default when positive (an individual key's own
// RateLimitRPM).
func (rl *RateLimiter) Allow(keyID string, rpm int) bool {
	return rl.limiterFor(keyID, rpm).Allow()
}

func (rl *RateLimiter) limiterFor(keyID string, rpm int) *rate.Limiter {
	if rpm <= 0 {
		rpm = rl.defaultRPM
	}
	if rpm <= 0 {
		rpm = 60
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if entry, ok := rl.limiters[keyID]; ok {
		entry.lastSeen = time.Now()
		return entry.limiter
	}

	interval := time.Minute / time.Duration(rpm)
	limiter := rate.NewLimiter(rate.Every(interval), rpm)
	rl.limiters[keyID] = &limiterEntry{limiter: limiter, lastSeen: time.Now()}
	return limiter
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	ttl := 15 * time.Minute
	now := time.Now()
	for key, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > ttl {
			delete(rl.limiters, key)
		}
	}
}

// Stop shuts down the background cleanup goroutine.
func (rl *RateLimiter) Stop() {
	close(rl.stopCleanup)
}
