package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_AllowsWithinQuota(t *testing.T) {
	rl := NewRateLimiter(60)
	defer rl.Stop()

	assert.True(t, rl.Allow("key-1", 0))
}

func TestRateLimiter_BlocksOverQuota(t *testing.T) {
	rl := NewRateLimiter(1) // 1 request per minute -> burst of 1
	defer rl.Stop()

	assert.True(t, rl.Allow("key-1", 0))
	assert.False(t, rl.Allow("key-1", 0))
}

func TestRateLimiter_PerKeyIsolation(t *testing.T) {
	rl := NewRateLimiter(1)
	defer rl.Stop()

	assert.True(t, rl.Allow("key-1", 0))
	assert.False(t, rl.Allow("key-1", 0))
	// A different key has its own independent bucket.
	assert.True(t, rl.Allow("key-2", 0))
}

func TestRateLimiter_PerKeyOverrideRPM(t *testing.T) {
	rl := NewRateLimiter(1)
	defer rl.Stop()

	// key-1 overrides the default with a much higher quota.
	assert.True(t, rl.Allow("key-1", 120))
	assert.True(t, rl.Allow("key-1", 120))
}
