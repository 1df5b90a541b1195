package webhook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	coreconfig "github.com/chatforge/chatforge/core/config"
)

func TestRateLimiterThrottlesPerUser(t *testing.T) {
	r := newRateLimiter(coreconfig.RateLimitConfig{IntervalMS: 60_000})

	assert.True(t, r.Allow(1, 100, coreconfig.UpdateMessage))
	assert.False(t, r.Allow(1, 100, coreconfig.UpdateMessage))

	// Other users and other tenants are independent.
	assert.True(t, r.Allow(1, 101, coreconfig.UpdateMessage))
	assert.True(t, r.Allow(2, 100, coreconfig.UpdateMessage))
}

func TestRateLimiterExclusions(t *testing.T) {
	r := newRateLimiter(coreconfig.RateLimitConfig{
		IntervalMS:     60_000,
		ExcludeUpdates: []string{coreconfig.UpdateCallback},
	})

	for i := 0; i < 5; i++ {
		assert.True(t, r.Allow(1, 100, coreconfig.UpdateCallback))
	}
	assert.True(t, r.Allow(1, 100, coreconfig.UpdateMessage))
	assert.False(t, r.Allow(1, 100, coreconfig.UpdateMessage))
}

func TestRateLimiterDisabled(t *testing.T) {
	r := newRateLimiter(coreconfig.RateLimitConfig{})
	for i := 0; i < 5; i++ {
		assert.True(t, r.Allow(1, 100, coreconfig.UpdateMessage))
	}
}

func TestRateLimiterSweep(t *testing.T) {
	r := newRateLimiter(coreconfig.RateLimitConfig{IntervalMS: 10})
	r.Allow(1, 100, coreconfig.UpdateMessage)
	r.sweep(-time.Second)
	assert.Empty(t, r.lastSeen)
}
