package webhook

import (
	"sync"
	"time"

	coreconfig "github.com/chatforge/chatforge/core/config"
)

// rateLimiter enforces a minimum interval between updates from the same
// (tenant, user) pair. Update kinds named in the config are exempt, so a
// deployment can keep callbacks snappy while throttling text floods.
type rateLimiter struct {
	interval time.Duration
	exclude  map[string]struct{}

	mu       sync.Mutex
	lastSeen map[limiterKey]time.Time
}

type limiterKey struct {
	tenantID int64
	userID   int64
}

func newRateLimiter(cfg coreconfig.RateLimitConfig) *rateLimiter {
	exclude := make(map[string]struct{}, len(cfg.ExcludeUpdates))
	for _, kind := range cfg.ExcludeUpdates {
		exclude[kind] = struct{}{}
	}
	return &rateLimiter{
		interval: time.Duration(cfg.IntervalMS) * time.Millisecond,
		exclude:  exclude,
		lastSeen: make(map[limiterKey]time.Time),
	}
}

// Allow reports whether the update may proceed and records the arrival.
func (r *rateLimiter) Allow(tenantID, userID int64, updateKind string) bool {
	if r.interval <= 0 {
		return true
	}
	if _, skip := r.exclude[updateKind]; skip {
		return true
	}

	now := time.Now()
	key := limiterKey{tenantID: tenantID, userID: userID}

	r.mu.Lock()
	defer r.mu.Unlock()
	if last, ok := r.lastSeen[key]; ok && now.Sub(last) < r.interval {
		return false
	}
	r.lastSeen[key] = now
	return true
}

// sweep drops stale entries so the map tracks only recently active users.
func (r *rateLimiter) sweep(olderThan time.Duration) {
	cutoff := time.Now().Add(-olderThan)
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, last := range r.lastSeen {
		if last.Before(cutoff) {
			delete(r.lastSeen, key)
		}
	}
}
