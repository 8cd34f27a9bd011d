// Package resilience provides the failure-control primitives used by the
// scraping subsystem: a sliding-window rate limiter, a circuit breaker, and a
// bounded retry policy with jittered exponential backoff.
package resilience

import (
	"context"
	"sync"
	"time"
)

// DefaultPollInterval is how often Wait re-checks for an available slot.
const DefaultPollInterval = 100 * time.Millisecond

// RateLimiter bounds request throughput to at most MaxRequests grants within
// any trailing window of TimeWindow. It keeps a time-ordered queue of grant
// timestamps; expired entries are evicted on each acquisition attempt.
type RateLimiter struct {
	maxRequests int
	timeWindow  time.Duration
	poll        time.Duration

	mu       sync.Mutex
	requests []time.Time

	// now is swappable for tests
	now func() time.Time
}

// NewRateLimiter creates a rate limiter allowing maxRequests per timeWindow.
// Panics if maxRequests <= 0 or timeWindow <= 0, since a zero-quota limiter
// would block forever.
func NewRateLimiter(maxRequests int, timeWindow time.Duration) *RateLimiter {
	if maxRequests <= 0 {
		panic("resilience: maxRequests must be positive")
	}
	if timeWindow <= 0 {
		panic("resilience: timeWindow must be positive")
	}
	return &RateLimiter{
		maxRequests: maxRequests,
		timeWindow:  timeWindow,
		poll:        DefaultPollInterval,
		now:         time.Now,
	}
}

// Acquire attempts to take a slot. It returns true and records the grant
// timestamp if fewer than maxRequests grants fall inside the trailing window,
// false otherwise with no side effect.
func (rl *RateLimiter) Acquire() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.timeWindow)

	// Evict timestamps that have fallen out of the window.
	i := 0
	for i < len(rl.requests) && !rl.requests[i].After(cutoff) {
		i++
	}
	if i > 0 {
		rl.requests = rl.requests[i:]
	}

	if len(rl.requests) < rl.maxRequests {
		rl.requests = append(rl.requests, now)
		return true
	}
	return false
}

// Wait blocks until Acquire succeeds or the context is canceled. Polling is
// coarse on purpose; callers are background workers, not latency-sensitive.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		if rl.Acquire() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(rl.poll):
		}
	}
}
