package resilience

import (
	"context"
	"math/rand"
	"time"
)

// jitterFraction caps the random jitter added to each backoff delay.
const jitterFraction = 0.1

// RetryPolicy is a bounded exponential-backoff policy shared by components
// that call flaky network targets. The delay before attempt n (0-based) is
// min(BaseDelay * 2^n, MaxDelay) plus up to 10% random jitter.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Jitter returns a random float in [0, 1). Defaults to math/rand;
	// swappable for deterministic tests.
	Jitter func() float64

	// Sleep is swappable for tests. Defaults to a context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy matches the scraper's production settings: three
// attempts starting at one second, capped at thirty seconds.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// Delay computes the backoff delay before the given 0-based attempt.
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	d := p.BaseDelay << uint(attempt)
	if d > p.MaxDelay || d <= 0 {
		d = p.MaxDelay
	}
	jitter := p.Jitter
	if jitter == nil {
		jitter = rand.Float64
	}
	return d + time.Duration(jitter()*jitterFraction*float64(d))
}

// Do runs fn up to MaxAttempts times, sleeping the backoff delay between
// attempts. It returns nil on the first success, otherwise the error from the
// final attempt. onFailure, if set, is invoked after each failed attempt.
func (p *RetryPolicy) Do(ctx context.Context, fn func() error, onFailure func(attempt int, err error)) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var err error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if onFailure != nil {
			onFailure(attempt, err)
		}
		if attempt == p.MaxAttempts-1 {
			break
		}
		if serr := sleep(ctx, p.Delay(attempt)); serr != nil {
			return serr
		}
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
