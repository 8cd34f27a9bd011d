package resilience

import (
	"sync"
	"time"
)

// BreakerState is the circuit breaker's current state.
type BreakerState string

const (
	// StateClosed allows all executions.
	StateClosed BreakerState = "CLOSED"
	// StateOpen rejects executions until the reset timeout elapses.
	StateOpen BreakerState = "OPEN"
	// StateHalfOpen allows a single trial execution.
	StateHalfOpen BreakerState = "HALF_OPEN"
)

// CircuitBreaker stops calling a repeatedly-failing target until a cooldown
// elapses, then allows a single probe to test recovery.
//
// Transitions:
//   - CLOSED -> OPEN once consecutive failures reach the threshold.
//   - OPEN -> HALF_OPEN after resetTimeout has passed since the last failure.
//   - HALF_OPEN -> CLOSED on RecordSuccess, HALF_OPEN -> OPEN on RecordFailure.
type CircuitBreaker struct {
	failureThreshold int
	resetTimeout     time.Duration

	mu          sync.Mutex
	state       BreakerState
	failures    int
	lastFailure time.Time
	trialTaken  bool

	now func() time.Time
}

// NewCircuitBreaker creates a breaker that opens after failureThreshold
// consecutive failures and probes again after resetTimeout.
func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		state:            StateClosed,
		now:              time.Now,
	}
}

// CanExecute reports whether an execution is currently permitted. When the
// reset timeout has elapsed on an open breaker it moves to HALF_OPEN and
// grants exactly one trial; concurrent callers see false until the trial
// resolves via RecordSuccess or RecordFailure.
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if cb.now().Sub(cb.lastFailure) > cb.resetTimeout {
			cb.state = StateHalfOpen
			cb.trialTaken = true
			return true
		}
		return false
	default: // HALF_OPEN
		if cb.trialTaken {
			return false
		}
		cb.trialTaken = true
		return true
	}
}

// RecordSuccess resets the breaker to CLOSED and clears the failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = StateClosed
	cb.trialTaken = false
}

// RecordFailure counts a failure, refreshes the last-failure time, and opens
// the breaker once the threshold is reached. A failure during HALF_OPEN
// re-opens immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = cb.now()
	cb.trialTaken = false

	if cb.state == StateHalfOpen || cb.failures >= cb.failureThreshold {
		cb.state = StateOpen
	}
}

// State returns the current state for logging and tests.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
