package llm

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Allow while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitState is the breaker's position: closed (traffic flows), open
// (traffic rejected) or half-open (probing the model with real requests
// after the cooldown).
type CircuitState uint8

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

var circuitStateNames = [...]string{
	CircuitClosed:   "closed",
	CircuitOpen:     "open",
	CircuitHalfOpen: "half-open",
}

func (s CircuitState) String() string {
	if int(s) < len(circuitStateNames) {
		return circuitStateNames[s]
	}
	return "unknown"
}

// Breaker defaults, tuned for model API calls: a provider outage trips the
// breaker within one retry budget, and a 30s cooldown is long enough for
// quota windows to roll over.
const (
	DefaultFailureLimit  = 5
	DefaultSuccessTarget = 2
	DefaultCooldown      = 30 * time.Second
)

// CircuitBreaker trips after consecutive model call failures so a broken
// upstream does not absorb every request's full retry budget.
type CircuitBreaker struct {
	failureLimit  int
	successTarget int
	cooldown      time.Duration

	mu          sync.RWMutex
	state       CircuitState
	failures    int
	successes   int
	lastFailure time.Time
}

// NewCircuitBreaker creates a closed breaker that opens after failureLimit
// consecutive failures, re-closes after successTarget half-open successes,
// and waits cooldown before probing. Non-positive arguments fall back to
// the package defaults.
func NewCircuitBreaker(failureLimit, successTarget int, cooldown time.Duration) *CircuitBreaker {
	if failureLimit <= 0 {
		failureLimit = DefaultFailureLimit
	}
	if successTarget <= 0 {
		successTarget = DefaultSuccessTarget
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &CircuitBreaker{
		failureLimit:  failureLimit,
		successTarget: successTarget,
		cooldown:      cooldown,
	}
}

// Allow reports whether a call may proceed. An open breaker whose cooldown
// has elapsed moves to half-open and lets the call through as a probe;
// the exclusive lock keeps that transition race-free.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != CircuitOpen {
		return nil
	}
	if time.Since(cb.lastFailure) <= cb.cooldown {
		return ErrCircuitOpen
	}
	cb.state = CircuitHalfOpen
	cb.successes = 0
	return nil
}

// Success records a completed call. In the closed state it clears the
// consecutive-failure count; in half-open, reaching the success target
// closes the breaker.
func (cb *CircuitBreaker) Success() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitHalfOpen:
		if cb.successes++; cb.successes >= cb.successTarget {
			cb.toClosed()
		}
	case CircuitClosed:
		cb.failures = 0
	}
}

// Failure records a failed call. A half-open probe failure reopens the
// breaker immediately; in the closed state the breaker opens once the
// consecutive-failure count reaches the limit.
func (cb *CircuitBreaker) Failure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = time.Now()

	if cb.state == CircuitHalfOpen || cb.failures >= cb.failureLimit {
		cb.state = CircuitOpen
		cb.successes = 0
	}
}

// State returns the current breaker position.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Reset forces the breaker closed and forgets all history.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.toClosed()
	cb.lastFailure = time.Time{}
}

// toClosed must be called with the lock held.
func (cb *CircuitBreaker) toClosed() {
	cb.state = CircuitClosed
	cb.failures = 0
	cb.successes = 0
}
