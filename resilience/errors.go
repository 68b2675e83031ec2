package resilience

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for resilience operations.
var (
	// ErrRateLimitExceeded is returned when no token is available and
	// queueing is disabled.
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")

	// ErrQueueFull is returned when the rate limiter queue is at capacity.
	ErrQueueFull = errors.New("resilience: queue is full")

	// ErrQueueTimeout is returned when a queued operation waited past its
	// deadline before a slot freed.
	ErrQueueTimeout = errors.New("resilience: queued operation timed out")

	// ErrQueueCleared is returned to queued operations dropped by ClearQueue.
	ErrQueueCleared = errors.New("resilience: queue cleared")

	// ErrCircuitOpen matches any *CircuitOpenError via errors.Is.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")
)

// CircuitOpenError is returned when the circuit breaker rejects a call
// without invoking the operation. RetryAfter is the remaining cooldown
// before the breaker will allow a recovery probe.
type CircuitOpenError struct {
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("resilience: circuit breaker is open, retry after %s", e.RetryAfter)
}

// Is reports whether target is ErrCircuitOpen, so callers can use
// errors.Is without knowing the concrete type.
func (e *CircuitOpenError) Is(target error) bool {
	return target == ErrCircuitOpen
}

// RaceError aggregates the failures of a Race call that could not reach
// the requested number of successes.
type RaceError struct {
	Required  int
	Succeeded int
	Failures  []error
}

// Error implements the error interface.
func (e *RaceError) Error() string {
	return fmt.Sprintf("resilience: %d of %d required operations succeeded (%d failed)",
		e.Succeeded, e.Required, len(e.Failures))
}

// Unwrap exposes the aggregated failures to errors.Is and errors.As.
func (e *RaceError) Unwrap() []error {
	return e.Failures
}
