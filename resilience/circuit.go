package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed State = iota
	// StateOpen means the circuit is rejecting all calls.
	StateOpen
	// StateHalfOpen means the circuit is probing for recovery.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before the
	// circuit opens.
	// Default: 5
	FailureThreshold int

	// ResetTimeout is the cooldown before a recovery probe is allowed.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// Retry is the retry policy each admitted call runs through, so a
	// single probe may still make several attempts.
	// Default: NewRetry(RetryConfig{})
	Retry *Retry

	// IsFailure determines whether an error counts against the threshold.
	// Default: all non-nil errors are failures.
	IsFailure func(err error) bool

	// OnStateChange is called when the circuit state changes.
	OnStateChange func(from, to State)

	// Clock supplies cooldown timing. Default: the real clock.
	Clock clockwork.Clock
}

// CircuitBreaker guards one logical operation with three-state failure
// isolation. Admitted calls run through the configured retry policy; an
// open circuit rejects calls without invoking the operation at all.
//
// A transition to open does not interrupt attempts already in flight; it
// only rejects future calls.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	clock  clockwork.Clock

	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	lastFailure         time.Time
	probing             bool
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	// Apply defaults
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.Retry == nil {
		config.Retry = NewRetry(RetryConfig{})
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}

	return &CircuitBreaker{
		config: config,
		clock:  config.Clock,
		state:  StateClosed,
	}
}

// Execute runs the operation through the circuit breaker and its retry
// policy. When the circuit is open, the returned error is a
// *CircuitOpenError carrying the remaining cooldown.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	err := cb.config.Retry.Execute(ctx, op)
	cb.afterRequest(err)
	return err
}

// State returns the current circuit state. It is a pure read: the
// open-to-half-open transition happens on the next Execute, not here.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forces the circuit closed with all counters zeroed, for
// administrative recovery.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	oldState := cb.state
	cb.state = StateClosed
	cb.consecutiveFailures = 0
	cb.probing = false
	cb.mu.Unlock()

	cb.notifyStateChange(oldState, StateClosed)
}

// Metrics returns current circuit breaker statistics.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CircuitBreakerMetrics{
		State:               cb.state,
		ConsecutiveFailures: cb.consecutiveFailures,
		LastFailure:         cb.lastFailure,
	}
}

// CircuitBreakerMetrics contains circuit breaker statistics.
type CircuitBreakerMetrics struct {
	State               State
	ConsecutiveFailures int
	LastFailure         time.Time
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()

	switch cb.state {
	case StateOpen:
		remaining := cb.config.ResetTimeout - cb.clock.Now().Sub(cb.lastFailure)
		if remaining > 0 {
			cb.mu.Unlock()
			return &CircuitOpenError{RetryAfter: remaining}
		}
		// Cooldown elapsed: this call becomes the recovery probe.
		cb.state = StateHalfOpen
		cb.probing = true
		cb.mu.Unlock()
		cb.notifyStateChange(StateOpen, StateHalfOpen)
		return nil

	case StateHalfOpen:
		if cb.probing {
			cb.mu.Unlock()
			return &CircuitOpenError{}
		}
		cb.probing = true
	}

	cb.mu.Unlock()
	return nil
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	isFailure := cb.config.IsFailure(err)
	oldState := cb.state

	switch cb.state {
	case StateClosed:
		if isFailure {
			cb.consecutiveFailures++
			cb.lastFailure = cb.clock.Now()
			if cb.consecutiveFailures >= cb.config.FailureThreshold {
				cb.state = StateOpen
			}
		} else {
			cb.consecutiveFailures = 0
		}

	case StateHalfOpen:
		cb.probing = false
		if isFailure {
			// Probe failed: back to open with a fresh cooldown.
			cb.lastFailure = cb.clock.Now()
			cb.state = StateOpen
		} else {
			cb.state = StateClosed
			cb.consecutiveFailures = 0
		}
	}

	newState := cb.state
	cb.mu.Unlock()

	if oldState != newState {
		cb.notifyStateChange(oldState, newState)
	}
}

// notifyStateChange invokes the OnStateChange hook outside the mutex,
// containing any panic.
func (cb *CircuitBreaker) notifyStateChange(from, to State) {
	if from == to || cb.config.OnStateChange == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	cb.config.OnStateChange(from, to)
}
