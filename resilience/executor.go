package resilience

import "context"

// Executor composes a rate limiter and a circuit breaker around one
// logical downstream dependency: calls are throttled first, then pass
// through the breaker and its retry policy.
type Executor struct {
	rateLimiter    *RateLimiter
	circuitBreaker *CircuitBreaker
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates a new resilience executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithRateLimiter adds throttling to the executor.
func WithRateLimiter(rl *RateLimiter) ExecutorOption {
	return func(e *Executor) {
		e.rateLimiter = rl
	}
}

// WithCircuitBreaker adds failure isolation to the executor.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) {
		e.circuitBreaker = cb
	}
}

// Execute runs the operation through the configured patterns: the rate
// limiter outermost, then the circuit breaker (whose admitted calls run
// through its retry policy). Unconfigured patterns are skipped.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	execute := op

	if e.circuitBreaker != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.circuitBreaker.Execute(ctx, inner)
		}
	}

	if e.rateLimiter != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.rateLimiter.Execute(ctx, inner)
		}
	}

	return execute(ctx)
}
