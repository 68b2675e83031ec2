// Package resilience provides throttling and failure-isolation primitives
// for calls into flaky plugin dependencies.
//
// # Patterns
//
// The package provides the following patterns:
//
//   - Rate Limiter: Token-bucket throughput control with an independent
//     concurrency cap and a bounded FIFO queue for excess work.
//
//   - Retry: Exponential backoff with jitter and retryable/non-retryable
//     error classification.
//
//   - Circuit Breaker: Three-state failure isolation wrapped around the
//     retry loop of a single logical operation.
//
// # Usage
//
// Each pattern can be used independently or composed together:
//
//	// Create a retry policy
//	retry := resilience.NewRetry(resilience.RetryConfig{
//	    MaxRetries:   3,
//	    InitialDelay: 100 * time.Millisecond,
//	    MaxDelay:     5 * time.Second,
//	    Multiplier:   2.0,
//	})
//
//	// Guard the operation with a circuit breaker
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    FailureThreshold: 5,
//	    ResetTimeout:     time.Minute,
//	    Retry:            retry,
//	})
//
//	// Throttle invocation
//	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{
//	    MaxRequests:   100,
//	    Window:        time.Second,
//	    MaxConcurrent: 10,
//	    QueueExcess:   true,
//	})
//
//	executor := resilience.NewExecutor(
//	    resilience.WithRateLimiter(rl),
//	    resilience.WithCircuitBreaker(cb),
//	)
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return callPluginService(ctx)
//	})
//
// # Error Classification
//
// The retry loop only retries errors that match a known transient
// signature (connection reset/refused, timeouts, DNS failures, HTTP
// 429/500/502/503/504, service unavailable). Any other error is returned
// immediately: unknown failures are treated as non-retryable rather than
// hammered with repeat attempts.
//
// The package performs no logging and no I/O of its own. Observation
// happens only through the OnRetry, OnStateChange, and OnReject hooks.
package resilience
