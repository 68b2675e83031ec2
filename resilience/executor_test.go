package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExecutor_NoPatternsRunsDirectly(t *testing.T) {
	e := NewExecutor()

	ran := false
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if !ran {
		t.Error("operation did not run")
	}
}

func TestExecutor_RateLimiterIsOutermost(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		Retry:            singleAttemptRetry(),
	})
	rl := NewRateLimiter(RateLimiterConfig{
		MaxRequests:   1,
		Window:        time.Hour,
		MaxConcurrent: 1,
	})
	e := NewExecutor(WithRateLimiter(rl), WithCircuitBreaker(cb))

	if err := e.Execute(context.Background(), func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("first Execute() error = %v", err)
	}

	// A throttled call never reaches the breaker.
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("must not run")
	})
	if !errors.Is(err, ErrRateLimitExceeded) {
		t.Errorf("Execute() error = %v, want ErrRateLimitExceeded", err)
	}
	if got := cb.Metrics().ConsecutiveFailures; got != 0 {
		t.Errorf("breaker failures = %d, want 0 (rejection happened before the breaker)", got)
	}
}

func TestExecutor_BreakerGuardsInsideLimiter(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
		Retry:            singleAttemptRetry(),
	})
	rl := NewRateLimiter(RateLimiterConfig{
		MaxRequests:   10,
		Window:        time.Second,
		MaxConcurrent: 10,
	})
	e := NewExecutor(WithRateLimiter(rl), WithCircuitBreaker(cb))

	_ = e.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("down")
	})

	err := e.Execute(context.Background(), func(ctx context.Context) error {
		t.Error("operation must not run through an open breaker")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() error = %v, want ErrCircuitOpen", err)
	}
}
