package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

// BenchmarkRateLimiter_Execute measures the uncontended happy path.
func BenchmarkRateLimiter_Execute(b *testing.B) {
	rl := NewRateLimiter(RateLimiterConfig{
		MaxRequests:   1 << 30,
		Window:        time.Second,
		MaxConcurrent: 1 << 20,
	})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = rl.Execute(ctx, func(ctx context.Context) error {
			return nil
		})
	}
}

// BenchmarkRateLimiter_Status measures snapshot overhead.
func BenchmarkRateLimiter_Status(b *testing.B) {
	rl := NewRateLimiter(RateLimiterConfig{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = rl.Status()
	}
}

// BenchmarkRetry_Execute_Success measures a first-attempt success.
func BenchmarkRetry_Execute_Success(b *testing.B) {
	r := NewRetry(RetryConfig{})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.Execute(ctx, func(ctx context.Context) error {
			return nil
		})
	}
}

// BenchmarkClassify measures the default error classifier.
func BenchmarkClassify(b *testing.B) {
	err := errors.New("dial tcp 10.0.0.1:8200: connection refused")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = classify(err, nil)
	}
}

// BenchmarkCircuitBreaker_Execute_Closed measures happy path execution.
func BenchmarkCircuitBreaker_Execute_Closed(b *testing.B) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 100,
		ResetTimeout:     time.Minute,
	})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cb.Execute(ctx, func(ctx context.Context) error {
			return nil
		})
	}
}

// BenchmarkCircuitBreaker_StateCheck measures state inspection overhead.
func BenchmarkCircuitBreaker_StateCheck(b *testing.B) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cb.State()
	}
}
