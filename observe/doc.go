// Package observe provides OpenTelemetry instrumentation for the
// coordination layer.
//
// It is a pure adapter: the bus and resilience packages never log or
// export telemetry themselves, they only invoke hooks injected by their
// callers. This package turns those hooks into otel metric recordings.
//
//	meter := otel.Meter("coordops")
//	m, err := observe.NewMetrics(meter)
//	if err != nil {
//	    return err
//	}
//
//	b := bus.New(bus.Config{Hook: m})
//
//	retry := resilience.NewRetry(resilience.RetryConfig{
//	    OnRetry: m.RetryHook(),
//	})
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    Retry:         retry,
//	    OnStateChange: m.CircuitHook(),
//	})
//	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{
//	    OnReject: m.RateLimitHook(),
//	})
//
// Exporter setup belongs to the embedding process, not this library.
package observe
