package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/coordops/bus"
	"github.com/jonwraymond/coordops/resilience"
)

// Metrics records coordination-layer activity through OpenTelemetry
// instruments.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: recording never panics and never fails the caller.
type Metrics struct {
	published       metric.Int64Counter
	delivered       metric.Int64Counter
	requestTimeouts metric.Int64Counter
	requestDuration metric.Float64Histogram
	retryAttempts   metric.Int64Counter
	rejections      metric.Int64Counter
	transitions     metric.Int64Counter
}

var _ bus.Hook = (*Metrics)(nil)

// NewMetrics creates a Metrics instance on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	published, err := meter.Int64Counter(
		"coord.bus.published",
		metric.WithDescription("Messages published to the bus"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}

	delivered, err := meter.Int64Counter(
		"coord.bus.delivered",
		metric.WithDescription("Handler deliveries across all publishes"),
		metric.WithUnit("{delivery}"),
	)
	if err != nil {
		return nil, err
	}

	requestTimeouts, err := meter.Int64Counter(
		"coord.request.timeouts",
		metric.WithDescription("Requests that expired without a response"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"coord.request.duration_ms",
		metric.WithDescription("Time from request issue to settlement"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	retryAttempts, err := meter.Int64Counter(
		"coord.retry.attempts",
		metric.WithDescription("Failed attempts that triggered a backoff retry"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	rejections, err := meter.Int64Counter(
		"coord.ratelimit.rejections",
		metric.WithDescription("Operations rejected by the rate limiter"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter(
		"coord.circuit.transitions",
		metric.WithDescription("Circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		published:       published,
		delivered:       delivered,
		requestTimeouts: requestTimeouts,
		requestDuration: requestDuration,
		retryAttempts:   retryAttempts,
		rejections:      rejections,
		transitions:     transitions,
	}, nil
}

// MessagePublished implements bus.Hook.
func (m *Metrics) MessagePublished(ctx context.Context, msg bus.Message, delivered int) {
	attrs := metric.WithAttributes(
		attribute.String("topic", msg.Topic),
		attribute.String("type", msg.Type.String()),
	)
	m.published.Add(ctx, 1, attrs)
	m.delivered.Add(ctx, int64(delivered), attrs)
}

// RequestTimedOut implements bus.Hook.
func (m *Metrics) RequestTimedOut(ctx context.Context, correlationID string, timeout time.Duration) {
	m.requestTimeouts.Add(ctx, 1)
	m.requestDuration.Record(ctx, float64(timeout)/float64(time.Millisecond),
		metric.WithAttributes(attribute.String("outcome", "timeout")))
}

// RequestCompleted implements bus.Hook.
func (m *Metrics) RequestCompleted(ctx context.Context, correlationID string, elapsed time.Duration) {
	m.requestDuration.Record(ctx, float64(elapsed)/float64(time.Millisecond),
		metric.WithAttributes(attribute.String("outcome", "ok")))
}

// RetryHook returns a closure for resilience.RetryConfig.OnRetry.
func (m *Metrics) RetryHook() func(attempt int, err error, delay time.Duration) {
	return func(attempt int, err error, delay time.Duration) {
		m.retryAttempts.Add(context.Background(), 1, metric.WithAttributes(
			attribute.Int("attempt", attempt),
		))
	}
}

// RateLimitHook returns a closure for resilience.RateLimiterConfig.OnReject.
func (m *Metrics) RateLimitHook() func(err error) {
	return func(err error) {
		reason := "rate_limit"
		switch err {
		case resilience.ErrQueueFull:
			reason = "queue_full"
		case resilience.ErrQueueTimeout:
			reason = "queue_timeout"
		case resilience.ErrQueueCleared:
			reason = "queue_cleared"
		}
		m.rejections.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("reason", reason),
		))
	}
}

// CircuitHook returns a closure for
// resilience.CircuitBreakerConfig.OnStateChange.
func (m *Metrics) CircuitHook() func(from, to resilience.State) {
	return func(from, to resilience.State) {
		m.transitions.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("from", from.String()),
			attribute.String("to", to.String()),
		))
	}
}
