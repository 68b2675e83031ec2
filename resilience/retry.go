package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

// transientSignatures are the error-message fragments treated as
// retryable by the default classifier. Anything that matches none of
// these is returned to the caller on the first failure.
var transientSignatures = []string{
	"connection reset",
	"connection refused",
	"timeout",
	"timed out",
	"no such host",
	"dns",
	"429",
	"500",
	"502",
	"503",
	"504",
	"too many requests",
	"service unavailable",
}

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt, so
	// the operation runs at most MaxRetries+1 times. Zero means the
	// default, not a zero-retry policy; for a single attempt set RetryIf
	// to a func that always returns false.
	// Default: 3
	MaxRetries int

	// InitialDelay is the delay before the first retry.
	// Default: 100ms
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries.
	// Default: 30s
	MaxDelay time.Duration

	// Multiplier is the exponential backoff multiplier.
	// Default: 2.0
	Multiplier float64

	// DisableJitter turns off the jitter that scales each delay by a
	// uniform factor in [0.75, 1.25]. Jitter is on by default to avoid
	// synchronized retry storms.
	DisableJitter bool

	// NonRetryableErrors lists message fragments that force an immediate
	// return, checked case-insensitively before the transient list.
	NonRetryableErrors []string

	// RetryIf overrides the default classifier entirely. When set,
	// NonRetryableErrors is ignored.
	RetryIf func(err error) bool

	// OnRetry is called before each backoff sleep, purely for
	// observation. Panics in the hook are contained.
	OnRetry func(attempt int, err error, delay time.Duration)

	// Clock supplies the backoff sleep. Default: the real clock.
	Clock clockwork.Clock
}

// Retry implements retry with exponential backoff and error
// classification.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	// Apply defaults
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.RetryIf == nil {
		nonRetryable := make([]string, len(config.NonRetryableErrors))
		for i, tok := range config.NonRetryableErrors {
			nonRetryable[i] = strings.ToLower(tok)
		}
		config.RetryIf = func(err error) bool {
			return classify(err, nonRetryable)
		}
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}

	return &Retry{config: config}
}

// Execute runs the operation with retry logic. The error returned after
// the final attempt is the operation's own last error, never wrapped.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	var lastErr error

	attempts := r.config.MaxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !r.config.RetryIf(err) {
			return err
		}
		if attempt >= attempts {
			break
		}

		delay := r.delay(attempt)
		r.notifyRetry(attempt, err, delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.config.Clock.After(delay):
		}
	}

	return lastErr
}

// delay computes the backoff for the given 1-indexed attempt.
func (r *Retry) delay(attempt int) time.Duration {
	multiplier := math.Pow(r.config.Multiplier, float64(attempt-1))
	delay := time.Duration(float64(r.config.InitialDelay) * multiplier)

	if !r.config.DisableJitter && delay > 0 {
		// Uniform factor in [0.75, 1.25].
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		factor := 0.75 + rand.Float64()*0.5
		delay = time.Duration(float64(delay) * factor)
	}

	if delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}
	return delay
}

// notifyRetry invokes the OnRetry hook, containing any panic so the hook
// cannot affect control flow.
func (r *Retry) notifyRetry(attempt int, err error, delay time.Duration) {
	if r.config.OnRetry == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	r.config.OnRetry(attempt, err, delay)
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}

// classify decides whether an error is worth retrying. Non-retryable
// tokens win over transient signatures; an error matching neither list
// is not retried.
func classify(err error, nonRetryable []string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())

	for _, tok := range nonRetryable {
		if tok != "" && strings.Contains(msg, tok) {
			return false
		}
	}
	for _, sig := range transientSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
