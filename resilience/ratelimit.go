package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// slotPollInterval is how often WaitForSlot re-checks availability.
const slotPollInterval = 10 * time.Millisecond

// RateLimiterConfig configures the rate limiter.
type RateLimiterConfig struct {
	// MaxRequests is the bucket capacity; together with Window it sets
	// the refill rate of MaxRequests tokens per Window.
	// Default: 100
	MaxRequests int

	// Window is the refill window.
	// Default: 1s
	Window time.Duration

	// MaxConcurrent caps operations running at once, independent of the
	// token bucket.
	// Default: 10
	MaxConcurrent int

	// QueueExcess queues work when no token or slot is available instead
	// of failing with ErrRateLimitExceeded.
	QueueExcess bool

	// MaxQueueSize bounds the queue; further work fails with ErrQueueFull.
	// Default: 100
	MaxQueueSize int

	// QueueTimeout rejects a queued operation with ErrQueueTimeout once it
	// has waited this long for a slot.
	// Default: 30s
	QueueTimeout time.Duration

	// OnReject is called with the rejection error whenever an operation is
	// refused without running. Optional, observation only.
	OnReject func(err error)

	// Clock supplies refill timing and queue deadlines.
	// Default: the real clock.
	Clock clockwork.Clock
}

// queueEntry is one queued operation. Settlement happens exactly once,
// always under the limiter mutex: dequeue-to-run, queue timeout, clear,
// or caller cancellation — whichever comes first removes the entry.
type queueEntry struct {
	op         func(context.Context) error
	ctx        context.Context
	enqueuedAt time.Time
	timer      clockwork.Timer

	// done receives the final error (or nil) exactly once.
	done chan error
}

// RateLimiter is a token-bucket throttle with an independent concurrency
// cap and a bounded FIFO queue for excess work.
type RateLimiter struct {
	config RateLimiterConfig
	clock  clockwork.Clock

	mu          sync.Mutex
	tokens      float64
	lastRefill  time.Time
	concurrent  int
	queue       []*queueEntry
	refillTimer clockwork.Timer
}

// Status is a read-only snapshot of limiter occupancy.
type Status struct {
	// AvailableTokens is the floored number of whole tokens available now.
	AvailableTokens int
	// CurrentConcurrent is the number of operations running.
	CurrentConcurrent int
	// QueueLength is the number of operations waiting for a slot.
	QueueLength int
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	// Apply defaults
	if config.MaxRequests <= 0 {
		config.MaxRequests = 100
	}
	if config.Window <= 0 {
		config.Window = time.Second
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}
	if config.MaxQueueSize <= 0 {
		config.MaxQueueSize = 100
	}
	if config.QueueTimeout <= 0 {
		config.QueueTimeout = 30 * time.Second
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}

	return &RateLimiter{
		config:     config,
		clock:      config.Clock,
		tokens:     float64(config.MaxRequests),
		lastRefill: config.Clock.Now(),
	}
}

// Execute runs op under the rate limit. If a token and a concurrency slot
// are free the operation runs immediately; otherwise it is queued (when
// QueueExcess is on) or rejected with ErrRateLimitExceeded. Queued work
// runs strictly FIFO as slots free, subject to QueueTimeout and the queue
// bound.
func (rl *RateLimiter) Execute(ctx context.Context, op func(context.Context) error) error {
	rl.mu.Lock()
	rl.refillLocked()

	if rl.tokens >= 1 && rl.concurrent < rl.config.MaxConcurrent {
		rl.tokens--
		rl.concurrent++
		rl.mu.Unlock()
		return rl.run(ctx, op)
	}

	if !rl.config.QueueExcess {
		rl.mu.Unlock()
		rl.reject(ErrRateLimitExceeded)
		return ErrRateLimitExceeded
	}
	if len(rl.queue) >= rl.config.MaxQueueSize {
		rl.mu.Unlock()
		rl.reject(ErrQueueFull)
		return ErrQueueFull
	}

	entry := &queueEntry{
		op:         op,
		ctx:        ctx,
		enqueuedAt: rl.clock.Now(),
		done:       make(chan error, 1),
	}
	entry.timer = rl.clock.AfterFunc(rl.config.QueueTimeout, func() {
		rl.expire(entry)
	})
	rl.queue = append(rl.queue, entry)
	rl.scheduleRefillLocked()
	rl.mu.Unlock()

	select {
	case err := <-entry.done:
		return err
	case <-ctx.Done():
		if rl.cancelQueued(entry) {
			return ctx.Err()
		}
		// Already dequeued; the operation is running or settled. Wait for
		// its real outcome so the concurrency accounting stays truthful.
		return <-entry.done
	}
}

// ExecuteAll runs every operation through Execute concurrently and
// returns the settled outcome of each in input order.
func (rl *RateLimiter) ExecuteAll(ctx context.Context, ops []func(context.Context) error) []error {
	results := make([]error, len(ops))

	var g errgroup.Group
	for i, op := range ops {
		g.Go(func() error {
			results[i] = rl.Execute(ctx, op)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Status reports current occupancy without mutating limiter state.
func (rl *RateLimiter) Status() Status {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	tokens := rl.tokens + rl.clock.Now().Sub(rl.lastRefill).Seconds()*rl.ratePerSecond()
	if max := float64(rl.config.MaxRequests); tokens > max {
		tokens = max
	}

	return Status{
		AvailableTokens:   int(tokens),
		CurrentConcurrent: rl.concurrent,
		QueueLength:       len(rl.queue),
	}
}

// ClearQueue rejects every queued operation with ErrQueueCleared and
// empties the queue. In-flight operations are not affected.
func (rl *RateLimiter) ClearQueue() {
	rl.mu.Lock()
	cleared := rl.queue
	rl.queue = nil
	for _, entry := range cleared {
		entry.timer.Stop()
	}
	rl.mu.Unlock()

	for _, entry := range cleared {
		entry.done <- ErrQueueCleared
		rl.reject(ErrQueueCleared)
	}
}

// WaitForSlot polls until a token and a concurrency slot are both
// available, without consuming either. It is a pre-check for callers who
// want to avoid building an operation that would only be queued.
func (rl *RateLimiter) WaitForSlot(ctx context.Context) error {
	for {
		rl.mu.Lock()
		rl.refillLocked()
		free := rl.tokens >= 1 && rl.concurrent < rl.config.MaxConcurrent
		rl.mu.Unlock()
		if free {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-rl.clock.After(slotPollInterval):
		}
	}
}

// run executes an operation that already holds a token and a slot.
func (rl *RateLimiter) run(ctx context.Context, op func(context.Context) error) error {
	defer rl.release()
	return op(ctx)
}

// release frees a concurrency slot and drains the queue.
func (rl *RateLimiter) release() {
	rl.mu.Lock()
	rl.concurrent--
	rl.mu.Unlock()
	rl.drain()
}

// drain starts as many queued operations as tokens and slots allow,
// oldest first. Entries that overstayed QueueTimeout are rejected and
// draining continues past them.
func (rl *RateLimiter) drain() {
	for {
		rl.mu.Lock()
		rl.refillLocked()

		if len(rl.queue) == 0 || rl.tokens < 1 || rl.concurrent >= rl.config.MaxConcurrent {
			rl.scheduleRefillLocked()
			rl.mu.Unlock()
			return
		}

		entry := rl.queue[0]
		rl.queue = rl.queue[1:]
		entry.timer.Stop()

		if rl.clock.Now().Sub(entry.enqueuedAt) >= rl.config.QueueTimeout {
			rl.mu.Unlock()
			entry.done <- ErrQueueTimeout
			rl.reject(ErrQueueTimeout)
			continue
		}

		rl.tokens--
		rl.concurrent++
		rl.mu.Unlock()

		go func() {
			entry.done <- rl.run(entry.ctx, entry.op)
		}()
	}
}

// scheduleRefillLocked arms a timer to re-drain the queue once the next
// whole token has accrued. Without it, work queued on token exhaustion
// alone would wait for an in-flight operation to release a slot — and
// when nothing is in flight, sit until QueueTimeout despite the bucket
// refilling. Spurious fires only re-run drain, which is safe.
func (rl *RateLimiter) scheduleRefillLocked() {
	if len(rl.queue) == 0 || rl.tokens >= 1 || rl.concurrent >= rl.config.MaxConcurrent {
		return
	}

	wait := time.Duration((1 - rl.tokens) / rl.ratePerSecond() * float64(time.Second))
	if wait <= 0 {
		wait = time.Millisecond
	}

	if rl.refillTimer == nil {
		rl.refillTimer = rl.clock.AfterFunc(wait, rl.drain)
		return
	}
	rl.refillTimer.Reset(wait)
}

// expire handles a queue timeout firing for a specific entry.
func (rl *RateLimiter) expire(entry *queueEntry) {
	if !rl.removeQueued(entry) {
		return
	}
	entry.done <- ErrQueueTimeout
	rl.reject(ErrQueueTimeout)
}

// cancelQueued removes a still-queued entry on caller cancellation. It
// reports false if the entry already left the queue.
func (rl *RateLimiter) cancelQueued(entry *queueEntry) bool {
	if !rl.removeQueued(entry) {
		return false
	}
	entry.timer.Stop()
	return true
}

// removeQueued removes entry from the queue if it is still there.
func (rl *RateLimiter) removeQueued(entry *queueEntry) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for i, e := range rl.queue {
		if e == entry {
			rl.queue = append(rl.queue[:i], rl.queue[i+1:]...)
			return true
		}
	}
	return false
}

// refillLocked adds tokens for the time elapsed since the last refill,
// capped at MaxRequests. Fractions accumulate.
func (rl *RateLimiter) refillLocked() {
	now := rl.clock.Now()
	elapsed := now.Sub(rl.lastRefill)
	rl.lastRefill = now

	rl.tokens += elapsed.Seconds() * rl.ratePerSecond()
	if max := float64(rl.config.MaxRequests); rl.tokens > max {
		rl.tokens = max
	}
}

func (rl *RateLimiter) ratePerSecond() float64 {
	return float64(rl.config.MaxRequests) / rl.config.Window.Seconds()
}

// reject invokes the OnReject hook, containing any panic.
func (rl *RateLimiter) reject(err error) {
	if rl.config.OnReject == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	rl.config.OnReject(err)
}
