package bus

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Hook observes bus activity. Implementations must be safe for concurrent
// use, must not panic, and must return quickly; they exist for metrics and
// tracing, not control flow.
type Hook interface {
	// MessagePublished is called once per Publish with the number of
	// subscriptions the message was delivered to.
	MessagePublished(ctx context.Context, msg Message, delivered int)

	// RequestTimedOut is called when a tracked request expires without a
	// response.
	RequestTimedOut(ctx context.Context, correlationID string, timeout time.Duration)

	// RequestCompleted is called when a request settles with a response,
	// with the elapsed time from issue to settlement.
	RequestCompleted(ctx context.Context, correlationID string, elapsed time.Duration)
}

// Config configures a Bus.
type Config struct {
	// Clock supplies time for message stamps and request timeouts.
	// Default: the real clock.
	Clock clockwork.Clock

	// Logger receives debug output for dropped responses and recovered
	// handler panics. Default: zerolog.Nop().
	Logger zerolog.Logger

	// Hook observes publishes and request timeouts. Optional.
	Hook Hook
}

// subscription is the bus-owned record of one Subscribe call.
type subscription struct {
	id       string
	pattern  pattern
	priority int
	seq      uint64
	handler  Handler
}

// Bus is a topic-based in-process message bus with request/response
// correlation. All mutable state is guarded by the bus mutex; handlers
// run outside it.
type Bus struct {
	clock   clockwork.Clock
	logger  zerolog.Logger
	hook    Hook
	tracker *Tracker

	mu     sync.RWMutex
	subs   []*subscription
	nextSq uint64
	closed bool
}

// New creates a message bus.
func New(config Config) *Bus {
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	b := &Bus{
		clock:  config.Clock,
		logger: config.Logger,
		hook:   config.Hook,
	}
	b.tracker = NewTracker(config.Clock)
	return b
}

// Tracker returns the bus's correlation tracker, for callers that want
// the non-blocking future form of Request.
func (b *Bus) Tracker() *Tracker {
	return b.tracker
}

// Subscribe registers handler for every topic matching the given pattern
// and returns an idempotent unsubscribe function. Calling unsubscribe
// after the subscription is gone is a no-op.
func (b *Bus) Subscribe(topicPattern string, handler Handler, opts ...SubscribeOption) func() {
	options := subscribeOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	sub := &subscription{
		id:       uuid.NewString(),
		pattern:  parsePattern(topicPattern),
		priority: options.priority,
		handler:  handler,
	}

	b.mu.Lock()
	sub.seq = b.nextSq
	b.nextSq++
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.removeSubscription(sub.id)
		})
	}
}

// Publish delivers payload to every subscription whose pattern matches
// topic. It never returns an error: delivery is fire-and-forget, handler
// panics are recovered and logged, and publishing on a closed bus is a
// logged no-op.
//
// Handlers run synchronously, ordered by ascending subscriber priority
// (stable by subscribe order). A subscriber added after Publish returns
// never sees the message.
func (b *Bus) Publish(ctx context.Context, topic string, payload any, opts ...PublishOption) {
	options := publishOptions{messageType: MessagePublish}
	for _, opt := range opts {
		opt(&options)
	}

	msg := Message{
		ID:            uuid.NewString(),
		Topic:         topic,
		Type:          options.messageType,
		Payload:       payload,
		Priority:      options.priority,
		CorrelationID: options.correlationID,
		CreatedAt:     b.clock.Now(),
	}

	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		b.logger.Debug().Str("topic", topic).Msg("publish on closed bus dropped")
		return
	}

	matched := b.matchingSubscriptions(topic)
	for _, sub := range matched {
		b.deliver(ctx, sub, msg)
	}

	if b.hook != nil {
		b.hook.MessagePublished(ctx, msg, len(matched))
	}
}

// Request publishes a Request-typed message with a fresh correlation id
// and blocks until Respond settles it, the timeout expires, or ctx is
// done. On timeout the error is a *RequestTimeoutError.
func (b *Bus) Request(ctx context.Context, topic string, payload any, timeout time.Duration) (any, error) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return nil, ErrBusClosed
	}

	correlationID := uuid.NewString()
	start := b.clock.Now()
	fut := b.tracker.Track(correlationID, timeout)

	b.Publish(ctx, topic, payload,
		WithMessageType(MessageRequest),
		WithCorrelationID(correlationID),
	)

	value, err := fut.Wait(ctx)
	if err != nil {
		// A ctx abort leaves the entry pending; reclaim it so repeated
		// aborted requests cannot grow the tracker.
		b.tracker.Reject(correlationID, err)
		if timeoutErr, ok := err.(*RequestTimeoutError); ok && b.hook != nil {
			b.hook.RequestTimedOut(ctx, correlationID, timeoutErr.Timeout)
		}
		return nil, err
	}
	if b.hook != nil {
		b.hook.RequestCompleted(ctx, correlationID, b.clock.Now().Sub(start))
	}
	return value, nil
}

// Respond settles the pending request for correlationID with payload. An
// unknown id — already resolved, timed out, or never issued — is a logged
// no-op so late and duplicate responses are harmless.
func (b *Bus) Respond(ctx context.Context, correlationID string, payload any) {
	if b.tracker.Resolve(correlationID, payload) {
		return
	}
	b.logger.Debug().
		Str("correlation_id", correlationID).
		Msg("response for unknown correlation id dropped")
}

// Close rejects all pending requests with ErrBusClosed and removes all
// subscriptions. Close is idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.subs = nil
	b.mu.Unlock()

	b.tracker.RejectAll(ErrBusClosed)
}

// Stats is a read-only snapshot of bus occupancy.
type Stats struct {
	Subscriptions   int
	PendingRequests int
}

// Stats returns current bus occupancy.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	subs := len(b.subs)
	b.mu.RUnlock()

	return Stats{
		Subscriptions:   subs,
		PendingRequests: b.tracker.Len(),
	}
}

// matchingSubscriptions snapshots the subscriptions matching topic,
// sorted by priority then subscribe order.
func (b *Bus) matchingSubscriptions(topic string) []*subscription {
	segments := splitTopic(topic)

	b.mu.RLock()
	var matched []*subscription
	for _, sub := range b.subs {
		if sub.pattern.match(segments) {
			matched = append(matched, sub)
		}
	}
	b.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].priority != matched[j].priority {
			return matched[i].priority < matched[j].priority
		}
		return matched[i].seq < matched[j].seq
	})
	return matched
}

// deliver invokes one handler, containing any panic.
func (b *Bus) deliver(ctx context.Context, sub *subscription, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Str("topic", msg.Topic).
				Str("subscription_id", sub.id).
				Interface("panic", r).
				Msg("handler panicked")
		}
	}()
	sub.handler(ctx, msg)
}

func (b *Bus) removeSubscription(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}
