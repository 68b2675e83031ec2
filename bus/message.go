package bus

import (
	"context"
	"time"
)

// MessageType distinguishes the message variants carried by the bus.
type MessageType int

const (
	// MessagePublish is a plain fire-and-forget event.
	MessagePublish MessageType = iota
	// MessageRequest carries a correlation id and expects a Respond call.
	MessageRequest
	// MessageResponse is the reply half of a request exchange.
	MessageResponse
)

// String returns the string representation of the message type.
func (t MessageType) String() string {
	switch t {
	case MessagePublish:
		return "publish"
	case MessageRequest:
		return "request"
	case MessageResponse:
		return "response"
	default:
		return "unknown"
	}
}

// Message is the immutable unit of delivery. It is passed to handlers by
// value; handlers must not retain references into Payload beyond the call
// if the publisher reuses it.
type Message struct {
	// ID uniquely identifies this message.
	ID string

	// Topic is the hierarchical routing key the message was published to.
	Topic string

	// Type is the message variant.
	Type MessageType

	// Payload is the caller-supplied body.
	Payload any

	// Priority is carried as metadata for consumers that order work.
	// Lower values sort first.
	Priority int

	// CorrelationID links a Request to its eventual Response. Empty for
	// plain publishes.
	CorrelationID string

	// CreatedAt is the bus clock reading when the message was published.
	CreatedAt time.Time
}

// Handler consumes a delivered message. Handlers run synchronously inside
// Publish, in subscriber priority order; a slow handler delays the
// handlers behind it.
type Handler func(ctx context.Context, msg Message)

// PublishOption configures a single Publish call.
type PublishOption func(*publishOptions)

type publishOptions struct {
	priority      int
	correlationID string
	messageType   MessageType
}

// WithMessagePriority sets the message priority metadata. Lower is more
// urgent.
func WithMessagePriority(p int) PublishOption {
	return func(o *publishOptions) {
		o.priority = p
	}
}

// WithCorrelationID attaches a correlation id to the message.
func WithCorrelationID(id string) PublishOption {
	return func(o *publishOptions) {
		o.correlationID = id
	}
}

// WithMessageType overrides the message variant. Publish defaults to
// MessagePublish; Request sets MessageRequest itself.
func WithMessageType(t MessageType) PublishOption {
	return func(o *publishOptions) {
		o.messageType = t
	}
}

// SubscribeOption configures a subscription.
type SubscribeOption func(*subscribeOptions)

type subscribeOptions struct {
	priority int
}

// WithPriority sets the subscriber priority. Within one Publish call,
// handlers run in ascending priority order; ties keep subscribe order.
// Default: 0.
func WithPriority(p int) SubscribeOption {
	return func(o *subscribeOptions) {
		o.priority = p
	}
}
