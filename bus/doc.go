// Package bus provides an in-process, topic-based message bus for
// coordinating loosely-coupled plugin services.
//
// The bus supports fire-and-forget publishing, glob-style topic
// subscriptions, and a request/response layer built on correlated
// one-shot futures.
//
// # Topics and Patterns
//
// Topics are hierarchical strings whose segments are separated by "/" or
// ":". Subscription patterns may use wildcards:
//
//   - "*" matches exactly one segment
//   - "**" matches zero or more trailing segments
//
// For example, the pattern "plugin/*/ready" matches "plugin/vault/ready"
// but not "plugin/ready", while "plugin/**" matches both.
//
// # Delivery Semantics
//
// Delivery is in-memory and at-most-once: a handler subscribed at the time
// of a Publish call receives the message exactly once; a handler subscribed
// afterwards never sees it. Within a single Publish call, matching handlers
// run in ascending subscriber priority order. No ordering is guaranteed
// across separate Publish calls.
//
// # Request/Response
//
// Request publishes a Request-typed message carrying a fresh correlation
// id and blocks until a matching Respond call settles it or the timeout
// expires:
//
//	b := bus.New(bus.Config{})
//	defer b.Close()
//
//	unsub := b.Subscribe("vault/secret/get", func(ctx context.Context, msg bus.Message) {
//	    b.Respond(ctx, msg.CorrelationID, lookupSecret(msg.Payload))
//	})
//	defer unsub()
//
//	v, err := b.Request(ctx, "vault/secret/get", "db/creds", 2*time.Second)
//
// A late or duplicate Respond is a logged no-op, never an error: the
// responder must not crash because the requester already gave up.
//
// The bus performs no I/O of its own. Failures surface only through
// returned errors and the optionally injected logger and Hook.
package bus
