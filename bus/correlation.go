package bus

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// settlement is the single value delivered to a Future.
type settlement struct {
	value any
	err   error
}

// Future is a one-shot result that settles exactly once: resolved,
// rejected, or timed out.
type Future struct {
	ch chan settlement
}

// Wait blocks until the future settles or ctx is done. Cancelling ctx
// abandons the wait; it does not settle the future.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case s := <-f.ch:
		return s.value, s.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// pendingRequest is the tracker's record of an outstanding correlation.
// Exactly one of resolve, reject, or the timeout timer settles it; the
// map delete under the tracker mutex makes the first settle the only one.
type pendingRequest struct {
	id        string
	future    *Future
	timer     clockwork.Timer
	createdAt time.Time
}

// Tracker maps correlation ids to pending, timed futures.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Settlement: each tracked id settles at most once; later Resolve or
//   Reject calls for the same id are no-ops.
// - Cleanup: the timeout timer is stopped on any settlement, and the map
//   entry is removed, so repeated timeouts cannot grow the map.
type Tracker struct {
	clock clockwork.Clock

	mu      sync.Mutex
	pending map[string]*pendingRequest
}

// NewTracker creates a correlation tracker. A nil clock defaults to the
// real clock.
func NewTracker(clock clockwork.Clock) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Tracker{
		clock:   clock,
		pending: make(map[string]*pendingRequest),
	}
}

// Track registers id and returns a future that settles on the first of:
// Resolve(id), Reject(id), or expiry of timeout with a
// *RequestTimeoutError.
//
// Tracking an id that is already pending rejects the previous entry;
// correlation ids are expected to be unique.
func (t *Tracker) Track(id string, timeout time.Duration) *Future {
	fut := &Future{ch: make(chan settlement, 1)}

	t.mu.Lock()
	if prev, ok := t.pending[id]; ok {
		t.settleLocked(prev)
		prev.future.ch <- settlement{err: errCorrelationReused}
	}
	req := &pendingRequest{
		id:        id,
		future:    fut,
		createdAt: t.clock.Now(),
	}
	req.timer = t.clock.AfterFunc(timeout, func() {
		t.Reject(id, &RequestTimeoutError{CorrelationID: id, Timeout: timeout})
	})
	t.pending[id] = req
	t.mu.Unlock()

	return fut
}

// Resolve settles the pending future for id with value. It reports
// whether a pending entry was found; resolving an unknown or already
// settled id is a no-op.
func (t *Tracker) Resolve(id string, value any) bool {
	req := t.take(id)
	if req == nil {
		return false
	}
	req.future.ch <- settlement{value: value}
	return true
}

// Reject settles the pending future for id with err. It reports whether
// a pending entry was found.
func (t *Tracker) Reject(id string, err error) bool {
	req := t.take(id)
	if req == nil {
		return false
	}
	req.future.ch <- settlement{err: err}
	return true
}

// RejectAll rejects every pending entry with err. Used on bus shutdown.
func (t *Tracker) RejectAll(err error) {
	t.mu.Lock()
	drained := make([]*pendingRequest, 0, len(t.pending))
	for _, req := range t.pending {
		t.settleLocked(req)
		drained = append(drained, req)
	}
	t.mu.Unlock()

	for _, req := range drained {
		req.future.ch <- settlement{err: err}
	}
}

// Len returns the number of pending requests.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// take removes and returns the pending entry for id, or nil if none.
// Removal and timer stop happen atomically with respect to other settles.
func (t *Tracker) take(id string) *pendingRequest {
	t.mu.Lock()
	defer t.mu.Unlock()

	req, ok := t.pending[id]
	if !ok {
		return nil
	}
	t.settleLocked(req)
	return req
}

func (t *Tracker) settleLocked(req *pendingRequest) {
	delete(t.pending, req.id)
	if req.timer != nil {
		req.timer.Stop()
	}
}
