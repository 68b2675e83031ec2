package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_ResolveSettlesOnce(t *testing.T) {
	tracker := NewTracker(nil)

	fut := tracker.Track("req-1", time.Minute)

	require.True(t, tracker.Resolve("req-1", "payload"))
	assert.False(t, tracker.Resolve("req-1", "other"), "second resolve must be a no-op")
	assert.False(t, tracker.Reject("req-1", errors.New("late")), "reject after resolve must be a no-op")

	value, err := fut.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "payload", value)
	assert.Equal(t, 0, tracker.Len())
}

func TestTracker_Reject(t *testing.T) {
	tracker := NewTracker(nil)
	rejectErr := errors.New("remote failed")

	fut := tracker.Track("req-1", time.Minute)
	require.True(t, tracker.Reject("req-1", rejectErr))

	_, err := fut.Wait(context.Background())
	assert.ErrorIs(t, err, rejectErr)
	assert.Equal(t, 0, tracker.Len())
}

func TestTracker_TimeoutFiresAndCleansUp(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tracker := NewTracker(clock)

	fut := tracker.Track("req-1", 50*time.Millisecond)
	require.Equal(t, 1, tracker.Len())

	clock.Advance(50 * time.Millisecond)

	_, err := fut.Wait(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequestTimeout)

	var timeoutErr *RequestTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "req-1", timeoutErr.CorrelationID)
	assert.Equal(t, 50*time.Millisecond, timeoutErr.Timeout)

	assert.Equal(t, 0, tracker.Len(), "timed-out entry must be removed")
	assert.False(t, tracker.Resolve("req-1", "late"), "resolve after timeout must be a no-op")
}

func TestTracker_ResolveStopsTimer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tracker := NewTracker(clock)

	fut := tracker.Track("req-1", 50*time.Millisecond)
	require.True(t, tracker.Resolve("req-1", 42))

	// The timer must not settle a second time after resolution.
	clock.Advance(time.Second)

	value, err := fut.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, value)
}

func TestTracker_NoGrowthUnderRepeatedTimeouts(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tracker := NewTracker(clock)

	for i := 0; i < 100; i++ {
		fut := tracker.Track("req", 10*time.Millisecond)
		clock.Advance(10 * time.Millisecond)
		_, err := fut.Wait(context.Background())
		require.ErrorIs(t, err, ErrRequestTimeout)
	}

	assert.Equal(t, 0, tracker.Len())
}

func TestTracker_WaitHonorsContext(t *testing.T) {
	tracker := NewTracker(nil)
	fut := tracker.Track("req-1", time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fut.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// The entry is still pending; abandoning a wait does not settle it.
	assert.Equal(t, 1, tracker.Len())
}

func TestTracker_RejectAll(t *testing.T) {
	tracker := NewTracker(nil)

	futA := tracker.Track("a", time.Minute)
	futB := tracker.Track("b", time.Minute)

	tracker.RejectAll(ErrBusClosed)

	for _, fut := range []*Future{futA, futB} {
		_, err := fut.Wait(context.Background())
		assert.ErrorIs(t, err, ErrBusClosed)
	}
	assert.Equal(t, 0, tracker.Len())
}
