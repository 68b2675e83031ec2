package bus

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for bus operations.
var (
	// ErrBusClosed is returned when an operation is attempted on a closed bus.
	ErrBusClosed = errors.New("bus: bus is closed")

	// ErrRequestTimeout matches any *RequestTimeoutError via errors.Is.
	ErrRequestTimeout = errors.New("bus: request timed out")
)

// errCorrelationReused rejects a pending entry whose correlation id was
// tracked again before settling.
var errCorrelationReused = errors.New("bus: correlation id reused")

// RequestTimeoutError is returned when a request receives no response
// within its deadline. It carries the correlation id and the timeout that
// expired so callers can report which exchange failed.
type RequestTimeoutError struct {
	CorrelationID string
	Timeout       time.Duration
}

// Error implements the error interface.
func (e *RequestTimeoutError) Error() string {
	return fmt.Sprintf("bus: request %s timed out after %s", e.CorrelationID, e.Timeout)
}

// Is reports whether target is ErrRequestTimeout, so callers can use
// errors.Is without knowing the concrete type.
func (e *RequestTimeoutError) Is(target error) bool {
	return target == ErrRequestTimeout
}
