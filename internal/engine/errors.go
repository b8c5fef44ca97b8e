package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrCyclicDispatch matches any [CyclicDispatchError] via [errors.Is].
	ErrCyclicDispatch = errors.New("cyclic dispatch")

	// ErrHandler matches any [HandlerError] via [errors.Is].
	ErrHandler = errors.New("handler failed")
)

// CyclicDispatchError is returned when chained dispatch instructions nest
// deeper than the engine's maximum depth.
type CyclicDispatchError struct {
	// Event is the event that would have been dispatched past the limit.
	Event string

	// Depth is the nesting depth that was rejected.
	Depth int

	// Max is the configured maximum depth.
	Max int
}

func (e *CyclicDispatchError) Error() string {
	return fmt.Sprintf("cyclic dispatch: event %q at depth %d exceeds maximum depth %d", e.Event, e.Depth, e.Max)
}

// Is reports whether target is [ErrCyclicDispatch].
func (e *CyclicDispatchError) Is(target error) bool {
	return target == ErrCyclicDispatch
}

// HandlerError wraps a failure reported by a subscribed handler, either as a
// returned error or as a recovered panic.
type HandlerError struct {
	// Event is the event whose handler failed.
	Event string

	// Index is the handler's position in the event's subscription list.
	Index int

	// CorrelationID is set when the handler panicked. The same ID is logged
	// together with the stack trace.
	CorrelationID string

	// Err is the underlying error.
	Err error
}

func (e *HandlerError) Error() string {
	if e.CorrelationID != "" {
		return fmt.Sprintf("handler %d for event %q panicked (correlation_id: %s): %v", e.Index, e.Event, e.CorrelationID, e.Err)
	}
	return fmt.Sprintf("handler %d for event %q failed: %v", e.Index, e.Event, e.Err)
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// Is reports whether target is [ErrHandler].
func (e *HandlerError) Is(target error) bool {
	return target == ErrHandler
}
