package rose

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"
)

// Bus is the event bus surface a [Platform] works against. [*App]
// implements it.
type Bus interface {
	Subscribe(event string, handler Handler)
	Dispatch(event string, payload any) error
	State() *State
}

// Exclusive is implemented by buses that own the slot serializing their
// dispatches. Every platform handler feeding the same Exclusive bus waits on
// that one slot. [*App] implements it.
type Exclusive interface {
	// Acquire blocks until the slot is free or ctx is done.
	Acquire(ctx context.Context) error
	Release()
}

// dispatchSlot is a single-holder [Exclusive].
type dispatchSlot struct {
	sem *semaphore.Weighted
}

func newDispatchSlot() *dispatchSlot {
	return &dispatchSlot{sem: semaphore.NewWeighted(1)}
}

func (s *dispatchSlot) Acquire(ctx context.Context) error { return s.sem.Acquire(ctx, 1) }

func (s *dispatchSlot) Release() { s.sem.Release(1) }

// exclusiveFor returns the slot of bus, or a fresh one when bus does not
// carry its own.
func exclusiveFor(bus Bus) Exclusive {
	if x, ok := bus.(Exclusive); ok {
		return x
	}
	return newDispatchSlot()
}

// ServeOptions carries the settings a [Platform] needs to serve.
type ServeOptions struct {
	// Port is the TCP port to listen on.
	Port int

	// MaxBodyBytes limits buffered request bodies.
	MaxBodyBytes int64

	// ShutdownTimeout bounds graceful shutdown after the serve context ends.
	ShutdownTimeout time.Duration

	// Logger receives transport events. Nil means [slog.Default].
	Logger *slog.Logger
}

// Platform binds an [App] to a concrete transport.
//
// Init runs once during [New], after the routing pipeline is subscribed. It
// registers the platform's "http.request" normalization handler and the
// response handlers (usually via [RegisterResponders]).
//
// Serve listens for requests until ctx is cancelled. For every request it
// dispatches [EventRequest] with the platform-native request, then reads
// state.http.response: a response is written back, a missing response
// becomes a 404 with a plain-text body. Serve must not let two dispatches
// into the same bus overlap; platforms hold the bus's [Exclusive] slot
// around each dispatch when it has one.
type Platform interface {
	Init(bus Bus)
	Serve(ctx context.Context, bus Bus, opts ServeOptions) error
}
