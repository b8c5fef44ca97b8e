package engine

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jpalmerr/rose/internal/store"
)

// MetaPrefix marks a meta-event. The engine raises "$.<event>" after every
// handler of <event> has finished folding state.
const MetaPrefix = "$."

// Dispatch is an instruction returned by a handler to trigger a further
// event before control returns to the handler's caller.
type Dispatch struct {
	// To is the name of the event to dispatch.
	To string

	// With is the payload passed to the event's handlers.
	With any
}

// Result is what a [Handler] returns: the next snapshot and an optional
// chained [Dispatch].
type Result[S any] struct {
	State    S
	Dispatch *Dispatch
}

// Handler folds a payload into the current snapshot.
//
// Handlers must not mutate the snapshot they receive. They return a new
// snapshot, which may share unchanged parts with the old one. A returned
// error aborts the rest of the dispatch chain; the returned state is then
// discarded.
type Handler[S any] func(state S, payload any) (Result[S], error)

// IsMeta reports whether event is a meta-event name.
func IsMeta(event string) bool {
	return strings.HasPrefix(event, MetaPrefix)
}

// Engine is a synchronous pub/sub dispatch engine over an immutable snapshot
// of type S.
//
// Engine is created with [New]. It is not safe for concurrent use.
type Engine[S any] struct {
	cell          *store.Cell[S]
	subscriptions map[string][]Handler[S]
	maxDepth      int
	logger        *slog.Logger
}

// New creates an [Engine] whose state cell holds initial.
//
// Defaults:
//   - Max depth: 64
//   - Logger: [slog.Default]
//
// Returns an error if any option is invalid.
func New[S any](initial S, opts ...Option) (*Engine[S], error) {
	cfg := &config{
		maxDepth: DefaultMaxDepth,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine[S]{
		cell:          store.NewCell(initial),
		subscriptions: make(map[string][]Handler[S]),
		maxDepth:      cfg.maxDepth,
		logger:        logger,
	}, nil
}

// Subscribe appends handler to the subscription list of event.
//
// The same event may have any number of handlers; they run in registration
// order. Nil handlers are ignored.
func (e *Engine[S]) Subscribe(event string, handler Handler[S]) {
	if handler == nil {
		return
	}
	e.subscriptions[event] = append(e.subscriptions[event], handler)
}

// Dispatch runs every handler subscribed to event, then raises the
// meta-event "$.<event>".
//
// Dispatch is synchronous and depth-first: a handler's [Dispatch]
// instruction, including that event's own meta-event, completes before the
// next handler of the current event runs. Dispatching an event nobody
// subscribed to leaves the state untouched and still raises its meta-event.
//
// On failure, folds applied before the failing handler are kept, and the
// remaining handlers, the pending meta-event and the failing handler's own
// instruction are skipped. The error is a [*HandlerError] or a
// [*CyclicDispatchError].
func (e *Engine[S]) Dispatch(event string, payload any) error {
	return e.dispatch(event, payload, 0)
}

func (e *Engine[S]) dispatch(event string, payload any, depth int) error {
	if depth > e.maxDepth {
		return &CyclicDispatchError{Event: event, Depth: depth, Max: e.maxDepth}
	}

	// registrations made while dispatching apply to the next dispatch
	handlers := e.subscriptions[event]
	e.logger.Debug("dispatch", "event", event, "depth", depth, "handlers", len(handlers))

	for i, handler := range handlers {
		result, err := e.invoke(event, i, handler, payload)
		if err != nil {
			return err
		}
		e.cell.Store(result.State)

		if result.Dispatch != nil {
			if err := e.dispatch(result.Dispatch.To, result.Dispatch.With, depth+1); err != nil {
				return err
			}
		}
	}

	if IsMeta(event) {
		return nil
	}
	return e.dispatch(MetaPrefix+event, nil, depth+1)
}

// invoke calls a single handler with panic recovery.
// A panic is logged with its stack trace under a correlation ID and returned
// as a [*HandlerError] carrying the same ID.
func (e *Engine[S]) invoke(event string, index int, handler Handler[S], payload any) (result Result[S], err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			e.logger.Error("handler panic",
				"correlation_id", correlationID,
				"event", event,
				"handler", index,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			err = &HandlerError{
				Event:         event,
				Index:         index,
				CorrelationID: correlationID,
				Err:           fmt.Errorf("panic: %v", r),
			}
		}
	}()

	result, err = handler(e.cell.Load(), payload)
	if err != nil {
		return Result[S]{}, &HandlerError{Event: event, Index: index, Err: err}
	}
	return result, nil
}

// State returns the current snapshot. Callers must not mutate it.
func (e *Engine[S]) State() S {
	return e.cell.Load()
}

// Version returns the number of folds applied since the engine was created.
func (e *Engine[S]) Version() uint64 {
	return e.cell.Version()
}

// MaxDepth returns the configured maximum dispatch depth.
func (e *Engine[S]) MaxDepth() int {
	return e.maxDepth
}

// Subscribers returns the number of handlers subscribed to event.
func (e *Engine[S]) Subscribers(event string) int {
	return len(e.subscriptions[event])
}

// Events returns the names of all events with at least one handler, sorted.
func (e *Engine[S]) Events() []string {
	events := make([]string, 0, len(e.subscriptions))
	for name, handlers := range e.subscriptions {
		if len(handlers) > 0 {
			events = append(events, name)
		}
	}
	sort.Strings(events)
	return events
}
