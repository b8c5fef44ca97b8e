// Package engine implements the synchronous, depth-first event dispatch
// engine that drives every state transition in Rose.
//
// This package is internal to Rose. An [Engine] owns a state cell and a
// registry of subscriptions keyed by plain event names. Dispatching an event
// folds the current snapshot through each subscribed [Handler] in
// registration order:
//
//   - each handler receives the latest snapshot and returns the next one
//   - a handler may return a [Dispatch] instruction, which is executed to
//     completion before the next handler of the current event runs
//   - after every handler of an event has run, the meta-event "$.<event>"
//     is raised with no payload, unless the event is already a meta-event
//
// The resulting order of folds for one external event is total and
// deterministic. Recursion is bounded by a maximum depth; exceeding it fails
// with [CyclicDispatchError] instead of exhausting the call stack.
//
// Engines perform no locking. Callers that dispatch from more than one
// goroutine must serialize access themselves.
package engine
