// Package rose provides a small web framework built around a synchronous
// event bus over an immutable application state.
//
// Every interaction with a Rose application is an event. Handlers subscribed
// to an event fold its payload into the current [State] and may chain into
// further events. HTTP requests are events too: the platform normalizes each
// request into state.http.request, the router matches it against the route
// table and dispatches the route's application event, and a handler answers
// by dispatching one of the built-in response events.
//
// # Quick Start
//
//	app, _ := rose.New(rose.WithPort(3222))
//
//	app.Get("/hello/:who", "http.request.hello")
//	app.Subscribe("http.request.hello", func(s *rose.State, payload any) (rose.Result, error) {
//	    params, _ := payload.(rose.Params)
//	    return rose.Then(s, rose.EventResponsePlain, rose.ResponseData{
//	        Body: "Hello: " + params.Get("who"),
//	    })
//	})
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	app.Serve(ctx) // blocks until context is cancelled
//
// # Dispatch
//
// [App.Dispatch] runs the handlers of an event in registration order. A
// handler returning a [Dispatch] instruction has that event fully processed
// before the next handler runs. After all direct handlers, the meta-event
// "$.<event>" is dispatched so observers can react once an event settled.
// Meta-events never get meta-events of their own.
//
// Dispatch is bounded: chains nested deeper than [WithMaxDispatchDepth]
// abort with a [CyclicDispatchError]. A failing or panicking handler aborts
// with a [HandlerError]; folds completed before the failure are kept.
//
// # Built-in Events
//
//   - "http.request": raw platform request, normalized by the platform
//   - "$.http.request": routing; subscribed by [New]
//   - "http.response.plain": text/plain response from a [ResponseData]
//   - "http.response.json": application/json response from a [ResponseData]
//
// # Routing
//
// Patterns are split on "/" and compared segment by segment. A segment
// starting with ":" captures the request segment under that name; every
// other segment must match exactly. Paths match only with the same number of
// segments, and the first registered route that matches wins.
//
// # Architecture
//
// Rose consists of several internal packages (under internal/):
//
//   - internal/engine: Generic event engine with depth-bounded dispatch
//   - internal/store: Versioned state cell holding the current snapshot
//   - internal/router: Route table and path parameter extraction
//   - internal/server: net/http transport with request IDs and tracing
//   - internal/telemetry: OTLP trace exporter setup used by the CLI
//
// The internal packages are not part of the public API and may change
// without notice. The config package builds an [App] from a YAML file and
// backs the rose command line tool.
package rose
