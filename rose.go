package rose

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jpalmerr/rose/internal/engine"
	"github.com/jpalmerr/rose/internal/router"
)

const (
	defaultPort            = 3000
	defaultMaxBodyBytes    = 1 << 20 // 1MB
	defaultShutdownTimeout = 5 * time.Second
)

// MetaPrefix marks meta-events. "$.<event>" is raised after every handler of
// <event> has run.
const MetaPrefix = engine.MetaPrefix

// Handler folds an event payload into the current [State].
//
// Handlers must not mutate the state they receive; they return a new
// snapshot built with the State's With methods, optionally together with a
// [Dispatch] instruction. Returning an error aborts the rest of the dispatch
// chain.
type Handler = engine.Handler[*State]

// Result is the return value of a [Handler].
type Result = engine.Result[*State]

// Dispatch is a handler's instruction to trigger a further event before
// control returns to its caller.
type Dispatch = engine.Dispatch

// Route binds a method and path pattern to an application event.
type Route = router.Route

// HandlerError is returned by [App.Dispatch] when a handler fails or panics.
type HandlerError = engine.HandlerError

// CyclicDispatchError is returned by [App.Dispatch] when chained dispatches
// nest deeper than the configured maximum depth.
type CyclicDispatchError = engine.CyclicDispatchError

var (
	// ErrHandler matches every [HandlerError] via errors.Is.
	ErrHandler = engine.ErrHandler

	// ErrCyclicDispatch matches every [CyclicDispatchError] via errors.Is.
	ErrCyclicDispatch = engine.ErrCyclicDispatch
)

// Params holds the path parameters of a matched route. It is the payload of
// the event a route dispatches.
type Params map[string]string

// Get returns the parameter called name, or "" when absent.
func (p Params) Get(name string) string {
	return p[name]
}

// Next returns a [Result] that keeps state and dispatches nothing.
func Next(state *State) (Result, error) {
	return Result{State: state}, nil
}

// Then returns a [Result] that keeps state and chains into event to with
// payload with.
func Then(state *State, to string, with any) (Result, error) {
	return Result{State: state, Dispatch: &Dispatch{To: to, With: with}}, nil
}

// App is a Rose framework instance: an event bus over an immutable [State]
// plus the route table that maps requests to application events.
//
// App is created with [New], configured by registering routes and
// subscribing handlers, then started with [App.Serve]:
//
//	app, err := rose.New(rose.WithPort(3222))
//	if err != nil {
//	    slog.Error("failed to create app", "error", err)
//	    os.Exit(1)
//	}
//
//	app.Get("/hello/:who", "http.request.hello")
//	app.Subscribe("http.request.hello", func(s *rose.State, payload any) (rose.Result, error) {
//	    params, _ := payload.(rose.Params)
//	    return rose.Then(s, rose.EventResponsePlain, rose.ResponseData{Body: "Hello: " + params.Get("who")})
//	})
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//	app.Serve(ctx) // blocks until ctx is cancelled
//
// Routes and subscriptions are set up before Serve and not changed
// afterwards. Dispatch itself performs no locking; platforms serialize
// requests through the App's [Exclusive] slot.
type App struct {
	engine          *engine.Engine[*State]
	slot            *dispatchSlot
	routes          router.Table
	platform        Platform
	port            int
	maxBodyBytes    int64
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// New creates a new [App] with the given options.
//
// Defaults:
//   - Platform: [NetHTTP]
//   - Initial state: empty
//   - Port: 3000
//   - Max dispatch depth: 64
//   - Max request body: 1MB
//   - Shutdown timeout: 5 seconds
//
// New subscribes the routing pipeline to "$.http.request" and then lets the
// platform register its own handlers. Returns an error if any option is
// invalid.
func New(opts ...Option) (*App, error) {
	cfg := &appConfig{
		port:            defaultPort,
		maxDepth:        engine.DefaultMaxDepth,
		maxBodyBytes:    defaultMaxBodyBytes,
		shutdownTimeout: defaultShutdownTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	initial := cfg.initialState
	if initial == nil {
		initial = NewState(nil)
	}

	eng, err := engine.New(initial,
		engine.WithMaxDepth(cfg.maxDepth),
		engine.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	platform := cfg.platform
	if platform == nil {
		platform = NetHTTP()
	}

	app := &App{
		engine:          eng,
		slot:            newDispatchSlot(),
		platform:        platform,
		port:            cfg.port,
		maxBodyBytes:    cfg.maxBodyBytes,
		shutdownTimeout: cfg.shutdownTimeout,
		logger:          logger,
	}

	app.engine.Subscribe(MetaEventRequest, app.route)
	app.platform.Init(app)

	return app, nil
}

// Acquire takes the App's dispatch slot, blocking until it is free or ctx is
// done. Platforms hold it around each request's dispatch.
func (a *App) Acquire(ctx context.Context) error {
	return a.slot.Acquire(ctx)
}

// Release frees the dispatch slot taken by [App.Acquire].
func (a *App) Release() {
	a.slot.Release()
}

// Subscribe appends handler to the subscription list of event.
//
// Handlers for the same event run in registration order. Nil handlers are
// ignored.
func (a *App) Subscribe(event string, handler Handler) {
	a.engine.Subscribe(event, handler)
}

// Dispatch synchronously runs every handler subscribed to event, then the
// meta-event "$.<event>".
//
// Chained dispatch instructions run depth-first before the next handler.
// When a handler fails, earlier folds are kept and the rest of the chain is
// skipped; the returned error wraps a [HandlerError] or a
// [CyclicDispatchError].
func (a *App) Dispatch(event string, payload any) error {
	return a.engine.Dispatch(event, payload)
}

// State returns the current snapshot.
func (a *App) State() *State {
	return a.engine.State()
}

// Handle registers a route for method and pattern that dispatches event.
//
// Routes are matched in registration order and the first match wins. A
// route with the same method and pattern as an earlier one is kept but can
// never match; a warning is logged.
func (a *App) Handle(method, pattern, event string) {
	if shadowed := a.routes.Register(method, pattern, event); shadowed {
		a.logger.Warn("route shadowed by earlier registration",
			"method", method,
			"pattern", pattern,
			"event", event,
		)
	}
}

// Get registers a GET route.
func (a *App) Get(pattern, event string) { a.Handle(http.MethodGet, pattern, event) }

// Post registers a POST route.
func (a *App) Post(pattern, event string) { a.Handle(http.MethodPost, pattern, event) }

// Put registers a PUT route.
func (a *App) Put(pattern, event string) { a.Handle(http.MethodPut, pattern, event) }

// Delete registers a DELETE route.
func (a *App) Delete(pattern, event string) { a.Handle(http.MethodDelete, pattern, event) }

// Patch registers a PATCH route.
func (a *App) Patch(pattern, event string) { a.Handle(http.MethodPatch, pattern, event) }

// Options registers an OPTIONS route.
func (a *App) Options(pattern, event string) { a.Handle(http.MethodOptions, pattern, event) }

// Head registers a HEAD route.
func (a *App) Head(pattern, event string) { a.Handle(http.MethodHead, pattern, event) }

// Trace registers a TRACE route.
func (a *App) Trace(pattern, event string) { a.Handle(http.MethodTrace, pattern, event) }

// Connect registers a CONNECT route.
func (a *App) Connect(pattern, event string) { a.Handle(http.MethodConnect, pattern, event) }

// Routes returns a copy of the registered routes in registration order.
func (a *App) Routes() []Route {
	return a.routes.Routes()
}

// ShadowedRoutes reports, for each route returned by [App.Routes], whether
// an earlier route with the same method and pattern hides it.
func (a *App) ShadowedRoutes() []bool {
	return a.routes.Shadowed()
}

// Events returns the sorted names of all events with subscribers.
func (a *App) Events() []string {
	return a.engine.Events()
}

// Port returns the configured HTTP port.
func (a *App) Port() int {
	return a.port
}

// Serve hands the app to its platform and blocks until ctx is cancelled.
//
// For signal handling, use [signal.NotifyContext]:
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//	app.Serve(ctx)
//
// Returns nil on graceful shutdown, or an error if the platform fails to
// start.
func (a *App) Serve(ctx context.Context) error {
	a.logger.Info("rose starting",
		"routes", a.routes.Len(),
		"events", len(a.engine.Events()),
		"max_dispatch_depth", a.engine.MaxDepth(),
	)

	return a.platform.Serve(ctx, a, ServeOptions{
		Port:            a.port,
		MaxBodyBytes:    a.maxBodyBytes,
		ShutdownTimeout: a.shutdownTimeout,
		Logger:          a.logger,
	})
}
