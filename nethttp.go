package rose

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/jpalmerr/rose/internal/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// NetHTTPRequest is the platform-native payload the net/http platform
// dispatches as [EventRequest].
type NetHTTPRequest struct {
	// HTTP is the incoming request. Its body has already been consumed.
	HTTP *http.Request

	// Body is the fully buffered request body.
	Body []byte

	// ID is the request's correlation ID.
	ID string
}

// NetHTTPPlatform is the default [Platform], built on net/http.
//
// Requests are buffered in full before dispatch and serialized through the
// bus's dispatch slot, shared by every handler serving that bus, so the
// engine never sees two overlapping dispatches and a response is read back
// before the next request can overwrite it.
type NetHTTPPlatform struct{}

// NetHTTP returns the net/http [Platform].
func NetHTTP() *NetHTTPPlatform {
	return &NetHTTPPlatform{}
}

// Init subscribes the "http.request" normalization handler and the built-in
// response handlers on bus.
func (p *NetHTTPPlatform) Init(bus Bus) {
	bus.Subscribe(EventRequest, normalizeRequest)
	RegisterResponders(bus)
}

// Serve listens on opts.Port and feeds every request into bus until ctx is
// cancelled, then shuts down gracefully.
//
// Returns an error if the listener cannot be bound.
func (p *NetHTTPPlatform) Serve(ctx context.Context, bus Bus, opts ServeOptions) error {
	srv := p.newServer(bus, opts)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	<-ctx.Done()
	<-srv.Done()
	loggerOrDefault(opts.Logger).Info("rose stopped")
	return nil
}

// Handler returns an [http.Handler] that feeds requests into bus without
// binding a listener, for mounting on an existing server or for tests.
//
// opts.Port is ignored.
func (p *NetHTTPPlatform) Handler(bus Bus, opts ServeOptions) http.Handler {
	return p.newServer(bus, opts)
}

func (p *NetHTTPPlatform) newServer(bus Bus, opts ServeOptions) *server.Server {
	return server.NewServer(server.Config{
		Port:            opts.Port,
		MaxBodyBytes:    opts.MaxBodyBytes,
		ShutdownTimeout: opts.ShutdownTimeout,
	}, exchange(bus), loggerOrDefault(opts.Logger))
}

// exchange returns the per-request round trip: dispatch the raw request, then
// translate state.http.response into a transport reply.
func exchange(bus Bus) server.HandlerFunc {
	slot := exclusiveFor(bus)

	return func(ctx context.Context, req *server.Request) (server.Reply, error) {
		if err := slot.Acquire(ctx); err != nil {
			return server.Reply{}, fmt.Errorf("waiting for dispatch slot: %w", err)
		}
		defer slot.Release()

		raw := &NetHTTPRequest{HTTP: req.HTTP, Body: req.Body, ID: req.ID}
		if err := bus.Dispatch(EventRequest, raw); err != nil {
			return server.Reply{}, err
		}

		state := bus.State()
		trace.SpanFromContext(ctx).SetAttributes(attribute.Bool("rose.route.matched", !state.NotFound()))

		resp := state.Response()
		if resp == nil {
			return server.NotFound(), nil
		}
		return server.Reply{
			Status:  resp.Status,
			Headers: resp.Headers,
			Body:    resp.Body,
		}, nil
	}
}

// normalizeRequest is the net/http platform's "http.request" handler. It
// replaces state.http with a fresh branch holding only the normalized
// request, which drops the previous request's response.
//
// Besides *NetHTTPRequest it accepts an already normalized *Request. A nil
// payload leaves the state unchanged.
func normalizeRequest(state *State, payload any) (Result, error) {
	switch raw := payload.(type) {
	case nil:
		return Next(state)
	case *Request:
		if raw == nil {
			return Next(state)
		}
		return Next(state.WithRequest(raw))
	case *NetHTTPRequest:
		if raw == nil || raw.HTTP == nil {
			return Next(state)
		}
		return Next(state.WithRequest(raw.normalize()))
	default:
		return Result{}, fmt.Errorf("unsupported request payload %T", payload)
	}
}

// normalize builds the framework [Request] with an absolute URL.
func (r *NetHTTPRequest) normalize() *Request {
	u := &url.URL{}
	if r.HTTP.URL != nil {
		cp := *r.HTTP.URL
		u = &cp
	}
	if u.Host == "" {
		u.Host = r.HTTP.Host
	}
	if u.Scheme == "" {
		u.Scheme = "http"
		if r.HTTP.TLS != nil {
			u.Scheme = "https"
		}
	}

	header := make(map[string]string, len(r.HTTP.Header))
	for k, values := range r.HTTP.Header {
		if len(values) > 0 {
			header[http.CanonicalHeaderKey(k)] = values[0]
		}
	}

	return &Request{
		URL:        u,
		Method:     r.HTTP.Method,
		Header:     header,
		Body:       r.Body,
		RemoteAddr: r.HTTP.RemoteAddr,
		ID:         r.ID,
	}
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
