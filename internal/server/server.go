package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	// RequestIDHeader carries the request ID in both directions.
	RequestIDHeader = "X-Request-Id"

	// maxRequestIDLength bounds client-supplied request IDs; longer ones are
	// replaced with a generated ID.
	maxRequestIDLength = 128

	// defaultShutdownTimeout is used when Config.ShutdownTimeout is zero.
	defaultShutdownTimeout = 5 * time.Second

	tracerName = "github.com/jpalmerr/rose/internal/server"
)

// Request is a transport request with its body already buffered.
type Request struct {
	// HTTP is the original request. Its body has been consumed.
	HTTP *http.Request

	// Body is the full request body, nil when empty.
	Body []byte

	// ID is the request's correlation ID.
	ID string
}

// Reply is what a [HandlerFunc] asks the server to write.
type Reply struct {
	// Status defaults to 200 when zero.
	Status int

	// Headers are written before the body.
	Headers map[string]string

	// Body is written as-is.
	Body []byte
}

// HandlerFunc turns a buffered request into a reply.
//
// A returned error is logged and answered with 500, or 503 when the error is
// caused by the request context ending.
type HandlerFunc func(ctx context.Context, req *Request) (Reply, error)

// Config holds the server settings.
type Config struct {
	// Port is the TCP port to listen on. Zero lets the OS pick one.
	Port int

	// MaxBodyBytes limits request bodies. Zero means no limit.
	MaxBodyBytes int64

	// ShutdownTimeout bounds graceful shutdown. Defaults to 5 seconds.
	ShutdownTimeout time.Duration
}

// Server is the net/http transport behind the Rose net/http platform.
//
// Server buffers each request body, assigns a request ID, opens a tracing
// span and hands the request to its [HandlerFunc]. It implements
// [http.Handler], so it can also be mounted on an existing mux without
// calling [Server.Start].
type Server struct {
	cfg        Config
	handler    HandlerFunc
	logger     *slog.Logger
	tracer     trace.Tracer
	httpServer *http.Server
	addr       net.Addr
	done       chan struct{}
	stopOnce   sync.Once
}

// NewServer creates a new HTTP [Server].
//
// Parameters:
//   - cfg: listener and limits
//   - handler: called once per request
//   - logger: logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(cfg Config, handler HandlerFunc, logger *slog.Logger) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
		done:    make(chan struct{}),
	}
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown bounded by the
// configured shutdown timeout. [Server.Done] is closed once shutdown has
// finished.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.cfg.Port, err)
	}
	s.addr = ln.Addr()

	s.httpServer = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		// BaseContext derives all request contexts from the server context,
		// so handlers waiting for a dispatch slot give up on shutdown.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		<-ctx.Done()
		defer s.stopOnce.Do(func() { close(s.done) })

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	s.logger.Info("listening", "addr", s.addr.String())
	return nil
}

// Addr returns the address the server is bound to, or nil before Start.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Done returns a channel closed when graceful shutdown has completed.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := requestID(r)
	w.Header().Set(RequestIDHeader, id)

	// continue a trace started by the caller, if any
	parent := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := s.tracer.Start(parent, "rose.request",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", r.Method),
			attribute.String("url.path", r.URL.Path),
			attribute.String("rose.request_id", id),
		),
	)
	defer span.End()

	start := time.Now()
	logAttrs := []any{
		"request_id", id,
		"method", r.Method,
		"path", r.URL.Path,
	}

	body, err := s.readBody(w, r)
	if err != nil {
		status := http.StatusBadRequest
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			status = http.StatusRequestEntityTooLarge
		}
		s.logger.Warn("failed to read request body", append(logAttrs, "error", err.Error())...)
		span.SetStatus(codes.Error, "read body")
		s.writeReply(w, span, plainReply(status, http.StatusText(status)+"."))
		return
	}

	reply, err := s.handler(ctx, &Request{HTTP: r.WithContext(ctx), Body: body, ID: id})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusServiceUnavailable
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("request failed", append(logAttrs, "status", status, "error", err.Error())...)
		reply = errorReply(status)
	}

	s.writeReply(w, span, reply)
	s.logger.Debug("request completed", append(logAttrs,
		"status", statusOrOK(reply.Status),
		"latency_ms", time.Since(start).Milliseconds(),
	)...)
}

// readBody buffers the request body, enforcing the configured limit.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	reader := io.Reader(r.Body)
	if s.cfg.MaxBodyBytes > 0 {
		reader = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}
	return body, nil
}

func (s *Server) writeReply(w http.ResponseWriter, span trace.Span, reply Reply) {
	for k, v := range reply.Headers {
		w.Header().Set(k, v)
	}
	status := statusOrOK(reply.Status)
	span.SetAttributes(attribute.Int("http.response.status_code", status))

	w.WriteHeader(status)
	if _, err := w.Write(reply.Body); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

// requestID returns the client's X-Request-Id when usable, or a new UUID.
func requestID(r *http.Request) string {
	if id := r.Header.Get(RequestIDHeader); id != "" && len(id) <= maxRequestIDLength {
		return id
	}
	return uuid.NewString()
}

func plainReply(status int, body string) Reply {
	return Reply{
		Status:  status,
		Headers: map[string]string{"Content-Type": "text/plain"},
		Body:    []byte(body),
	}
}

func errorReply(status int) Reply {
	if status == http.StatusServiceUnavailable {
		return plainReply(status, "Service unavailable.")
	}
	return plainReply(status, "Internal server error.")
}

// NotFound is the reply written when no response was produced.
func NotFound() Reply {
	return plainReply(http.StatusNotFound, "Not found.")
}

func statusOrOK(status int) int {
	if status == 0 {
		return http.StatusOK
	}
	return status
}
