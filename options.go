package rose

import (
	"errors"
	"log/slog"
	"time"
)

// appConfig holds mutable state during App construction.
type appConfig struct {
	platform        Platform
	initialState    *State
	port            int
	maxDepth        int
	maxBodyBytes    int64
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// Option is a function that configures an [App] during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
type Option func(*appConfig) error

// WithPlatform selects the [Platform] that feeds requests into the app.
//
// Defaults to [NetHTTP] if not specified. Returns an error if p is nil.
func WithPlatform(p Platform) Option {
	return func(cfg *appConfig) error {
		if p == nil {
			return errors.New("platform cannot be nil")
		}
		cfg.platform = p
		return nil
	}
}

// WithInitialState sets the snapshot the app starts from.
//
// Example:
//
//	app, err := rose.New(
//	    rose.WithInitialState(rose.NewState(map[string]any{"name": nil})),
//	)
//
// Returns an error if s is nil.
func WithInitialState(s *State) Option {
	return func(cfg *appConfig) error {
		if s == nil {
			return errors.New("initial state cannot be nil")
		}
		cfg.initialState = s
		return nil
	}
}

// WithPort sets the TCP port the platform listens on.
//
// Defaults to 3000 if not specified. Returns an error if the port is outside
// the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *appConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithMaxDispatchDepth sets how deep chained dispatches may nest before
// [App.Dispatch] fails with [CyclicDispatchError].
//
// Every dispatch instruction and every meta-event adds one level. Defaults to
// 64. Returns an error if n is zero or negative.
func WithMaxDispatchDepth(n int) Option {
	return func(cfg *appConfig) error {
		if n <= 0 {
			return errors.New("max dispatch depth must be positive")
		}
		cfg.maxDepth = n
		return nil
	}
}

// WithMaxBodyBytes limits the size of request bodies buffered by the
// platform. Larger requests are rejected with 413 before any event is
// dispatched.
//
// Defaults to 1MB. Returns an error if n is zero or negative.
func WithMaxBodyBytes(n int64) Option {
	return func(cfg *appConfig) error {
		if n <= 0 {
			return errors.New("max body bytes must be positive")
		}
		cfg.maxBodyBytes = n
		return nil
	}
}

// WithShutdownTimeout sets how long in-flight requests may take to finish
// once the serve context is cancelled.
//
// Defaults to 5 seconds. Returns an error if d is zero or negative.
func WithShutdownTimeout(d time.Duration) Option {
	return func(cfg *appConfig) error {
		if d <= 0 {
			return errors.New("shutdown timeout must be positive")
		}
		cfg.shutdownTimeout = d
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the App and its platform.
//
// If not specified, [slog.Default] is used. Returns an error if the logger
// is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *appConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}
