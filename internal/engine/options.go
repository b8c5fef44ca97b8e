package engine

import (
	"errors"
	"log/slog"
)

// DefaultMaxDepth is the maximum nesting of chained dispatches used when no
// [WithMaxDepth] option is given.
const DefaultMaxDepth = 64

// config holds mutable state during Engine construction.
type config struct {
	maxDepth int
	logger   *slog.Logger
}

// Option configures an [Engine] during construction.
type Option func(*config) error

// WithMaxDepth sets the maximum nesting depth of chained dispatches.
//
// The outermost dispatch runs at depth zero; every dispatch instruction and
// every meta-event adds one level. Returns an error if n is not positive.
func WithMaxDepth(n int) Option {
	return func(cfg *config) error {
		if n <= 0 {
			return errors.New("max dispatch depth must be positive")
		}
		cfg.maxDepth = n
		return nil
	}
}

// WithLogger sets the logger used for dispatch tracing and panic reports.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}
