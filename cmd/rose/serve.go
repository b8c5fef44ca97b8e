package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/rose"
	"github.com/jpalmerr/rose/config"
	"github.com/jpalmerr/rose/internal/telemetry"
	"github.com/spf13/cobra"
)

// shutdownGrace is added to the configured shutdown timeout before the CLI
// stops waiting for the server.
const shutdownGrace = 2 * time.Second

// newLogger creates a JSON logger for CLI use.
func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// serveCmd starts the Rose server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the server",
	Long: `Start a Rose server from a YAML configuration.

The server will:
  - Load configuration from the specified YAML file
  - Register every configured route and its templated response
  - Serve HTTP on the configured port

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  rose serve -c rose.yaml
  rose serve --config /etc/rose/rose.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg.Level())
	logger.Info("config loaded",
		"routes", len(cfg.Routes),
		"state_values", len(cfg.State),
	)

	app, err := config.Build(cfg, rose.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, tracing, err := telemetry.Setup(ctx, "rose", version)
	if err != nil {
		return err
	}
	if tracing {
		logger.Info("tracing enabled", "endpoint", os.Getenv(telemetry.EndpointEnv))
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("failed to flush traces", "error", err)
		}
	}()

	// start server - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Serve(ctx)
	}()

	// wait for server to finish
	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		timeout := cfg.ShutdownTimeout.Duration() + shutdownGrace
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(timeout):
			logger.Warn("shutdown timed out",
				"timeout", timeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
