// Package telemetry configures OpenTelemetry tracing for the rose binary.
//
// Library users install their own tracer provider; the internal/server
// spans use whatever global provider is registered.
package telemetry
