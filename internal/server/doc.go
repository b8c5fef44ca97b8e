// Package server provides the net/http transport used by the Rose net/http
// platform.
//
// This package is internal to Rose and handles all HTTP concerns around a
// dispatch:
//
//   - Listening: binds the port synchronously, serves in the background and
//     shuts down gracefully when the context is cancelled
//   - Request bodies: buffered in full (bounded by a size limit) before the
//     handler runs, so handlers never see a partially read body
//   - Correlation: every request gets an X-Request-Id and an OpenTelemetry
//     span
//   - Error mapping: handler errors become 500, or 503 when the request
//     context ended first
//
// The package knows nothing about events or state. The platform supplies a
// [HandlerFunc] that performs the dispatch and returns a [Reply].
package server
