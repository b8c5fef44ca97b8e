// Package router provides the route table and the path matcher used to pick
// the application event for an HTTP request.
//
// This package is internal to Rose. A [Table] is an ordered, append-only
// list of [Route] values. [Match] scans routes in registration order and
// returns the first whose method equals the request method and whose
// pattern structurally matches the path:
//
//   - pattern and path are split on "/" and must have the same number of
//     segments (no trailing-slash normalization)
//   - every pattern segment is either identical to the path segment or a
//     parameter segment starting with ":"
//
// [Params] extracts parameter segments into a map. Matching is
// O(routes × segments), which suits the small static tables Rose targets.
package router
