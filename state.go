package rose

import "net/url"

// Request is the normalized HTTP request stored at state.http.request.
//
// Requests are shared between snapshots; treat every field as read-only.
type Request struct {
	// URL is the absolute request URL.
	URL *url.URL

	// Method is the HTTP method, e.g. "GET".
	Method string

	// Header holds the first value of every request header, keyed by the
	// canonical header name.
	Header map[string]string

	// Body is the fully buffered request body. Nil when the request had none.
	Body []byte

	// RemoteAddr is the network address of the client, if known.
	RemoteAddr string

	// ID correlates the request across logs, traces and the X-Request-Id
	// response header.
	ID string
}

// Path returns the escaped path used for routing, or "" when URL is nil.
//
// The escaped form keeps "%2F" inside a segment from being read as a
// separator; parameter values reach handlers still escaped.
func (r *Request) Path() string {
	if r == nil || r.URL == nil {
		return ""
	}
	return r.URL.EscapedPath()
}

// Response is the response stored at state.http.response.
type Response struct {
	// Body is the encoded response body.
	Body []byte

	// Status is the HTTP status code. Zero is written as 200.
	Status int

	// Headers are the response headers.
	Headers map[string]string
}

// HTTP is the state.http branch of a [State].
//
// Response and NotFound together distinguish three outcomes:
//   - Response == nil, NotFound == false: no response computed yet
//   - Response == nil, NotFound == true: routing found no matching route
//   - Response != nil: a handler produced a response
type HTTP struct {
	Request  *Request
	Response *Response
	NotFound bool
}

// State is an immutable application snapshot.
//
// State is always handled through a pointer. Fields are unexported; every
// With method returns a new *State that shares all unchanged parts with its
// receiver, so a snapshot can be held onto safely while newer ones are
// produced. A nil *State behaves like an empty state.
//
// Applications extend the state with keyed values:
//
//	next := state.WithValue("name", params["who"])
//	name, ok := rose.Lookup[string](next, "name")
type State struct {
	http   *HTTP
	values map[string]any
}

// NewState creates a [State] holding a copy of values.
func NewState(values map[string]any) *State {
	s := &State{}
	if len(values) > 0 {
		s.values = make(map[string]any, len(values))
		for k, v := range values {
			s.values[k] = v
		}
	}
	return s
}

// HTTP returns the state.http branch. ok is false until a request has been
// normalized into the state.
func (s *State) HTTP() (h HTTP, ok bool) {
	if s == nil || s.http == nil {
		return HTTP{}, false
	}
	return *s.http, true
}

// Request returns the current request, or nil.
func (s *State) Request() *Request {
	if s == nil || s.http == nil {
		return nil
	}
	return s.http.Request
}

// Response returns the current response, or nil when none was produced.
func (s *State) Response() *Response {
	if s == nil || s.http == nil {
		return nil
	}
	return s.http.Response
}

// NotFound reports whether routing found no route for the current request.
func (s *State) NotFound() bool {
	if s == nil || s.http == nil {
		return false
	}
	return s.http.NotFound
}

// WithHTTP returns a copy of s with the state.http branch replaced by h.
func (s *State) WithHTTP(h HTTP) *State {
	next := s.clone()
	next.http = &h
	return next
}

// WithRequest returns a copy of s whose state.http branch holds only req.
// Any previous response or not-found marker is dropped.
func (s *State) WithRequest(req *Request) *State {
	return s.WithHTTP(HTTP{Request: req})
}

// WithResponse returns a copy of s with resp set as the response. The
// current request is kept and the not-found marker is cleared.
func (s *State) WithResponse(resp *Response) *State {
	h, _ := s.HTTP()
	h.Response = resp
	h.NotFound = false
	return s.WithHTTP(h)
}

// WithNotFound returns a copy of s marked as having no matching route.
func (s *State) WithNotFound() *State {
	h, _ := s.HTTP()
	h.Response = nil
	h.NotFound = true
	return s.WithHTTP(h)
}

// Value returns the application value stored under key.
func (s *State) Value(key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.values[key]
	return v, ok
}

// Values returns a copy of all application values.
func (s *State) Values() map[string]any {
	if s == nil || len(s.values) == 0 {
		return map[string]any{}
	}
	cp := make(map[string]any, len(s.values))
	for k, v := range s.values {
		cp[k] = v
	}
	return cp
}

// WithValue returns a copy of s with key set to v.
func (s *State) WithValue(key string, v any) *State {
	next := s.clone()
	next.values = make(map[string]any, len(next.values)+1)
	if s != nil {
		for k, old := range s.values {
			next.values[k] = old
		}
	}
	next.values[key] = v
	return next
}

// WithoutValue returns a copy of s without key. It returns s itself when key
// is not present.
func (s *State) WithoutValue(key string) *State {
	if _, ok := s.Value(key); !ok {
		return s
	}
	next := s.clone()
	next.values = make(map[string]any, len(s.values)-1)
	for k, v := range s.values {
		if k != key {
			next.values[k] = v
		}
	}
	return next
}

// clone returns a shallow copy of s; the values map and http branch are
// shared until replaced.
func (s *State) clone() *State {
	if s == nil {
		return &State{}
	}
	cp := *s
	return &cp
}

// Lookup returns the value stored under key if it exists and has type T.
func Lookup[T any](s *State, key string) (T, bool) {
	var zero T
	v, ok := s.Value(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
