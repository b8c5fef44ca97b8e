package router

import "strings"

// paramPrefix marks a parameter segment in a path pattern.
const paramPrefix = ":"

// Route binds an HTTP method and path pattern to the event dispatched when a
// request matches.
type Route struct {
	// Method is compared against the request method by exact string match.
	Method string `json:"method"`

	// Pattern is a "/"-separated path of literal and ":name" segments.
	Pattern string `json:"pattern"`

	// Event is the application event dispatched on a match.
	Event string `json:"event"`
}

// Table is an ordered, append-only collection of routes.
//
// The zero value is an empty table ready for use. Table is not safe for
// concurrent use; it is populated during setup and read-only afterwards.
type Table struct {
	routes []Route
}

// Register appends a route to the table.
//
// Duplicates are accepted. shadowed reports whether an earlier route with the
// same method and pattern already exists, in which case the new route can
// never be matched.
func (t *Table) Register(method, pattern, event string) (shadowed bool) {
	for _, r := range t.routes {
		if r.Method == method && r.Pattern == pattern {
			shadowed = true
			break
		}
	}
	t.routes = append(t.routes, Route{Method: method, Pattern: pattern, Event: event})
	return shadowed
}

// Routes returns a copy of the registered routes in registration order.
func (t *Table) Routes() []Route {
	cp := make([]Route, len(t.routes))
	copy(cp, t.routes)
	return cp
}

// Len returns the number of registered routes.
func (t *Table) Len() int {
	return len(t.routes)
}

// Match finds the first route matching pathname and method and extracts its
// parameters.
func (t *Table) Match(pathname, method string) (Route, map[string]string, bool) {
	route, ok := Match(t.routes, pathname, method)
	if !ok {
		return Route{}, nil, false
	}
	return route, Params(route, pathname), true
}

// Shadowed reports, for each route in registration order, whether an earlier
// route with the same method and pattern makes it unreachable.
func (t *Table) Shadowed() []bool {
	result := make([]bool, len(t.routes))
	seen := make(map[Route]struct{}, len(t.routes))
	for i, r := range t.routes {
		key := Route{Method: r.Method, Pattern: r.Pattern}
		if _, ok := seen[key]; ok {
			result[i] = true
			continue
		}
		seen[key] = struct{}{}
	}
	return result
}

// Match returns the first route in routes whose method equals method and
// whose pattern matches pathname.
func Match(routes []Route, pathname, method string) (Route, bool) {
	path := strings.Split(pathname, "/")

	for _, r := range routes {
		if r.Method != method {
			continue
		}
		if segmentsMatch(strings.Split(r.Pattern, "/"), path) {
			return r, true
		}
	}
	return Route{}, false
}

// segmentsMatch reports whether every pattern segment is a parameter or
// equals the path segment at the same position.
func segmentsMatch(pattern, path []string) bool {
	if len(pattern) != len(path) {
		return false
	}
	for i, seg := range pattern {
		if strings.HasPrefix(seg, paramPrefix) {
			continue
		}
		if seg != path[i] {
			return false
		}
	}
	return true
}

// Params extracts the parameter segments of route from pathname.
//
// Parameters are collected left to right; when a name repeats, the later
// segment wins. Path segments beyond the pattern's length are ignored.
func Params(route Route, pathname string) map[string]string {
	pattern := strings.Split(route.Pattern, "/")
	path := strings.Split(pathname, "/")

	params := make(map[string]string)
	for i, seg := range pattern {
		if !strings.HasPrefix(seg, paramPrefix) || i >= len(path) {
			continue
		}
		params[strings.TrimPrefix(seg, paramPrefix)] = path[i]
	}
	return params
}
