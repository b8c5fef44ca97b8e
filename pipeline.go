package rose

// route is the built-in "$.http.request" subscriber.
//
// It runs after the platform has normalized the request into state.http and
// matches it against the route table. No match marks the state as not found;
// a match chains into the route's event with the extracted [Params]. The
// router never computes a response itself.
func (a *App) route(state *State, _ any) (Result, error) {
	req := state.Request()
	if req == nil {
		return Next(state)
	}

	route, params, ok := a.routes.Match(req.Path(), req.Method)
	if !ok {
		a.logger.Debug("no route matched",
			"request_id", req.ID,
			"method", req.Method,
			"path", req.Path(),
		)
		return Next(state.WithNotFound())
	}

	a.logger.Debug("route matched",
		"request_id", req.ID,
		"method", req.Method,
		"pattern", route.Pattern,
		"event", route.Event,
	)
	return Then(state, route.Event, Params(params))
}
