package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"text/template"

	"github.com/jpalmerr/rose"
)

// Options converts parsed configuration into app options.
func Options(cfg *Config) []rose.Option {
	return []rose.Option{
		rose.WithPort(cfg.Port),
		rose.WithMaxDispatchDepth(cfg.MaxDispatchDepth),
		rose.WithMaxBodyBytes(cfg.MaxBodyBytes),
		rose.WithShutdownTimeout(cfg.ShutdownTimeout.Duration()),
		rose.WithInitialState(rose.NewState(cfg.State)),
	}
}

// Build creates an [rose.App] from cfg and installs its routes.
//
// opts are applied after the configured options, so callers can add a
// logger or platform.
func Build(cfg *Config, opts ...rose.Option) (*rose.App, error) {
	app, err := rose.New(append(Options(cfg), opts...)...)
	if err != nil {
		return nil, err
	}
	if err := Install(app, cfg); err != nil {
		return nil, err
	}
	return app, nil
}

// Install registers every configured route on app and subscribes a handler
// that renders its response.
func Install(app *rose.App, cfg *Config) error {
	for i, rc := range cfg.Routes {
		handler, err := buildHandler(rc)
		if err != nil {
			return fmt.Errorf("routes[%d] (%s %s): %w", i, rc.Method, rc.Path, err)
		}
		app.Handle(rc.Method, rc.Path, rc.Event)
		app.Subscribe(rc.Event, handler)
	}
	return nil
}

// setter renders one state value.
type setter struct {
	key  string
	tmpl *template.Template
}

// buildHandler compiles a route's templates into a [rose.Handler].
func buildHandler(rc RouteConfig) (rose.Handler, error) {
	// use missingkey=error to fail fast on missing template variables
	body, err := template.New("body").Option("missingkey=error").Parse(rc.Respond.Body)
	if err != nil {
		return nil, err
	}

	// sort keys for deterministic ordering
	keys := make([]string, 0, len(rc.Set))
	for k := range rc.Set {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	setters := make([]setter, 0, len(keys))
	for _, k := range keys {
		tmpl, err := template.New(k).Option("missingkey=error").Parse(rc.Set[k])
		if err != nil {
			return nil, fmt.Errorf("set[%s]: %w", k, err)
		}
		setters = append(setters, setter{key: k, tmpl: tmpl})
	}

	event := rose.EventResponsePlain
	if rc.Respond.Type == RespondJSON {
		event = rose.EventResponseJSON
	}
	respond := rc.Respond

	return func(state *rose.State, payload any) (rose.Result, error) {
		params, _ := payload.(rose.Params)

		next := state
		data := templateData(next, params)
		for _, s := range setters {
			v, err := render(s.tmpl, data)
			if err != nil {
				return rose.Result{}, fmt.Errorf("set %s: %w", s.key, err)
			}
			next = next.WithValue(s.key, v)
		}
		if len(setters) > 0 {
			data = templateData(next, params)
		}

		text, err := render(body, data)
		if err != nil {
			return rose.Result{}, fmt.Errorf("render body: %w", err)
		}

		out := rose.ResponseData{Status: respond.Status, Headers: respond.Headers}
		switch {
		case event == rose.EventResponsePlain:
			out.Body = text
		case text != "":
			out.Body = json.RawMessage(text)
		}

		return rose.Then(next, event, out)
	}, nil
}

// templateData merges route params over state values.
func templateData(state *rose.State, params rose.Params) map[string]any {
	data := state.Values()
	for k, v := range params {
		data[k] = v
	}
	return data
}

func render(tmpl *template.Template, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
