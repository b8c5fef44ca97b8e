package config

import (
	"errors"
	"io"
	"log/slog"
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/jpalmerr/rose"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func buildApp(t *testing.T, yaml string) *rose.App {
	t.Helper()
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	app, err := Build(cfg, rose.WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return app
}

func get(t *testing.T, app *rose.App, method, path string) *rose.State {
	t.Helper()
	u, err := url.Parse("http://localhost" + path)
	if err != nil {
		t.Fatalf("url.Parse() error = %v", err)
	}
	if err := app.Dispatch(rose.EventRequest, &rose.Request{URL: u, Method: method}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	return app.State()
}

func TestBuild_AppSettings(t *testing.T) {
	app := buildApp(t, `
port: 3222
state:
  greeting: Hello
routes:
  - method: GET
    path: /a
    event: http.request.a
  - method: post
    path: /b/:id
    event: http.request.b
`)

	if app.Port() != 3222 {
		t.Errorf("Port() = %d, want 3222", app.Port())
	}
	if greeting, _ := rose.Lookup[string](app.State(), "greeting"); greeting != "Hello" {
		t.Errorf("initial greeting = %q, want Hello", greeting)
	}

	want := []rose.Route{
		{Method: "GET", Pattern: "/a", Event: "http.request.a"},
		{Method: "POST", Pattern: "/b/:id", Event: "http.request.b"},
	}
	if got := app.Routes(); !reflect.DeepEqual(got, want) {
		t.Errorf("Routes() = %+v, want %+v", got, want)
	}
}

func TestBuild_PlainResponse(t *testing.T) {
	app := buildApp(t, `
state:
  greeting: Hello
routes:
  - method: GET
    path: /hello/:who
    event: http.request.hello
    set:
      name: "{{.who}}"
    respond:
      body: "{{.greeting}}: {{.who}}"
      headers:
        X-Powered-By: rose
`)

	state := get(t, app, "GET", "/hello/world")

	resp := state.Response()
	if resp == nil {
		t.Fatal("Response() = nil")
	}
	if string(resp.Body) != "Hello: world" {
		t.Errorf("Body = %q, want %q", resp.Body, "Hello: world")
	}
	if resp.Status != 200 {
		t.Errorf("Status = %d, want 200", resp.Status)
	}
	wantHeaders := map[string]string{"Content-Type": "text/plain", "X-Powered-By": "rose"}
	if !reflect.DeepEqual(resp.Headers, wantHeaders) {
		t.Errorf("Headers = %v, want %v", resp.Headers, wantHeaders)
	}

	if name, _ := rose.Lookup[string](state, "name"); name != "world" {
		t.Errorf("state name = %q, want world", name)
	}
}

func TestBuild_SetValuesVisibleToBody(t *testing.T) {
	app := buildApp(t, `
routes:
  - method: GET
    path: /greet/:who
    event: http.request.greet
    set:
      last: "{{.who}}"
    respond:
      body: "last={{.last}}"
`)

	state := get(t, app, "GET", "/greet/ada")
	if got := string(state.Response().Body); got != "last=ada" {
		t.Errorf("Body = %q, want %q", got, "last=ada")
	}
}

func TestBuild_ParamsOverrideState(t *testing.T) {
	app := buildApp(t, `
state:
  who: nobody
routes:
  - method: GET
    path: /hello/:who
    event: http.request.hello
    respond:
      body: "{{.who}}"
`)

	state := get(t, app, "GET", "/hello/somebody")
	if got := string(state.Response().Body); got != "somebody" {
		t.Errorf("Body = %q, want params to win", got)
	}
}

func TestBuild_JSONResponse(t *testing.T) {
	app := buildApp(t, `
routes:
  - method: GET
    path: /items/:id
    event: http.request.item
    respond:
      type: json
      status: 202
      body: '{"id":"{{.id}}"}'
  - method: GET
    path: /empty
    event: http.request.empty
    respond:
      type: json
`)

	state := get(t, app, "GET", "/items/7")
	resp := state.Response()
	if string(resp.Body) != `{"id":"7"}` || resp.Status != 202 {
		t.Errorf("Response() = %d %s, want 202 {\"id\":\"7\"}", resp.Status, resp.Body)
	}
	if resp.Headers["Content-Type"] != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", resp.Headers["Content-Type"])
	}

	state = get(t, app, "GET", "/empty")
	if string(state.Response().Body) != "{}" {
		t.Errorf("empty json body = %s, want {}", state.Response().Body)
	}
}

func TestBuild_InvalidRenderedJSONFails(t *testing.T) {
	cfg, err := Parse([]byte(`
routes:
  - method: GET
    path: /broken
    event: http.request.broken
    respond:
      type: json
      body: "not json"
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	app, err := Build(cfg, rose.WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	u, _ := url.Parse("http://localhost/broken")
	err = app.Dispatch(rose.EventRequest, &rose.Request{URL: u, Method: "GET"})
	if !errors.Is(err, rose.ErrHandler) {
		t.Errorf("Dispatch() error = %v, want ErrHandler", err)
	}
}

func TestBuild_MissingTemplateKeyFails(t *testing.T) {
	cfg, err := Parse([]byte(`
routes:
  - method: GET
    path: /hello
    event: http.request.hello
    respond:
      body: "{{.nobody}}"
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	app, err := Build(cfg, rose.WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	u, _ := url.Parse("http://localhost/hello")
	err = app.Dispatch(rose.EventRequest, &rose.Request{URL: u, Method: "GET"})
	if !errors.Is(err, rose.ErrHandler) {
		t.Errorf("Dispatch() error = %v, want ErrHandler", err)
	}
}

func TestBuild_UnmatchedRouteIsNotFound(t *testing.T) {
	app := buildApp(t, `
routes:
  - method: GET
    path: /only
    event: http.request.only
`)

	state := get(t, app, "GET", "/other")
	if state.Response() != nil || !state.NotFound() {
		t.Errorf("state = response %v notFound %v, want not found", state.Response(), state.NotFound())
	}
}

func TestBuild_InvalidOptions(t *testing.T) {
	// bypass Parse validation to exercise option errors
	cfg := &Config{Port: 0, MaxDispatchDepth: 64, MaxBodyBytes: 1, ShutdownTimeout: Duration(time.Second)}

	if _, err := Build(cfg); err == nil {
		t.Error("Build() with invalid port should fail")
	}
}

func TestInstall_InvalidTemplate(t *testing.T) {
	app, err := rose.New(rose.WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	cfg := &Config{Routes: []RouteConfig{{
		Method:  "GET",
		Path:    "/",
		Event:   "e",
		Respond: RespondConfig{Body: "{{.x"},
	}}}
	if err := Install(app, cfg); err == nil {
		t.Error("Install() with an invalid template should fail")
	}
	if len(app.Routes()) != 0 {
		t.Error("failed Install() should not register the route")
	}
}

func TestTemplateData(t *testing.T) {
	state := rose.NewState(map[string]any{"a": "state", "b": 2})
	data := templateData(state, rose.Params{"a": "param"})

	want := map[string]any{"a": "param", "b": 2}
	if !reflect.DeepEqual(data, want) {
		t.Errorf("templateData() = %v, want %v", data, want)
	}
	if v, _ := state.Value("a"); v != "state" {
		t.Error("templateData() modified the state")
	}
}
