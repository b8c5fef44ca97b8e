// Package config provides YAML configuration parsing for Rose.
//
// This package enables running a Rose application as a standalone binary
// with a configuration file, as an alternative to wiring handlers in Go.
// Every configured route answers with a templated response.
//
// Example configuration:
//
//	port: 3000
//	log_level: info
//
//	state:
//	  greeting: Hello
//
//	routes:
//	  - method: GET
//	    path: /hello/:who
//	    event: http.request.hello
//	    set:
//	      name: "{{.who}}"
//	    respond:
//	      type: plain
//	      body: "{{.greeting}}: {{.who}}"
//	      headers:
//	        X-Powered-By: rose
package config

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jpalmerr/rose"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort             = 3000
	defaultMaxDispatchDepth = 64
	defaultMaxBodyBytes     = 1 << 20
	defaultShutdownTimeout  = 5 * time.Second
	defaultLogLevel         = "info"
)

// Response types accepted in respond.type.
const (
	RespondPlain = "plain"
	RespondJSON  = "json"
)

// methods lists the HTTP methods a route may use.
var methods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodDelete,
	http.MethodPatch,
	http.MethodOptions,
	http.MethodHead,
	http.MethodTrace,
	http.MethodConnect,
}

// Config is the root configuration structure for a Rose application.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Port is the HTTP server port. Defaults to 3000.
	Port int `yaml:"port"`

	// MaxDispatchDepth bounds nested dispatches. Defaults to 64.
	MaxDispatchDepth int `yaml:"max_dispatch_depth"`

	// MaxBodyBytes limits request bodies. Defaults to 1MB.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// ShutdownTimeout bounds graceful shutdown.
	// Accepts duration strings like "10s", "1m", "500ms".
	// Defaults to 5s.
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`

	// LogLevel is one of debug, info, warn, error. Defaults to info.
	LogLevel string `yaml:"log_level"`

	// State holds the initial application values. They are available to
	// every template.
	State map[string]any `yaml:"state"`

	// Routes are registered in order; the first matching route wins.
	Routes []RouteConfig `yaml:"routes"`
}

// RouteConfig binds a route to a templated response.
type RouteConfig struct {
	// Method is the HTTP method. Case-insensitive, stored upper case.
	Method string `yaml:"method"`

	// Path is the route pattern; ":name" segments capture parameters.
	Path string `yaml:"path"`

	// Event is the application event the route dispatches.
	Event string `yaml:"event"`

	// Set maps state keys to templates. Rendered values are stored in the
	// application state before the response is rendered.
	Set map[string]string `yaml:"set"`

	// Respond describes the response.
	Respond RespondConfig `yaml:"respond"`
}

// RespondConfig describes a templated response.
type RespondConfig struct {
	// Type is "plain" (default) or "json". A json body must render to
	// valid JSON; an empty json body is written as "{}".
	Type string `yaml:"type"`

	// Status is the HTTP status. Defaults to 200.
	Status int `yaml:"status"`

	// Body is a Go template. Route parameters and state values are
	// available as {{.name}}; parameters win on conflicts.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	Body string `yaml:"body"`

	// Headers are added to the response.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envOverrides are read from the process environment after the YAML file.
// Unset variables leave the pointers nil.
type envOverrides struct {
	Port             *int    `env:"ROSE_PORT"`
	LogLevel         *string `env:"ROSE_LOG_LEVEL"`
	MaxDispatchDepth *int    `env:"ROSE_MAX_DISPATCH_DEPTH"`
	MaxBodyBytes     *int64  `env:"ROSE_MAX_BODY_BYTES"`
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// already have an error, skip processing
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Defaults are applied first, then ROSE_* environment overrides, then
// ${VAR} expansion and validation.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.MaxDispatchDepth == 0 {
		c.MaxDispatchDepth = defaultMaxDispatchDepth
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = defaultMaxBodyBytes
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = Duration(defaultShutdownTimeout)
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
}

// applyEnv overrides settings with ROSE_* environment variables.
func (c *Config) applyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	if o.Port != nil {
		c.Port = *o.Port
	}
	if o.LogLevel != nil {
		c.LogLevel = *o.LogLevel
	}
	if o.MaxDispatchDepth != nil {
		c.MaxDispatchDepth = *o.MaxDispatchDepth
	}
	if o.MaxBodyBytes != nil {
		c.MaxBodyBytes = *o.MaxBodyBytes
	}
	return nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.MaxDispatchDepth < 1 {
		return fmt.Errorf("max_dispatch_depth must be positive, got %d", c.MaxDispatchDepth)
	}
	if c.MaxBodyBytes < 1 {
		return fmt.Errorf("max_body_bytes must be positive, got %d", c.MaxBodyBytes)
	}
	if c.ShutdownTimeout.Duration() <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive, got %s", c.ShutdownTimeout.Duration())
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}

	events := make(map[string]int, len(c.Routes))
	for i := range c.Routes {
		r := &c.Routes[i]
		ctx := fmt.Sprintf("routes[%d]", i)

		r.Method = strings.ToUpper(strings.TrimSpace(r.Method))
		if r.Method == "" {
			return fmt.Errorf("%s: method is required", ctx)
		}
		if !knownMethod(r.Method) {
			return fmt.Errorf("%s: unsupported method %q", ctx, r.Method)
		}

		if !strings.HasPrefix(r.Path, "/") {
			return fmt.Errorf("%s (%s): path must start with /", ctx, r.Path)
		}
		ctx = fmt.Sprintf("%s (%s %s)", ctx, r.Method, r.Path)

		if r.Event == "" {
			return fmt.Errorf("%s: event is required", ctx)
		}
		if strings.HasPrefix(r.Event, rose.MetaPrefix) {
			return fmt.Errorf("%s: event %q must not start with %q", ctx, r.Event, rose.MetaPrefix)
		}
		if builtinEvent(r.Event) {
			return fmt.Errorf("%s: event %q is reserved for the built-in handlers", ctx, r.Event)
		}
		if prev, exists := events[r.Event]; exists {
			return fmt.Errorf("%s: event %q already used by routes[%d]", ctx, r.Event, prev)
		}
		events[r.Event] = i

		for k, v := range r.Set {
			if k == "" {
				return fmt.Errorf("%s: set keys must not be empty", ctx)
			}
			// fail fast before a request renders an invalid template
			if _, err := template.New("").Parse(v); err != nil {
				return fmt.Errorf("%s: set[%s]: invalid template: %w", ctx, k, err)
			}
		}

		if err := r.Respond.expandAndValidate(ctx); err != nil {
			return err
		}
	}

	return nil
}

// builtinEvent reports whether event already has a framework subscriber that
// a route subscriber would collide with.
func builtinEvent(event string) bool {
	switch event {
	case rose.EventRequest, rose.EventResponsePlain, rose.EventResponseJSON:
		return true
	}
	return false
}

func (rc *RespondConfig) expandAndValidate(ctx string) error {
	switch rc.Type {
	case "":
		rc.Type = RespondPlain
	case RespondPlain, RespondJSON:
	default:
		return fmt.Errorf("%s: respond type must be %q or %q, got %q", ctx, RespondPlain, RespondJSON, rc.Type)
	}

	if rc.Status != 0 && (rc.Status < 100 || rc.Status > 599) {
		return fmt.Errorf("%s: respond status must be between 100 and 599, got %d", ctx, rc.Status)
	}

	body, err := expandEnvVars(rc.Body)
	if err != nil {
		return fmt.Errorf("%s: respond body: %w", ctx, err)
	}
	rc.Body = body
	if _, err := template.New("").Parse(rc.Body); err != nil {
		return fmt.Errorf("%s: invalid respond body template: %w", ctx, err)
	}

	for k, v := range rc.Headers {
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("%s: respond headers[%s]: %w", ctx, k, err)
		}
		rc.Headers[k] = expanded
	}

	return nil
}

func knownMethod(method string) bool {
	for _, m := range methods {
		if m == method {
			return true
		}
	}
	return false
}

// Level returns the configured log level.
func (c *Config) Level() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", s)
	}
}
