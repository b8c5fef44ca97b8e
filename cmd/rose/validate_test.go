package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jpalmerr/rose"
)

// executeCmd runs a subcommand with the given config path and returns
// captured stdout and any error.
func executeCmd(t *testing.T, subcommand, configPath string) (string, error) {
	t.Helper()

	// capture stdout
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	// execute via root command with the subcommand
	rootCmd.SetArgs([]string{subcommand, "-c", configPath})
	err := rootCmd.Execute()

	// restore stdout
	_ = w.Close()
	os.Stdout = old
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)

	return buf.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "rose.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return configPath
}

func TestRunValidate_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
port: 3222
shutdown_timeout: 10s
routes:
  - method: GET
    path: /hello/:who
    event: http.request.hello
    respond:
      body: "Hello: {{.who}}"
  - method: POST
    path: /items
    event: http.request.items
    respond:
      type: json
`)

	output, err := executeCmd(t, "validate", configPath)
	if err != nil {
		t.Fatalf("validate command error = %v", err)
	}

	expectedPhrases := []string{
		"Config is valid!",
		"Port:               3222",
		"Shutdown timeout:   10s",
		"Routes:             2",
	}

	for _, phrase := range expectedPhrases {
		if !strings.Contains(output, phrase) {
			t.Errorf("output missing %q\nGot: %s", phrase, output)
		}
	}
}

func TestRunValidate_InvalidConfig(t *testing.T) {
	configPath := writeConfig(t, `
routes:
  - method: GET
    path: /hello
`)

	_, err := executeCmd(t, "validate", configPath)
	if err == nil {
		t.Fatal("validate command expected error for invalid config, got nil")
	}

	if !strings.Contains(err.Error(), "event is required") {
		t.Errorf("error should mention 'event is required', got: %v", err)
	}
}

func TestRunValidate_MissingFile(t *testing.T) {
	_, err := executeCmd(t, "validate", "/nonexistent/path/rose.yaml")
	if err == nil {
		t.Fatal("validate command expected error for missing file, got nil")
	}

	if !strings.Contains(err.Error(), "failed to read") {
		t.Errorf("error should mention 'failed to read', got: %v", err)
	}
}

func TestRunRoutes_MarksShadowedRoutes(t *testing.T) {
	configPath := writeConfig(t, `
routes:
  - method: GET
    path: /users/:id
    event: http.request.user
  - method: POST
    path: /users/:id
    event: http.request.user.update
  - method: GET
    path: /users/:id
    event: http.request.user.again
`)

	output, err := executeCmd(t, "routes", configPath)
	if err != nil {
		t.Fatalf("routes command error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want header + 3 routes\nGot: %s", len(lines), output)
	}
	if strings.Contains(lines[1], "(shadowed)") || strings.Contains(lines[2], "(shadowed)") {
		t.Errorf("only the last route should be shadowed\nGot: %s", output)
	}
	if !strings.Contains(lines[3], "http.request.user.again") || !strings.Contains(lines[3], "(shadowed)") {
		t.Errorf("last route should be marked shadowed, got: %q", lines[3])
	}
}

func TestPrintRoutes(t *testing.T) {
	var buf bytes.Buffer
	printRoutes(&buf, []rose.Route{
		{Method: "GET", Pattern: "/", Event: "http.request.root"},
	}, []bool{false})

	out := buf.String()
	for _, phrase := range []string{"METHOD", "GET", "/", "http.request.root"} {
		if !strings.Contains(out, phrase) {
			t.Errorf("output missing %q\nGot: %s", phrase, out)
		}
	}
	if strings.Contains(out, "(shadowed)") {
		t.Errorf("unexpected shadowed marker\nGot: %s", out)
	}
}
