// Package main is the entry point for the rose CLI.
//
// Rose can be used either as a library or as a standalone binary serving
// routes declared in a YAML configuration. This CLI provides the standalone
// binary approach.
//
// Usage:
//
//	rose serve -c rose.yaml    # Start the server
//	rose validate -c rose.yaml # Validate configuration
//	rose routes -c rose.yaml   # Print the route table
//	rose version               # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "rose",
	Short: "An event-driven web framework over immutable state",
	Long: `Rose serves HTTP routes through a synchronous event bus.

Every request is dispatched as an event, routed to an application event,
and answered by a handler that folds a response into the application state.

Quick start:
  1. Create a config file (rose.yaml)
  2. Run: rose serve -c rose.yaml
  3. Open http://localhost:3000/hello/world

Example config:
  port: 3000
  state:
    greeting: Hello
  routes:
    - method: GET
      path: /hello/:who
      event: http.request.hello
      respond:
        body: "{{.greeting}}: {{.who}}"`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this rose binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rose %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
