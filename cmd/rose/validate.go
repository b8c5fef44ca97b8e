package main

import (
	"fmt"

	"github.com/jpalmerr/rose/config"
	"github.com/spf13/cobra"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a Rose configuration file without starting the server.

This command parses the YAML, applies ROSE_* environment overrides, expands
environment variables, and validates all fields and templates. It's useful
for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  rose validate -c rose.yaml
  rose validate --config /etc/rose/rose.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Port:               %d\n", cfg.Port)
	fmt.Printf("  Log level:          %s\n", cfg.LogLevel)
	fmt.Printf("  Max dispatch depth: %d\n", cfg.MaxDispatchDepth)
	fmt.Printf("  Max body bytes:     %d\n", cfg.MaxBodyBytes)
	fmt.Printf("  Shutdown timeout:   %s\n", cfg.ShutdownTimeout.Duration())
	fmt.Printf("  Routes:             %d\n", len(cfg.Routes))

	return nil
}
