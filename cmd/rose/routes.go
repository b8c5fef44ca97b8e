package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/jpalmerr/rose"
	"github.com/jpalmerr/rose/config"
	"github.com/spf13/cobra"
)

// routesCmd prints the route table of a config file.
var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the route table",
	Long: `Print the routes of a Rose configuration in match order.

Routes are matched first to last. A route with the same method and pattern
as an earlier one can never match and is marked as shadowed.

Example:
  rose routes -c rose.yaml`,
	RunE: runRoutes,
}

func init() {
	rootCmd.AddCommand(routesCmd)

	routesCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = routesCmd.MarkFlagRequired("config")
}

func runRoutes(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// shadow warnings are reported in the table instead
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	app, err := config.Build(cfg, rose.WithLogger(quiet))
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	printRoutes(os.Stdout, app.Routes(), app.ShadowedRoutes())
	return nil
}

func printRoutes(w io.Writer, routes []rose.Route, shadowed []bool) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tMETHOD\tPATH\tEVENT\t")
	for i, r := range routes {
		note := ""
		if i < len(shadowed) && shadowed[i] {
			note = "(shadowed)"
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i, r.Method, r.Pattern, r.Event, note)
	}
	_ = tw.Flush()
}
