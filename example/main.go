package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jpalmerr/rose"
)

func main() {
	app, err := rose.New(
		rose.WithPort(3222),
		rose.WithInitialState(rose.NewState(map[string]any{"name": "nobody", "visits": 0})),
	)
	if err != nil {
		slog.Error("failed to create app", "error", err)
		os.Exit(1)
	}

	app.Get("/hello/:who", "http.request.hello")
	app.Get("/visits", "http.request.visits")

	// remember who was greeted last, then answer in plain text
	app.Subscribe("http.request.hello", func(state *rose.State, payload any) (rose.Result, error) {
		params, _ := payload.(rose.Params)
		who := params.Get("who")
		visits, _ := rose.Lookup[int](state, "visits")

		next := state.WithValue("name", who).WithValue("visits", visits+1)
		return rose.Then(next, rose.EventResponsePlain, rose.ResponseData{Body: "Hello: " + who})
	})

	app.Subscribe("http.request.visits", func(state *rose.State, _ any) (rose.Result, error) {
		name, _ := rose.Lookup[string](state, "name")
		visits, _ := rose.Lookup[int](state, "visits")
		return rose.Then(state, rose.EventResponseJSON, rose.ResponseData{
			Body: map[string]any{"last": name, "visits": visits},
		})
	})

	// observe every settled request
	app.Subscribe(rose.MetaEventRequest, func(state *rose.State, _ any) (rose.Result, error) {
		if req := state.Request(); req != nil {
			slog.Info("request handled", "method", req.Method, "path", req.Path(), "not_found", state.NotFound())
		}
		return rose.Next(state)
	})

	fmt.Println()
	fmt.Println("  Rose Demo")
	fmt.Println()
	fmt.Println("    curl http://localhost:3222/hello/world")
	fmt.Println("    curl http://localhost:3222/visits")
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Serve(ctx); err != nil {
		slog.Error("rose error", "error", err)
		os.Exit(1)
	}
}
