// Command mvp is a terminal client for the social app: sign in, read and
// write posts, events and comments against the configured backend.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"mvp/internal/config"
	"mvp/internal/observability"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env: %v", err)
	}
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "help" {
		usage(stdout)
		return 0
	}
	cmd, ok := findCommand(args[0])
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	logger := observability.SetupLogger(cfg.Env, cfg.LogLevel, stderr)

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "mvp",
		ServiceVersion: "dev",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampler,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize tracing: %v\n", err)
		return 1
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("tracing shutdown error", slog.String("error", err.Error()))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = observability.WithCorrelationID(ctx, observability.GenerateCorrelationID())

	return execute(ctx, cfg, cmd, args[1:], nil, stdout, stderr)
}

// execute builds the client and runs one command. httpClient may be nil.
func execute(ctx context.Context, cfg *config.Config, cmd command, args []string, httpClient *http.Client, stdout, stderr io.Writer) int {
	a, err := newApp(ctx, cfg, httpClient, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to start: %v\n", err)
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			fmt.Fprintf(stderr, "Warning: %v\n", err)
		}
	}()
	if userID := a.session.State().UserID; userID != "" {
		ctx = observability.WithUserID(ctx, userID)
	}

	if err := cmd.run(ctx, a, args); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := a.persister.Err(); err != nil {
		fmt.Fprintf(stderr, "Warning: session not saved: %v\n", err)
	}
	return 0
}
