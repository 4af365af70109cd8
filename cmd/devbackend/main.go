// Command devbackend runs a local stand-in for the hosted backend so the
// client can be used without a cloud project.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"mvp/internal/config"
	"mvp/internal/observability"
	"mvp/internal/seed"
	"mvp/internal/server"
)

func main() {
	defaults := seed.DefaultOptions()
	seedDemo := flag.Bool("seed", false, "Fill the database with generated demo data")
	clean := flag.Bool("clean", false, "Delete all rows before seeding")
	numUsers := flag.Int("users", defaults.NumUsers, "Number of demo users")
	numPosts := flag.Int("posts", defaults.NumPosts, "Number of demo posts")
	numEvents := flag.Int("events", defaults.NumEvents, "Number of demo events")
	seedValue := flag.Int64("seed-value", 0, "Random seed for demo data (0 uses the clock)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.SetupLogger(cfg.Env, cfg.LogLevel, os.Stderr)

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "mvp-devbackend",
		ServiceVersion: "dev",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampler,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("tracing shutdown error", slog.String("error", err.Error()))
		}
	}()

	opts := defaults
	opts.NumUsers = *numUsers
	opts.NumPosts = *numPosts
	opts.NumEvents = *numEvents
	opts.Seed = *seedValue

	srv, err := server.NewServer(context.Background(), cfg, server.Options{
		Seed:     *seedDemo,
		Clean:    *clean,
		SeedOpts: opts,
	})
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	if err := srv.Run(); err != nil {
		logger.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
