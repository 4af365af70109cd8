// Package server runs the dev backend process: database, object store,
// optional demo data and the HTTP server, with graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gorm.io/gorm"

	"mvp/internal/blobstore"
	"mvp/internal/config"
	"mvp/internal/database"
	"mvp/internal/devbackend"
	"mvp/internal/observability"
	"mvp/internal/seed"
)

// package-level constructor hooks to make the runner testable. Tests may
// replace these with fakes.
var (
	openDB = database.Open

	newStore = func(cfg *config.Config) (blobstore.ObjectStore, error) {
		publicBase := strings.TrimRight(cfg.PublicURL, "/") + "/storage/v1/object/public"
		if cfg.StorageDir == "" {
			return blobstore.NewMemoryStore(publicBase), nil
		}
		store, err := blobstore.NewDirStore(cfg.StorageDir, publicBase)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
)

// Options control startup behavior beyond the configuration file.
type Options struct {
	Seed     bool
	Clean    bool
	SeedOpts seed.Options
}

// Server owns the resources of a running dev backend.
type Server struct {
	cfg    *config.Config
	db     *gorm.DB
	api    *devbackend.Server
	logger *slog.Logger
}

// NewServer opens the database and object store and prepares the HTTP
// server. Seeding happens here so the server only starts once data is ready.
func NewServer(ctx context.Context, cfg *config.Config, opts Options) (*Server, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	store, err := newStore(cfg)
	if err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("failed to open object store: %w", err)
	}

	s := &Server{
		cfg:    cfg,
		db:     db,
		api:    devbackend.New(cfg, db, store),
		logger: observability.GlobalLogger.With(slog.String("component", "server")),
	}
	if err := s.seed(ctx, opts); err != nil {
		_ = database.Close(db)
		return nil, err
	}
	return s, nil
}

func (s *Server) seed(ctx context.Context, opts Options) error {
	seeder := seed.NewSeeder(s.db)
	if opts.Clean {
		if err := seeder.ClearAll(ctx); err != nil {
			return fmt.Errorf("failed to clear database: %w", err)
		}
	}

	var fixtures *seed.Fixtures
	switch {
	case s.cfg.SeedFixtures != "":
		f, err := seed.LoadFixtures(s.cfg.SeedFixtures)
		if err != nil {
			return err
		}
		fixtures = f
	case opts.Seed:
		fixtures = seed.Generate(opts.SeedOpts, time.Now())
	default:
		return nil
	}

	if _, err := seeder.Apply(ctx, fixtures); err != nil {
		return fmt.Errorf("failed to seed database: %w", err)
	}
	s.logger.InfoContext(ctx, "demo data ready", slog.String("password", seed.DefaultPassword))
	return nil
}

// API returns the HTTP server.
func (s *Server) API() *devbackend.Server {
	return s.api
}

// Run starts the HTTP server and blocks until a termination signal is
// received.
func (s *Server) Run() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	return s.RunWithQuit(quit)
}

// RunWithQuit behaves like Run but uses the provided quit channel instead of
// listening to OS signals.
func (s *Server) RunWithQuit(quit <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.api.Listen()
	}()

	select {
	case err := <-errCh:
		_ = database.Close(s.db)
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	s.logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown stops the HTTP server and closes the database.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.api.Shutdown(ctx); err != nil {
		s.logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	return database.Close(s.db)
}
