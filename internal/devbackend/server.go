// Package devbackend is a local stand-in for the hosted backend. It serves
// the rows, auth and storage endpoints the gateway talks to, backed by gorm
// and a blob store.
package devbackend

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"gorm.io/gorm"

	"mvp/internal/blobstore"
	"mvp/internal/config"
	"mvp/internal/models"
	"mvp/internal/observability"
)

var (
	promOnce       sync.Once
	promMiddleware *fiberprometheus.FiberPrometheus
)

// metrics returns the process-wide fiber prometheus middleware. Its
// collectors live in the default registry and can only be registered once.
func metrics() *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		promMiddleware = fiberprometheus.New("mvp-devbackend")
	})
	return promMiddleware
}

// Server holds the dev backend dependencies.
type Server struct {
	config *config.Config
	db     *gorm.DB
	store  blobstore.ObjectStore
	logger *slog.Logger
	app    *fiber.App
	now    func() time.Time
}

// New creates a server and its fiber app. store receives uploaded objects.
func New(cfg *config.Config, db *gorm.DB, store blobstore.ObjectStore) *Server {
	s := &Server{
		config: cfg,
		db:     db,
		store:  store,
		logger: observability.GlobalLogger.With(slog.String("component", "devbackend")),
		now:    time.Now,
	}

	app := fiber.New(fiber.Config{
		AppName:               "mvp dev backend",
		BodyLimit:             10 * 1024 * 1024,
		UnescapePath:          true,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return s
}

// App returns the fiber app, e.g. for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// SetupMiddleware installs recovery, CORS, request ids, metrics and logging.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "apikey, Authorization, Content-Type, Accept, Prefer, x-upsert",
		ExposeHeaders: "Content-Range",
	}))
	app.Use(requestid.New())
	app.Use(s.ContextMiddleware)

	prom := metrics()
	prom.RegisterAt(app, "/metrics")
	app.Use(prom.Middleware)

	app.Use(StructuredLogger(s.logger))
}

// SetupRoutes registers every endpoint. Routes that must be reachable
// without an API key are registered before the guarded groups.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health", s.HealthCheck)
	app.Get("/auth/v1/verify", s.Verify)
	app.Get("/storage/v1/object/public/:bucket/*", s.DownloadObject)

	rest := app.Group("/rest/v1", s.RequireAPIKey)
	rest.Get("/:table", s.SelectRows)
	rest.Post("/:table", s.InsertRow)
	rest.Patch("/:table", s.UpdateRows)

	auth := app.Group("/auth/v1", s.RequireAPIKey)
	auth.Post("/signup", s.Signup)
	auth.Post("/token", s.Token)
	auth.Post("/logout", s.Logout)
	auth.Get("/user", s.CurrentUser)

	storage := app.Group("/storage/v1", s.RequireAPIKey)
	storage.Post("/object/:bucket/*", s.UploadObject)
}

// HealthCheck reports whether the database answers.
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	status := fiber.StatusOK
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{
		"status":   dbStatus,
		"database": dbStatus,
		"time":     s.now().UTC(),
	})
}

// Listen serves on the configured port until Shutdown.
func (s *Server) Listen() error {
	s.logger.Info("dev backend listening",
		slog.String("port", s.config.Port),
		slog.String("public_url", s.config.PublicURL),
	)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return c.Status(apiErr.status).JSON(apiErr)
	}
	var authErr *authError
	if errors.As(err, &authErr) {
		return c.Status(authErr.status).JSON(authErr)
	}
	var storageErr *storageError
	if errors.As(err, &storageErr) {
		return c.Status(storageErr.status).JSON(storageErr)
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(models.ErrorResponse{Error: fiberErr.Message})
	}

	s.logger.ErrorContext(c.UserContext(), "unhandled error",
		slog.String("path", c.Path()),
		slog.String("error", err.Error()),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
		Error: "Internal server error",
		Code:  models.CodeInternal,
	})
}
