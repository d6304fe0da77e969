package hosting

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/contre95/posxchange/src/exchange"
	"github.com/contre95/posxchange/src/features/config"
	"github.com/contre95/posxchange/src/features/jobs"
	"github.com/contre95/posxchange/src/features/metrics"
	"github.com/contre95/posxchange/src/features/watching"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Server is the HTTP server for the application.
type Server struct {
	app  *fiber.App
	port uint32
}

// NewServer creates a new HTTP server. A nil gatherer disables the metrics endpoint.
func NewServer(cfg *config.Manager, watchingService *watching.Service, jobService *jobs.Service, history exchange.FileLogHistory, gatherer prometheus.Gatherer) *Server {
	app := fiber.New(fiber.Config{
		ErrorHandler:          errorHandler,
		AppName:               "posxchange",
		DisableStartupMessage: true,
		EnablePrintRoutes:     cfg.Get().Server.PrintRoutes,
		BodyLimit:             64 * 1024 * 1024, // exchange documents are uploaded whole
	})

	app.Use(LogAllRequestsMiddleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	config.RegisterRoutes(app, cfg)
	jobs.RegisterRoutes(app, jobService)
	watching.RegisterRoutes(app, watchingService, jobService, history)
	if gatherer != nil && cfg.Get().Metrics.Enabled {
		metrics.RegisterRoutes(app, cfg.Get().Metrics.Path, gatherer)
	}

	return &Server{app: app, port: cfg.Get().Server.Port}
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.app.Listen(":" + fmt.Sprint(s.port))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		slog.Error("Internal Server Error", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
