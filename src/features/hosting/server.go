package hosting

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"chorale/src/features/auth"
	"chorale/src/features/config"
	"chorale/src/features/library"
	"chorale/src/features/metrics"
	"chorale/src/features/scanning"
)

// Server is the HTTP server for the application.
type Server struct {
	app  *fiber.App
	port uint32
}

// NewServer creates a new HTTP server.
func NewServer(cfg *config.Manager, libraryService *library.Service, authService *auth.Service, scanService *scanning.Service, metricsService *metrics.Service) *Server {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("Internal Server Error", "error", err)
			return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
		},
		AppName:               "Chorale",
		DisableStartupMessage: true,
		EnablePrintRoutes:     cfg.Get().Server.PrintRoutes,
	})

	app.Use(LogAllRequestsMiddleware())
	app.Use(SessionMiddleware(authService))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	adminOnly := AdminOnly(authService)

	auth.RegisterRoutes(app, authService, adminOnly)
	library.RegisterRoutes(app, libraryService, adminOnly)
	scanning.RegisterRoutes(app, scanService, adminOnly)
	config.RegisterRoutes(app, cfg, adminOnly)
	if cfg.Get().Metrics.Enabled {
		metrics.RegisterRoutes(app, metricsService)
	}

	return &Server{app: app, port: cfg.Get().Server.Port}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.app.Listen(":" + fmt.Sprint(s.port))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
