package config

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the config feature.
func RegisterRoutes(app *fiber.App, configManager *Manager, adminOnly fiber.Handler) {
	handler := NewHandler(configManager)

	app.Get("/config", adminOnly, handler.GetConfig)
	app.Post("/config", adminOnly, handler.UpdateSettings)
	app.Get("/config/database/download", adminOnly, handler.DownloadDatabase)
}
