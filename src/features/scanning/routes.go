package scanning

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the scanning feature.
func RegisterRoutes(app *fiber.App, service *Service, adminOnly fiber.Handler) {
	handler := NewHandler(service)

	app.Post("/scan", adminOnly, handler.RequestScan)
	app.Get("/scan/status", handler.GetStatus)
}
