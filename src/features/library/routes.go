package library

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the library feature.
// Directory management and track deletion are administrative.
func RegisterRoutes(app *fiber.App, service *Service, adminOnly fiber.Handler) {
	handler := NewHandler(service)

	app.Get("/tracks", handler.GetTracks)
	app.Get("/tracks/stats", handler.GetTrackStats)
	app.Get("/tracks/:id", handler.GetTrack)
	app.Delete("/tracks/:id", adminOnly, handler.DeleteTrack)

	app.Get("/genres", handler.GetGenres)

	app.Get("/directories", handler.GetDirectories)
	app.Post("/directories", adminOnly, handler.AddDirectory)
	app.Delete("/directories/:id", adminOnly, handler.DeleteDirectory)
}
