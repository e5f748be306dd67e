package auth

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the auth feature.
func RegisterRoutes(app *fiber.App, service *Service, adminOnly fiber.Handler) {
	handler := NewHandler(service)

	app.Post("/login", handler.Login)
	app.Post("/register", handler.Register)
	app.Post("/logout", handler.Logout)
	app.Get("/me", handler.Me)
	app.Put("/password", handler.ChangePassword)

	app.Get("/users", adminOnly, handler.ListUsers)
	app.Post("/users", adminOnly, handler.CreateUser)
}
