package hosting

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"chorale/src/features/auth"
)

// LogAllRequestsMiddleware logs all requests
func LogAllRequestsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start)
		status := c.Response().StatusCode()

		if status >= 400 {
			slog.Error("HTTP request",
				"method", c.Method(),
				"path", c.Path(),
				"status", status,
				"duration", duration.String(),
				"error", err,
			)
		} else {
			slog.Debug("HTTP request",
				"method", c.Method(),
				"path", c.Path(),
				"status", status,
				"duration", duration.String(),
			)
		}
		return err
	}
}

// SessionMiddleware resumes a session from the remember-me cookie when
// no live session exists.
func SessionMiddleware(authService *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if authService.SessionByID(c.Cookies(auth.SessionCookie)) != nil {
			return c.Next()
		}

		tokenValue := c.Cookies(auth.RememberCookie)
		if tokenValue == "" {
			return c.Next()
		}

		session, err := authService.ResumeSession(c.Context(), tokenValue)
		if err != nil {
			slog.Debug("Could not resume session from token", "error", err)
			c.ClearCookie(auth.RememberCookie)
			return c.Next()
		}

		c.Cookie(&fiber.Cookie{
			Name:     auth.SessionCookie,
			Value:    session.ID,
			Expires:  session.Expires,
			HTTPOnly: true,
			SameSite: "Lax",
		})
		// The freshly issued cookie is not in the request, so stash the
		// session id for handlers running in this request.
		c.Request().Header.SetCookie(auth.SessionCookie, session.ID)
		return c.Next()
	}
}

// AdminOnly rejects requests whose session does not belong to an
// administrator.
func AdminOnly(authService *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := authService.CurrentUser(c.Context(), c.Cookies(auth.SessionCookie))
		if err != nil {
			slog.Error("Admin check failed", "error", err)
			return c.Status(fiber.StatusInternalServerError).SendString("Error checking session")
		}
		if user == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "not logged in"})
		}
		if !authService.IsAdmin(user) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin only"})
		}
		return c.Next()
	}
}
