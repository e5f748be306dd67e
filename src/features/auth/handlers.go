package auth

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Cookie names shared with the hosting middleware.
const (
	SessionCookie  = "chorale_session"
	RememberCookie = "chorale_remember"
)

// Handler is the handler for the auth feature.
type Handler struct {
	service *Service
}

// NewHandler creates a new handler for the auth feature.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Login verifies credentials and opens a session.
func (h *Handler) Login(c *fiber.Ctx) error {
	var body struct {
		Login    string `json:"login"`
		Password string `json:"password"`
		Remember bool   `json:"remember"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	session, rememberToken, err := h.service.Login(c.Context(), body.Login, body.Password, body.Remember)
	if err != nil {
		switch {
		case errors.Is(err, ErrLockedOut):
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many failed attempts"})
		default:
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    session.ID,
		Expires:  session.Expires,
		HTTPOnly: true,
		SameSite: "Lax",
	})
	if rememberToken != "" {
		c.Cookie(&fiber.Cookie{
			Name:     RememberCookie,
			Value:    rememberToken,
			Expires:  time.Now().Add(h.service.TokenValidity()),
			HTTPOnly: true,
			SameSite: "Lax",
		})
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

// Logout closes the session and clears the cookies.
func (h *Handler) Logout(c *fiber.Ctx) error {
	h.service.Logout(c.Context(), c.Cookies(SessionCookie), c.Cookies(RememberCookie))

	c.ClearCookie(SessionCookie, RememberCookie)
	return c.JSON(fiber.Map{"status": "ok"})
}

// Me returns the current user.
func (h *Handler) Me(c *fiber.Ctx) error {
	user, err := h.service.CurrentUser(c.Context(), c.Cookies(SessionCookie))
	if err != nil {
		slog.Error("Error loading current user", "error", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Error loading user")
	}
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "not logged in"})
	}
	return c.JSON(fiber.Map{
		"id":    user.ID,
		"name":  user.Name,
		"admin": user.IsAdmin,
	})
}

// Register creates a bare login identity; the library user appears on
// first login.
func (h *Handler) Register(c *fiber.Ctx) error {
	var body struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	identity, err := h.service.RegisterIdentity(c.Context(), body.Login, body.Password)
	if err != nil {
		var weak *WeakPasswordError
		switch {
		case errors.As(err, &weak):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": weak.Error()})
		case errors.Is(err, ErrLoginTaken):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "login name already taken"})
		default:
			slog.Error("Error registering identity", "error", err)
			return c.Status(fiber.StatusInternalServerError).SendString("Error registering")
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": identity.ID, "login": identity.LoginName})
}

// CreateUser creates a user and login identity (administrative).
func (h *Handler) CreateUser(c *fiber.Ctx) error {
	var body struct {
		Login    string `json:"login"`
		Password string `json:"password"`
		Admin    bool   `json:"admin"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	user, err := h.service.CreateUser(c.Context(), body.Login, body.Password, body.Admin)
	if err != nil {
		var weak *WeakPasswordError
		switch {
		case errors.As(err, &weak):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": weak.Error()})
		case errors.Is(err, ErrLoginTaken):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "login name already taken"})
		default:
			slog.Error("Error creating user", "error", err)
			return c.Status(fiber.StatusInternalServerError).SendString("Error creating user")
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":    user.ID,
		"name":  user.Name,
		"admin": user.IsAdmin,
	})
}

// ListUsers lists all users (administrative).
func (h *Handler) ListUsers(c *fiber.Ctx) error {
	users, err := h.service.ListUsers(c.Context())
	if err != nil {
		slog.Error("Error listing users", "error", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Error listing users")
	}
	return c.JSON(users)
}

// ChangePassword replaces the current identity's password.
func (h *Handler) ChangePassword(c *fiber.Ctx) error {
	var body struct {
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	session := h.service.SessionByID(c.Cookies(SessionCookie))
	if session == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "not logged in"})
	}

	if err := h.service.ChangePassword(c.Context(), session.IdentityID, body.Password); err != nil {
		var weak *WeakPasswordError
		if errors.As(err, &weak) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": weak.Error()})
		}
		slog.Error("Error changing password", "error", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Error changing password")
	}

	return c.JSON(fiber.Map{"status": "ok"})
}
