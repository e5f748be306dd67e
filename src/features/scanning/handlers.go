package scanning

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// Handler is the handler for the scanning feature.
type Handler struct {
	service *Service
}

// NewHandler creates a new handler for the scanning feature.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RequestScan flags a manual scan for the coordinator to pick up.
func (h *Handler) RequestScan(c *fiber.Ctx) error {
	slog.Debug("RequestScan handler called")
	if err := h.service.RequestScan(c.Context()); err != nil {
		slog.Error("Error requesting scan", "error", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Error requesting scan")
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "scan requested"})
}

// GetStatus returns the coordinator status and last scan report.
func (h *Handler) GetStatus(c *fiber.Ctx) error {
	return c.JSON(h.service.Status())
}
