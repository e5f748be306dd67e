package config

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Handler is the handler for the config feature.
type Handler struct {
	configManager *Manager
}

// NewHandler creates a new handler for the config feature.
func NewHandler(configManager *Manager) *Handler {
	return &Handler{
		configManager: configManager,
	}
}

// UpdateSettings replaces the runtime configuration from a JSON body.
// Server settings are preserved; they make no sense to change at
// runtime.
func (h *Handler) UpdateSettings(c *fiber.Ctx) error {
	slog.Info("Configuration update requested")

	currentConfig := h.configManager.Get()

	newConfig := *currentConfig
	if err := c.BodyParser(&newConfig); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	newConfig.Server = currentConfig.Server
	newConfig.Database = currentConfig.Database

	validate := validator.New()
	if err := validate.Struct(newConfig); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	h.configManager.Update(&newConfig)
	slog.Info("Configuration updated in memory")

	// Saving may fail in containerized environments; the in-memory
	// update still stands.
	if err := h.configManager.Save("config.yaml"); err != nil {
		slog.Warn("failed to save config to file", "error", err)
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

// GetConfig returns the current configuration in the requested format.
func (h *Handler) GetConfig(c *fiber.Ctx) error {
	slog.Debug("GetConfig handler called", "format", c.Query("fmt", "json"))
	format := c.Query("fmt", "json")

	switch format {
	case "yaml":
		c.Set("Content-Type", "text/yaml")
		return c.SendString(h.configManager.GetYAML())
	case "json":
		c.Set("Content-Type", "application/json")
		return c.SendString(h.configManager.GetJSON())
	default:
		return c.Status(fiber.StatusBadRequest).SendString("Invalid format. Use 'json' or 'yaml'")
	}
}

// DownloadDatabase serves the database file for download.
func (h *Handler) DownloadDatabase(c *fiber.Ctx) error {
	slog.Debug("DownloadDatabase handler called")

	config := h.configManager.Get()
	dbPath := config.Database.Path

	if dbPath == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Database path not configured")
	}

	filename := filepath.Base(dbPath)

	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.Set("Content-Type", "application/octet-stream")

	return c.SendFile(dbPath)
}
