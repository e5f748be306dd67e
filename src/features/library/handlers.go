package library

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"chorale/src/music"
)

// Handler is the handler for the library feature.
type Handler struct {
	service *Service
}

// NewHandler creates a new handler for the library feature.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// parseFilter builds a SearchFilter from query parameters. Unknown or
// malformed dimensions are ignored so a bad link degrades to a wider
// result set instead of an error page.
func parseFilter(c *fiber.Ctx) music.SearchFilter {
	filter := music.SearchFilter{
		ReleaseName: c.Query("release"),
		Text:        c.Query("q"),
	}
	if raw := c.Query("genre"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			filter.GenreID = id
		} else {
			slog.Debug("Ignoring malformed genre filter", "value", raw)
		}
	}
	if raw := c.Query("directory"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			filter.DirectoryID = id
		} else {
			slog.Debug("Ignoring malformed directory filter", "value", raw)
		}
	}
	return filter
}

// GetTracks lists tracks with filter, sort and pagination parameters.
func (h *Handler) GetTracks(c *fiber.Ctx) error {
	slog.Debug("GetTracks handler called")

	filter := parseFilter(c)
	sort := music.SortKey(c.Query("sort", string(music.SortArtist)))
	dir := music.SortDirection(c.Query("dir", string(music.SortAsc)))

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", h.service.PageSize())
	if limit < 1 {
		limit = h.service.PageSize()
	}
	offset := (page - 1) * limit

	rows, err := h.service.SearchTracks(c.Context(), filter, sort, dir, offset, limit)
	if err != nil {
		if errors.Is(err, music.ErrInvalidSort) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		slog.Error("Error loading tracks", "error", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Error loading tracks")
	}

	stats, err := h.service.TrackStats(c.Context(), filter)
	if err != nil {
		slog.Error("Error getting track stats", "error", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Error loading tracks")
	}

	return c.JSON(fiber.Map{
		"tracks": rows,
		"stats": fiber.Map{
			"count":         stats.Count,
			"totalDuration": stats.TotalDuration,
			"playTime":      music.FormatDuration(stats.TotalDuration),
		},
		"pagination": fiber.Map{
			"page":       page,
			"limit":      limit,
			"totalCount": stats.Count,
			"totalPages": (stats.Count + limit - 1) / limit,
		},
	})
}

// GetTrackStats returns count and total duration for a filtered set.
func (h *Handler) GetTrackStats(c *fiber.Ctx) error {
	slog.Debug("GetTrackStats handler called")

	stats, err := h.service.TrackStats(c.Context(), parseFilter(c))
	if err != nil {
		slog.Error("Error getting track stats", "error", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Error loading stats")
	}

	return c.JSON(fiber.Map{
		"count":         stats.Count,
		"totalDuration": stats.TotalDuration,
		"playTime":      music.FormatDuration(stats.TotalDuration),
	})
}

// GetTrack returns one track.
func (h *Handler) GetTrack(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid track id")
	}

	track, err := h.service.GetTrack(c.Context(), id)
	if err != nil {
		slog.Error("Error loading track", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Error loading track")
	}
	if track == nil {
		return c.Status(fiber.StatusNotFound).SendString("Track not found")
	}
	return c.JSON(track)
}

// DeleteTrack deletes one track.
func (h *Handler) DeleteTrack(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid track id")
	}

	if err := h.service.DeleteTrack(c.Context(), id); err != nil {
		slog.Error("Error deleting track", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Error deleting track")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetGenres lists all genres.
func (h *Handler) GetGenres(c *fiber.Ctx) error {
	genres, err := h.service.ListGenres(c.Context())
	if err != nil {
		slog.Error("Error loading genres", "error", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Error loading genres")
	}
	return c.JSON(genres)
}

// GetDirectories lists registered media directories.
func (h *Handler) GetDirectories(c *fiber.Ctx) error {
	dirs, err := h.service.ListDirectories(c.Context())
	if err != nil {
		slog.Error("Error loading directories", "error", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Error loading directories")
	}
	return c.JSON(dirs)
}

// AddDirectory registers a media directory.
func (h *Handler) AddDirectory(c *fiber.Ctx) error {
	var body struct {
		Path string `json:"path"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	dir, err := h.service.AddDirectory(c.Context(), body.Path)
	if err != nil {
		slog.Error("Error adding directory", "path", body.Path, "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(dir)
}

// DeleteDirectory removes a directory and everything beneath it.
func (h *Handler) DeleteDirectory(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid directory id")
	}

	if err := h.service.DeleteDirectory(c.Context(), id); err != nil {
		slog.Error("Error deleting directory", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Error deleting directory")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
