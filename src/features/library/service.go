package library

import (
	"context"
	"log/slog"

	"chorale/src/features/config"
	"chorale/src/music"
)

// Service is the domain service for the library feature.
type Service struct {
	library       music.Library
	configManager *config.Manager
}

// NewService creates a new library service.
func NewService(lib music.Library, cfgManager *config.Manager) *Service {
	return &Service{
		library:       lib,
		configManager: cfgManager,
	}
}

// PageSize returns the configured default page size.
func (s *Service) PageSize() int {
	size := s.configManager.Get().Library.PageSize
	if size <= 0 {
		size = 300
	}
	return size
}

// SearchTracks returns filtered, sorted, paginated track rows.
func (s *Service) SearchTracks(ctx context.Context, filter music.SearchFilter, sort music.SortKey, dir music.SortDirection, offset, limit int) ([]*music.TrackRow, error) {
	slog.Debug("SearchTracks service called", "sort", sort, "dir", dir, "offset", offset, "limit", limit)
	rows, err := s.library.SearchTracks(ctx, filter, sort, dir, offset, limit)
	if err != nil {
		slog.Error("SearchTracks failed", "error", err)
		return nil, err
	}
	slog.Debug("SearchTracks completed", "count", len(rows))
	return rows, nil
}

// TrackStats returns the count and total duration over the same
// filtered set SearchTracks paginates.
func (s *Service) TrackStats(ctx context.Context, filter music.SearchFilter) (*music.TrackStats, error) {
	slog.Debug("TrackStats service called")
	stats, err := s.library.TrackStats(ctx, filter)
	if err != nil {
		slog.Error("TrackStats failed", "error", err)
		return nil, err
	}
	slog.Debug("TrackStats completed", "count", stats.Count, "totalDuration", stats.TotalDuration)
	return stats, nil
}

// GetTrack returns a single track from the library.
func (s *Service) GetTrack(ctx context.Context, id int64) (*music.Track, error) {
	slog.Debug("GetTrack service called", "id", id)
	track, err := s.library.GetTrack(ctx, id)
	if err != nil {
		slog.Error("GetTrack failed", "id", id, "error", err)
		return nil, err
	}
	return track, nil
}

// AddTrack adds a track to the library.
func (s *Service) AddTrack(ctx context.Context, track *music.Track) error {
	slog.Debug("AddTrack service called", "path", track.Path)
	if err := track.Validate(); err != nil {
		return err
	}
	if err := s.library.AddTrack(ctx, track); err != nil {
		slog.Error("AddTrack failed", "path", track.Path, "error", err)
		return err
	}
	slog.Debug("AddTrack completed", "id", track.ID, "path", track.Path)
	return nil
}

// UpdateTrack updates a track in the library.
func (s *Service) UpdateTrack(ctx context.Context, track *music.Track) error {
	slog.Debug("UpdateTrack service called", "id", track.ID)
	if err := track.Validate(); err != nil {
		return err
	}
	if err := s.library.UpdateTrack(ctx, track); err != nil {
		slog.Error("UpdateTrack failed", "id", track.ID, "error", err)
		return err
	}
	return nil
}

// DeleteTrack deletes a track from the library.
func (s *Service) DeleteTrack(ctx context.Context, id int64) error {
	slog.Debug("DeleteTrack service called", "id", id)
	if err := s.library.DeleteTrack(ctx, id); err != nil {
		slog.Error("DeleteTrack failed", "id", id, "error", err)
		return err
	}
	return nil
}

// ListGenres returns all genres.
func (s *Service) ListGenres(ctx context.Context) ([]*music.Genre, error) {
	slog.Debug("ListGenres service called")
	genres, err := s.library.ListGenres(ctx)
	if err != nil {
		slog.Error("ListGenres failed", "error", err)
		return nil, err
	}
	slog.Debug("ListGenres completed", "count", len(genres))
	return genres, nil
}

// PruneGenres removes genres no track references anymore.
func (s *Service) PruneGenres(ctx context.Context) (int64, error) {
	slog.Debug("PruneGenres service called")
	pruned, err := s.library.PruneGenres(ctx)
	if err != nil {
		slog.Error("PruneGenres failed", "error", err)
		return 0, err
	}
	slog.Debug("PruneGenres completed", "pruned", pruned)
	return pruned, nil
}

// ListDirectories returns all registered media directories.
func (s *Service) ListDirectories(ctx context.Context) ([]*music.MediaDirectory, error) {
	slog.Debug("ListDirectories service called")
	dirs, err := s.library.ListDirectories(ctx)
	if err != nil {
		slog.Error("ListDirectories failed", "error", err)
		return nil, err
	}
	return dirs, nil
}

// AddDirectory registers a media directory, returning the existing one
// when the path is already registered.
func (s *Service) AddDirectory(ctx context.Context, path string) (*music.MediaDirectory, error) {
	slog.Debug("AddDirectory service called", "path", path)
	dir := &music.MediaDirectory{Path: path}
	if err := dir.Validate(); err != nil {
		return nil, err
	}
	created, err := s.library.GetOrCreateDirectory(ctx, path)
	if err != nil {
		slog.Error("AddDirectory failed", "path", path, "error", err)
		return nil, err
	}
	slog.Info("Media directory registered", "id", created.ID, "path", created.Path)
	return created, nil
}

// DeleteDirectory removes a directory and all tracks under it.
func (s *Service) DeleteDirectory(ctx context.Context, id int64) error {
	slog.Debug("DeleteDirectory service called", "id", id)
	if err := s.library.DeleteDirectory(ctx, id); err != nil {
		slog.Error("DeleteDirectory failed", "id", id, "error", err)
		return err
	}
	slog.Info("Media directory deleted", "id", id)
	return nil
}
