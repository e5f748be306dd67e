package music

import (
	"fmt"
	"strings"
	"time"
)

// Track represents a single indexed media file.
type Track struct {
	ID           int64
	Path         string
	Title        string
	ArtistName   string
	ReleaseName  string
	TrackNumber  int
	DiscNumber   int
	Duration     int // seconds
	ReleaseDate  time.Time
	OriginalDate time.Time
	DirectoryID  int64
	Genres       []*Genre
	AddedDate    time.Time
	ModifiedDate time.Time
}

// Validate validates the track fields.
func (t *Track) Validate() error {
	if strings.TrimSpace(t.Path) == "" {
		return fmt.Errorf("track path cannot be empty")
	}
	if len(t.Path) > 1000 {
		return fmt.Errorf("track path cannot exceed 1000 characters, got %d: path -> %s", len(t.Path), t.Path)
	}
	if t.DirectoryID <= 0 {
		return fmt.Errorf("track must belong to a media directory: path -> %s", t.Path)
	}
	if t.Duration < 0 {
		return fmt.Errorf("duration cannot be negative, got %d", t.Duration)
	}
	if t.TrackNumber < 0 {
		return fmt.Errorf("track number cannot be negative, got %d", t.TrackNumber)
	}
	if t.DiscNumber < 0 {
		return fmt.Errorf("disc number cannot be negative, got %d", t.DiscNumber)
	}
	if len(t.Title) > 500 {
		return fmt.Errorf("title cannot exceed 500 characters, got %d: title -> %s", len(t.Title), t.Title)
	}
	if len(t.ArtistName) > 500 {
		return fmt.Errorf("artist name cannot exceed 500 characters, got %d", len(t.ArtistName))
	}
	if len(t.ReleaseName) > 500 {
		return fmt.Errorf("release name cannot exceed 500 characters, got %d", len(t.ReleaseName))
	}
	return nil
}

// GenreNames returns the names of the track's genres.
func (t *Track) GenreNames() []string {
	names := make([]string, 0, len(t.Genres))
	for _, g := range t.Genres {
		names = append(names, g.Name)
	}
	return names
}

// TrackRow is the flat row projection returned by filtered searches.
// Genres are summarized as a single comma-joined string.
type TrackRow struct {
	ID           int64
	ArtistName   string
	ReleaseName  string
	DiscNumber   int
	TrackNumber  int
	Title        string
	Duration     int // seconds
	ReleaseDate  time.Time
	OriginalDate time.Time
	Genres       string
}

// TrackStats is the aggregate computed over a filtered track set.
type TrackStats struct {
	Count         int
	TotalDuration int64 // seconds
}

// FormatDuration renders a second count as D:HH:MM:SS, dropping the
// leading fields when zero.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	if days > 0 {
		return fmt.Sprintf("%d:%02d:%02d:%02d", days, hours, minutes, secs)
	}
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}
