package music

import (
	"context"
	"errors"
)

// SortKey selects the column a track search is ordered by.
type SortKey string

const (
	SortArtist       SortKey = "artist"
	SortRelease      SortKey = "release"
	SortDiscTrack    SortKey = "disctrack" // disc number primary, track number secondary
	SortTitle        SortKey = "title"
	SortDuration     SortKey = "duration"
	SortDate         SortKey = "date"
	SortOriginalDate SortKey = "originaldate"
)

// SortDirection is the order direction of a track search.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ErrInvalidSort is returned when a search names an unknown sort key
// or direction. It is reported before any query executes.
var ErrInvalidSort = errors.New("invalid sort key or direction")

// ReleaseMatch is the matching policy for the release-name filter
// dimension.
type ReleaseMatch string

const (
	ReleaseMatchExact  ReleaseMatch = "exact"
	ReleaseMatchPrefix ReleaseMatch = "prefix"
)

// Library is the interface for the media metadata store.
// Lookups that miss return (nil, nil), never an error.
type Library interface {
	// Track methods
	AddTrack(ctx context.Context, track *Track) error
	UpdateTrack(ctx context.Context, track *Track) error
	DeleteTrack(ctx context.Context, id int64) error
	GetTrack(ctx context.Context, id int64) (*Track, error)
	FindTrackByPath(ctx context.Context, path string) (*Track, error)
	// ListTrackPaths maps every stored path under a directory to its
	// track id, for reconciling the store against the filesystem.
	ListTrackPaths(ctx context.Context, directoryID int64) (map[string]int64, error)

	// Filtered search. SearchTracks and TrackStats are guaranteed to
	// apply the same predicate for the same filter. An offset/limit
	// pair of (-1, -1) returns every matching row.
	SearchTracks(ctx context.Context, filter SearchFilter, sort SortKey, dir SortDirection, offset, limit int) ([]*TrackRow, error)
	TrackStats(ctx context.Context, filter SearchFilter) (*TrackStats, error)

	// Genre methods
	GetGenre(ctx context.Context, id int64) (*Genre, error)
	GetGenreByName(ctx context.Context, name string) (*Genre, error)
	GetOrCreateGenre(ctx context.Context, name string) (*Genre, error)
	ListGenres(ctx context.Context) ([]*Genre, error)
	PruneGenres(ctx context.Context) (int64, error)

	// Directory methods
	GetDirectory(ctx context.Context, id int64) (*MediaDirectory, error)
	GetOrCreateDirectory(ctx context.Context, path string) (*MediaDirectory, error)
	ListDirectories(ctx context.Context) ([]*MediaDirectory, error)
	DeleteDirectory(ctx context.Context, id int64) error

	// Singleton directory-settings record
	Settings(ctx context.Context) (*DirectorySettings, error)
	SetManualScanRequested(ctx context.Context, requested bool) error
	ConsumeManualScanRequest(ctx context.Context) (bool, error)

	// RunInBatch runs fn against a writer whose mutations are applied
	// in a single transaction. The scanner groups its writes into
	// batches so concurrent readers are never starved.
	RunInBatch(ctx context.Context, fn func(w LibraryWriter) error) error
}

// LibraryWriter is the mutation surface handed to a batch.
type LibraryWriter interface {
	AddTrack(ctx context.Context, track *Track) error
	UpdateTrack(ctx context.Context, track *Track) error
	DeleteTrack(ctx context.Context, id int64) error
	FindTrackByPath(ctx context.Context, path string) (*Track, error)
	GetOrCreateGenre(ctx context.Context, name string) (*Genre, error)
}
