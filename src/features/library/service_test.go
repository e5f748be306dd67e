package library

import (
	"context"
	"testing"

	"chorale/src/features/config"
	"chorale/src/music"
)

// MockLibrary implements only the methods each test needs; it will
// panic if unimplemented methods are called.
type MockLibrary struct {
	music.Library

	rows    []*music.TrackRow
	stats   *music.TrackStats
	tracks  map[int64]*music.Track
	added   []*music.Track
	deleted []int64

	lastSort   music.SortKey
	lastDir    music.SortDirection
	lastOffset int
	lastLimit  int
}

func (m *MockLibrary) SearchTracks(ctx context.Context, filter music.SearchFilter, sort music.SortKey, dir music.SortDirection, offset, limit int) ([]*music.TrackRow, error) {
	m.lastSort, m.lastDir, m.lastOffset, m.lastLimit = sort, dir, offset, limit
	return m.rows, nil
}

func (m *MockLibrary) TrackStats(ctx context.Context, filter music.SearchFilter) (*music.TrackStats, error) {
	return m.stats, nil
}

func (m *MockLibrary) GetTrack(ctx context.Context, id int64) (*music.Track, error) {
	return m.tracks[id], nil
}

func (m *MockLibrary) AddTrack(ctx context.Context, track *music.Track) error {
	m.added = append(m.added, track)
	return nil
}

func (m *MockLibrary) DeleteTrack(ctx context.Context, id int64) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *MockLibrary) GetOrCreateDirectory(ctx context.Context, path string) (*music.MediaDirectory, error) {
	return &music.MediaDirectory{ID: 7, Path: path}, nil
}

func TestSearchTracksPassesSortAndPage(t *testing.T) {
	mock := &MockLibrary{rows: []*music.TrackRow{{ID: 1, Title: "One"}}}
	service := NewService(mock, nil)

	rows, err := service.SearchTracks(context.Background(), music.SearchFilter{}, music.SortTitle, music.SortDesc, 10, 5)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(rows) != 1 || rows[0].Title != "One" {
		t.Errorf("unexpected rows: %v", rows)
	}
	if mock.lastSort != music.SortTitle || mock.lastDir != music.SortDesc {
		t.Errorf("expected sort passed through, got %s %s", mock.lastSort, mock.lastDir)
	}
	if mock.lastOffset != 10 || mock.lastLimit != 5 {
		t.Errorf("expected pagination passed through, got %d %d", mock.lastOffset, mock.lastLimit)
	}
}

func TestTrackStatsPassThrough(t *testing.T) {
	mock := &MockLibrary{stats: &music.TrackStats{Count: 3, TotalDuration: 700}}
	service := NewService(mock, nil)

	stats, err := service.TrackStats(context.Background(), music.SearchFilter{})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if stats.Count != 3 || stats.TotalDuration != 700 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestGetTrackMissReturnsNil(t *testing.T) {
	mock := &MockLibrary{tracks: map[int64]*music.Track{}}
	service := NewService(mock, nil)

	track, err := service.GetTrack(context.Background(), 99)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if track != nil {
		t.Errorf("expected nil track, got %+v", track)
	}
}

func TestAddTrackValidatesFirst(t *testing.T) {
	mock := &MockLibrary{}
	service := NewService(mock, nil)

	err := service.AddTrack(context.Background(), &music.Track{})
	if err == nil {
		t.Fatal("expected validation error for empty path")
	}
	if len(mock.added) != 0 {
		t.Error("expected invalid track never to reach the library")
	}

	track := &music.Track{Path: "/music/a.mp3", DirectoryID: 1}
	if err := service.AddTrack(context.Background(), track); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(mock.added) != 1 {
		t.Errorf("expected 1 add, got %d", len(mock.added))
	}
}

func TestAddDirectoryValidatesPath(t *testing.T) {
	mock := &MockLibrary{}
	service := NewService(mock, nil)

	if _, err := service.AddDirectory(context.Background(), ""); err == nil {
		t.Fatal("expected validation error for empty path")
	}

	dir, err := service.AddDirectory(context.Background(), "/music")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if dir.ID != 7 || dir.Path != "/music" {
		t.Errorf("unexpected directory: %+v", dir)
	}
}

func TestPageSizeDefault(t *testing.T) {
	service := NewService(&MockLibrary{}, config.NewManager(&config.Config{}))
	if got := service.PageSize(); got != 300 {
		t.Errorf("expected default 300, got %d", got)
	}

	service = NewService(&MockLibrary{}, config.NewManager(&config.Config{
		Library: config.Library{PageSize: 50},
	}))
	if got := service.PageSize(); got != 50 {
		t.Errorf("expected configured 50, got %d", got)
	}
}
