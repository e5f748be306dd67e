package scan

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dhowden/tag"

	"chorale/src/features/config"
	"chorale/src/features/scanning"
	"chorale/src/music"
)

var supportedExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".m4a":  true,
}

// Walker reconciles the store with the files under the registered
// media directories. It implements scanning.Scanner.
type Walker struct {
	library       music.Library
	configManager *config.Manager
}

// NewWalker creates a new filesystem walker.
func NewWalker(lib music.Library, cfgManager *config.Manager) *Walker {
	return &Walker{
		library:       lib,
		configManager: cfgManager,
	}
}

func (w *Walker) batchSize() int {
	size := w.configManager.Get().Scanner.BatchSize
	if size <= 0 {
		size = 300
	}
	return size
}

// Scan walks every registered directory, upserting changed files in
// batched transactions, then removes tracks whose files are gone and
// prunes orphaned genres.
func (w *Walker) Scan(ctx context.Context) (*scanning.Report, error) {
	report := &scanning.Report{Started: time.Now()}

	dirs, err := w.library.ListDirectories(ctx)
	if err != nil {
		return nil, err
	}

	for _, dir := range dirs {
		if err := w.scanDirectory(ctx, dir, report); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Error("Directory scan failed", "path", dir.Path, "error", err)
		}
	}

	pruned, err := w.library.PruneGenres(ctx)
	if err != nil {
		slog.Error("Genre prune failed", "error", err)
	}
	report.Pruned = pruned

	report.Ended = time.Now()
	return report, nil
}

func (w *Walker) scanDirectory(ctx context.Context, dir *music.MediaDirectory, report *scanning.Report) error {
	slog.Info("Scanning directory", "path", dir.Path)

	known, err := w.library.ListTrackPaths(ctx, dir.ID)
	if err != nil {
		return err
	}

	var files []string
	err = filepath.WalkDir(dir.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("Skipping unreadable entry", "path", path, "error", err)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		if supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(files))
	batchSize := w.batchSize()

	for start := 0; start < len(files); start += batchSize {
		end := min(start+batchSize, len(files))
		batch := files[start:end]

		err := w.library.RunInBatch(ctx, func(writer music.LibraryWriter) error {
			for _, path := range batch {
				seen[path] = true
				if err := w.upsertFile(ctx, writer, dir, path, report); err != nil {
					slog.Warn("Skipping file", "path", path, "error", err)
					report.Skipped++
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	// Remove tracks whose files disappeared.
	var gone []int64
	for path, id := range known {
		if !seen[path] {
			gone = append(gone, id)
		}
	}
	for start := 0; start < len(gone); start += batchSize {
		end := min(start+batchSize, len(gone))
		batch := gone[start:end]

		err := w.library.RunInBatch(ctx, func(writer music.LibraryWriter) error {
			for _, id := range batch {
				if err := writer.DeleteTrack(ctx, id); err != nil {
					return err
				}
				report.Removed++
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (w *Walker) upsertFile(ctx context.Context, writer music.LibraryWriter, dir *music.MediaDirectory, path string, report *scanning.Report) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	existing, err := writer.FindTrackByPath(ctx, path)
	if err != nil {
		return err
	}
	if existing != nil && !info.ModTime().UTC().After(existing.ModifiedDate) {
		return nil
	}

	track, err := readFileTags(path)
	if err != nil {
		return err
	}
	track.DirectoryID = dir.ID

	if existing != nil {
		track.ID = existing.ID
		if err := writer.UpdateTrack(ctx, track); err != nil {
			return err
		}
		report.Updated++
		return nil
	}

	if err := writer.AddTrack(ctx, track); err != nil {
		return err
	}
	report.Added++
	return nil
}

// readFileTags builds a track from a file's embedded tags.
func readFileTags(path string) (*music.Track, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	tags, err := tag.ReadFrom(file)
	if err != nil {
		return nil, err
	}

	trackNumber, _ := tags.Track()
	discNumber, _ := tags.Disc()

	track := &music.Track{
		Path:        path,
		Title:       tags.Title(),
		ArtistName:  tags.Artist(),
		ReleaseName: tags.Album(),
		TrackNumber: trackNumber,
		DiscNumber:  discNumber,
		Duration:    rawDuration(tags),
	}

	if track.Title == "" {
		track.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	if year := tags.Year(); year > 0 {
		track.ReleaseDate = time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if year := rawOriginalYear(tags); year > 0 {
		track.OriginalDate = time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	for _, name := range parseGenres(tags.Genre()) {
		track.Genres = append(track.Genres, &music.Genre{Name: name})
	}

	return track, nil
}

// parseGenres splits a genre tag on common delimiters.
func parseGenres(genreString string) []string {
	if strings.TrimSpace(genreString) == "" {
		return nil
	}

	delimiters := []string{";", "/", ","}
	for _, delim := range delimiters {
		if strings.Contains(genreString, delim) {
			parts := strings.Split(genreString, delim)
			names := make([]string, 0, len(parts))
			for _, part := range parts {
				if trimmed := strings.TrimSpace(part); trimmed != "" {
					names = append(names, trimmed)
				}
			}
			if len(names) > 0 {
				return names
			}
		}
	}

	return []string{strings.TrimSpace(genreString)}
}

// rawDuration digs a track length out of the raw tag frames. MP3 files
// carry TLEN in milliseconds; some taggers write a plain "length"
// field in seconds.
func rawDuration(tags tag.Metadata) int {
	raw := tags.Raw()
	for _, key := range []string{"TLEN", "length", "LENGTH"} {
		value, ok := raw[key]
		if !ok {
			continue
		}
		text, ok := value.(string)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil || n <= 0 {
			continue
		}
		if key == "TLEN" {
			return n / 1000
		}
		return n
	}
	return 0
}

// rawOriginalYear reads the original release year frame when present.
func rawOriginalYear(tags tag.Metadata) int {
	raw := tags.Raw()
	for _, key := range []string{"TDOR", "TORY", "originaldate", "ORIGINALDATE", "originalyear", "ORIGINALYEAR"} {
		value, ok := raw[key]
		if !ok {
			continue
		}
		text, ok := value.(string)
		if !ok {
			continue
		}
		text = strings.TrimSpace(text)
		if len(text) >= 4 {
			if year, err := strconv.Atoi(text[:4]); err == nil && year > 0 {
				return year
			}
		}
	}
	return 0
}
