package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"chorale/src/music"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite implementation of the music.Library interface.
// The database runs in WAL mode so reader sessions never wait on the
// single background writer.
type Store struct {
	db           *sql.DB
	releaseMatch music.ReleaseMatch
}

// queryer is satisfied by both *sql.DB and *sql.Tx so the same
// statement helpers serve single-call transactions and batches.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewStore opens the database at path and bootstraps the schema.
// Schema creation is idempotent; index or table failures are logged
// and the store stays usable for whatever succeeded.
func NewStore(path string, releaseMatch music.ReleaseMatch) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if releaseMatch != music.ReleaseMatchPrefix {
		releaseMatch = music.ReleaseMatchExact
	}

	if err := createSchema(db); err != nil {
		slog.Error("Cannot create schema", "error", err)
	}

	return &Store{db: db, releaseMatch: releaseMatch}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS media_directories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL UNIQUE,
			added_date TEXT
		);

		CREATE TABLE IF NOT EXISTS directory_settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			manual_scan_requested INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS tracks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL DEFAULT '',
			artist_name TEXT NOT NULL DEFAULT '',
			release_name TEXT NOT NULL DEFAULT '',
			track_number INTEGER NOT NULL DEFAULT 0,
			disc_number INTEGER NOT NULL DEFAULT 0,
			duration INTEGER NOT NULL DEFAULT 0 CHECK (duration >= 0),
			release_date TEXT NOT NULL DEFAULT '',
			original_date TEXT NOT NULL DEFAULT '',
			directory_id INTEGER NOT NULL REFERENCES media_directories(id),
			added_date TEXT,
			modified_date TEXT
		);

		CREATE TABLE IF NOT EXISTS genres (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		);

		CREATE TABLE IF NOT EXISTS track_genres (
			track_id INTEGER NOT NULL,
			genre_id INTEGER NOT NULL,
			PRIMARY KEY (track_id, genre_id),
			FOREIGN KEY (track_id) REFERENCES tracks(id),
			FOREIGN KEY (genre_id) REFERENCES genres(id)
		);

		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL DEFAULT '',
			is_admin INTEGER NOT NULL DEFAULT 0,
			created_date TEXT
		);

		CREATE TABLE IF NOT EXISTS auth_identities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			login_name TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			hash_algorithm TEXT NOT NULL DEFAULT 'bcrypt',
			failed_attempts INTEGER NOT NULL DEFAULT 0,
			last_failure TEXT NOT NULL DEFAULT '',
			user_id INTEGER REFERENCES users(id),
			created_date TEXT
		);

		CREATE TABLE IF NOT EXISTS auth_tokens (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			identity_id INTEGER NOT NULL REFERENCES auth_identities(id),
			value TEXT NOT NULL UNIQUE,
			expires TEXT NOT NULL
		);

		INSERT OR IGNORE INTO directory_settings (id, manual_scan_requested) VALUES (1, 0);
	`)
	if err != nil {
		return err
	}

	// Secondary indices keep the equality and text filters sub-linear.
	// A failure here is logged by the caller but never aborts startup.
	indices := []string{
		`CREATE INDEX IF NOT EXISTS artist_name_idx ON tracks(artist_name)`,
		`CREATE INDEX IF NOT EXISTS release_name_idx ON tracks(release_name)`,
		`CREATE INDEX IF NOT EXISTS genre_name_idx ON genres(name)`,
		`CREATE INDEX IF NOT EXISTS track_directory_idx ON tracks(directory_id)`,
		`CREATE INDEX IF NOT EXISTS track_genres_genre_idx ON track_genres(genre_id)`,
	}
	for _, stmt := range indices {
		if _, err := db.Exec(stmt); err != nil {
			slog.Error("Cannot create index", "stmt", stmt, "error", err)
		}
	}

	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// AddTrack adds a track and its genre links to the database.
func (s *Store) AddTrack(ctx context.Context, track *music.Track) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertTrack(ctx, tx, track); err != nil {
		return err
	}
	return tx.Commit()
}

func insertTrack(ctx context.Context, q queryer, track *music.Track) error {
	if err := track.Validate(); err != nil {
		slog.Error("AddTrack: validation failed", "error", err, "path", track.Path)
		return err
	}

	now := time.Now()
	track.AddedDate = now
	track.ModifiedDate = now

	res, err := q.ExecContext(ctx, `
		INSERT INTO tracks (path, title, artist_name, release_name, track_number, disc_number,
			duration, release_date, original_date, directory_id, added_date, modified_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, track.Path, track.Title, track.ArtistName, track.ReleaseName, track.TrackNumber, track.DiscNumber,
		track.Duration, formatDate(track.ReleaseDate), formatDate(track.OriginalDate), track.DirectoryID,
		formatDate(now), formatDate(now))
	if err != nil {
		return err
	}
	track.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}

	return setTrackGenres(ctx, q, track)
}

// UpdateTrack updates a track and replaces its genre links.
func (s *Store) UpdateTrack(ctx context.Context, track *music.Track) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := updateTrack(ctx, tx, track); err != nil {
		return err
	}
	return tx.Commit()
}

func updateTrack(ctx context.Context, q queryer, track *music.Track) error {
	if err := track.Validate(); err != nil {
		slog.Error("UpdateTrack: validation failed", "error", err, "trackID", track.ID)
		return err
	}

	track.ModifiedDate = time.Now()
	_, err := q.ExecContext(ctx, `
		UPDATE tracks
		SET path = ?, title = ?, artist_name = ?, release_name = ?, track_number = ?,
			disc_number = ?, duration = ?, release_date = ?, original_date = ?,
			directory_id = ?, modified_date = ?
		WHERE id = ?
	`, track.Path, track.Title, track.ArtistName, track.ReleaseName, track.TrackNumber,
		track.DiscNumber, track.Duration, formatDate(track.ReleaseDate), formatDate(track.OriginalDate),
		track.DirectoryID, formatDate(track.ModifiedDate), track.ID)
	if err != nil {
		return err
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM track_genres WHERE track_id = ?`, track.ID); err != nil {
		return err
	}
	return setTrackGenres(ctx, q, track)
}

func setTrackGenres(ctx context.Context, q queryer, track *music.Track) error {
	for _, genre := range track.Genres {
		if genre.ID == 0 {
			g, err := getOrCreateGenre(ctx, q, genre.Name)
			if err != nil {
				return err
			}
			genre.ID = g.ID
		}
		_, err := q.ExecContext(ctx, `
			INSERT OR IGNORE INTO track_genres (track_id, genre_id) VALUES (?, ?)
		`, track.ID, genre.ID)
		if err != nil {
			return err
		}
	}
	return nil
}

// DeleteTrack deletes a track and its genre links.
func (s *Store) DeleteTrack(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := deleteTrack(ctx, tx, id); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteTrack(ctx context.Context, q queryer, id int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM track_genres WHERE track_id = ?`, id); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `DELETE FROM tracks WHERE id = ?`, id)
	return err
}

const trackColumns = `id, path, title, artist_name, release_name, track_number, disc_number,
	duration, release_date, original_date, directory_id, added_date, modified_date`

func scanTrack(row *sql.Row) (*music.Track, error) {
	track := &music.Track{}
	var releaseDate, originalDate, addedDate, modifiedDate string
	err := row.Scan(&track.ID, &track.Path, &track.Title, &track.ArtistName, &track.ReleaseName,
		&track.TrackNumber, &track.DiscNumber, &track.Duration, &releaseDate, &originalDate,
		&track.DirectoryID, &addedDate, &modifiedDate)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	track.ReleaseDate = parseDate(releaseDate)
	track.OriginalDate = parseDate(originalDate)
	track.AddedDate = parseDate(addedDate)
	track.ModifiedDate = parseDate(modifiedDate)
	return track, nil
}

// GetTrack gets a track by id, with its genres loaded.
func (s *Store) GetTrack(ctx context.Context, id int64) (*music.Track, error) {
	track, err := scanTrack(s.db.QueryRowContext(ctx, `SELECT `+trackColumns+` FROM tracks WHERE id = ?`, id))
	if err != nil || track == nil {
		return nil, err
	}
	if err := s.loadTrackGenres(ctx, track); err != nil {
		return nil, err
	}
	return track, nil
}

// FindTrackByPath gets a track by its file path.
func (s *Store) FindTrackByPath(ctx context.Context, path string) (*music.Track, error) {
	return findTrackByPath(ctx, s.db, path)
}

func findTrackByPath(ctx context.Context, q queryer, path string) (*music.Track, error) {
	return scanTrack(q.QueryRowContext(ctx, `SELECT `+trackColumns+` FROM tracks WHERE path = ?`, path))
}

// ListTrackPaths maps every stored path under a directory to its track id.
func (s *Store) ListTrackPaths(ctx context.Context, directoryID int64) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, id FROM tracks WHERE directory_id = ?`, directoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list track paths: %w", err)
	}
	defer rows.Close()

	paths := make(map[string]int64)
	for rows.Next() {
		var path string
		var id int64
		if err := rows.Scan(&path, &id); err != nil {
			return nil, err
		}
		paths[path] = id
	}
	return paths, rows.Err()
}

func (s *Store) loadTrackGenres(ctx context.Context, track *music.Track) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, g.name
		FROM track_genres tg
		JOIN genres g ON g.id = tg.genre_id
		WHERE tg.track_id = ?
		ORDER BY g.name
	`, track.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		genre := &music.Genre{}
		if err := rows.Scan(&genre.ID, &genre.Name); err != nil {
			return err
		}
		track.Genres = append(track.Genres, genre)
	}
	return rows.Err()
}

// trackPredicate translates a filter into WHERE conditions and args.
// SearchTracks and TrackStats both build their statements from this
// single routine, so rows and aggregates always agree.
func (s *Store) trackPredicate(filter music.SearchFilter) ([]string, []any) {
	conditions := []string{}
	args := []any{}

	if filter.GenreID != 0 {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM track_genres tg WHERE tg.track_id = t.id AND tg.genre_id = ?)")
		args = append(args, filter.GenreID)
	}
	if filter.DirectoryID != 0 {
		conditions = append(conditions, "t.directory_id = ?")
		args = append(args, filter.DirectoryID)
	}
	if filter.ReleaseName != "" {
		if s.releaseMatch == music.ReleaseMatchPrefix {
			conditions = append(conditions, "t.release_name LIKE ? ESCAPE '\\'")
			args = append(args, likeEscape(filter.ReleaseName)+"%")
		} else {
			conditions = append(conditions, "t.release_name = ?")
			args = append(args, filter.ReleaseName)
		}
	}
	if filter.Text != "" {
		pattern := "%" + likeEscape(strings.ToLower(filter.Text)) + "%"
		conditions = append(conditions, `(LOWER(t.artist_name) LIKE ? ESCAPE '\' OR LOWER(t.release_name) LIKE ? ESCAPE '\' OR LOWER(t.title) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}

	return conditions, args
}

func likeEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}

func orderBy(sort music.SortKey, dir music.SortDirection) (string, error) {
	var cols []string
	switch sort {
	case music.SortArtist:
		cols = []string{"t.artist_name COLLATE NOCASE"}
	case music.SortRelease:
		cols = []string{"t.release_name COLLATE NOCASE"}
	case music.SortDiscTrack:
		cols = []string{"t.disc_number", "t.track_number"}
	case music.SortTitle:
		cols = []string{"t.title COLLATE NOCASE"}
	case music.SortDuration:
		cols = []string{"t.duration"}
	case music.SortDate:
		cols = []string{"t.release_date"}
	case music.SortOriginalDate:
		cols = []string{"t.original_date"}
	default:
		return "", fmt.Errorf("%w: sort key %q", music.ErrInvalidSort, sort)
	}

	var direction string
	switch dir {
	case music.SortAsc:
		direction = "ASC"
	case music.SortDesc:
		direction = "DESC"
	default:
		return "", fmt.Errorf("%w: direction %q", music.ErrInvalidSort, dir)
	}

	for i := range cols {
		cols[i] += " " + direction
	}
	// Final id tiebreak keeps the ordering stable across pages.
	cols = append(cols, "t.id ASC")
	return strings.Join(cols, ", "), nil
}

// SearchTracks returns the filtered row projection, ordered and
// paginated. offset=-1, limit=-1 returns every matching row, e.g. for
// building a playback queue from the full filtered result.
func (s *Store) SearchTracks(ctx context.Context, filter music.SearchFilter, sort music.SortKey, dir music.SortDirection, offset, limit int) ([]*music.TrackRow, error) {
	order, err := orderBy(sort, dir)
	if err != nil {
		return nil, err
	}

	conditions, args := s.trackPredicate(filter)

	query := `
		SELECT t.id, t.artist_name, t.release_name, t.disc_number, t.track_number, t.title,
			t.duration, t.release_date, t.original_date,
			COALESCE((
				SELECT group_concat(name, ', ') FROM (
					SELECT g.name FROM track_genres tg
					JOIN genres g ON g.id = tg.genre_id
					WHERE tg.track_id = t.id
					ORDER BY g.name
				)
			), '') AS genres
		FROM tracks t`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY " + order
	if limit >= 0 {
		query += " LIMIT ? OFFSET ?"
		if offset < 0 {
			offset = 0
		}
		args = append(args, limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []*music.TrackRow{}
	for rows.Next() {
		row := &music.TrackRow{}
		var releaseDate, originalDate string
		err := rows.Scan(&row.ID, &row.ArtistName, &row.ReleaseName, &row.DiscNumber, &row.TrackNumber,
			&row.Title, &row.Duration, &releaseDate, &originalDate, &row.Genres)
		if err != nil {
			return nil, err
		}
		row.ReleaseDate = parseDate(releaseDate)
		row.OriginalDate = parseDate(originalDate)
		result = append(result, row)
	}
	return result, rows.Err()
}

// TrackStats returns the row count and summed duration over the same
// predicate SearchTracks applies for the given filter. An empty result
// is valid and yields {0, 0}.
func (s *Store) TrackStats(ctx context.Context, filter music.SearchFilter) (*music.TrackStats, error) {
	conditions, args := s.trackPredicate(filter)

	query := `SELECT COUNT(t.id), COALESCE(SUM(t.duration), 0) FROM tracks t`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	stats := &music.TrackStats{}
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&stats.Count, &stats.TotalDuration); err != nil {
		return nil, err
	}
	return stats, nil
}

// GetGenre gets a genre by id.
func (s *Store) GetGenre(ctx context.Context, id int64) (*music.Genre, error) {
	genre := &music.Genre{}
	err := s.db.QueryRowContext(ctx, `SELECT id, name FROM genres WHERE id = ?`, id).Scan(&genre.ID, &genre.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return genre, nil
}

// GetGenreByName gets a genre by its exact, case-sensitive name.
func (s *Store) GetGenreByName(ctx context.Context, name string) (*music.Genre, error) {
	return getGenreByName(ctx, s.db, name)
}

func getGenreByName(ctx context.Context, q queryer, name string) (*music.Genre, error) {
	genre := &music.Genre{}
	err := q.QueryRowContext(ctx, `SELECT id, name FROM genres WHERE name = ?`, name).Scan(&genre.ID, &genre.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return genre, nil
}

// GetOrCreateGenre finds a genre by name or creates it.
func (s *Store) GetOrCreateGenre(ctx context.Context, name string) (*music.Genre, error) {
	return getOrCreateGenre(ctx, s.db, name)
}

func getOrCreateGenre(ctx context.Context, q queryer, name string) (*music.Genre, error) {
	genre := &music.Genre{Name: name}
	if err := genre.Validate(); err != nil {
		return nil, err
	}

	existing, err := getGenreByName(ctx, q, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	res, err := q.ExecContext(ctx, `INSERT INTO genres (name) VALUES (?)`, name)
	if err != nil {
		// Lost a create race: the unique index means the row now exists.
		if existing, lookupErr := getGenreByName(ctx, q, name); lookupErr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}
	genre.ID, err = res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return genre, nil
}

// ListGenres returns all genres ordered by name.
func (s *Store) ListGenres(ctx context.Context) ([]*music.Genre, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM genres ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	genres := []*music.Genre{}
	for rows.Next() {
		genre := &music.Genre{}
		if err := rows.Scan(&genre.ID, &genre.Name); err != nil {
			return nil, err
		}
		genres = append(genres, genre)
	}
	return genres, rows.Err()
}

// PruneGenres deletes genres no track references anymore. The scanner
// calls this after a scan; the store never prunes on its own.
func (s *Store) PruneGenres(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM genres
		WHERE NOT EXISTS (SELECT 1 FROM track_genres tg WHERE tg.genre_id = genres.id)
	`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetDirectory gets a media directory by id.
func (s *Store) GetDirectory(ctx context.Context, id int64) (*music.MediaDirectory, error) {
	dir := &music.MediaDirectory{}
	var addedDate string
	err := s.db.QueryRowContext(ctx, `SELECT id, path, added_date FROM media_directories WHERE id = ?`, id).
		Scan(&dir.ID, &dir.Path, &addedDate)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	dir.AddedDate = parseDate(addedDate)
	return dir, nil
}

// GetOrCreateDirectory finds a media directory by path or creates it.
func (s *Store) GetOrCreateDirectory(ctx context.Context, path string) (*music.MediaDirectory, error) {
	dir := &music.MediaDirectory{Path: path}
	if err := dir.Validate(); err != nil {
		return nil, err
	}

	var addedDate string
	err := s.db.QueryRowContext(ctx, `SELECT id, path, added_date FROM media_directories WHERE path = ?`, path).
		Scan(&dir.ID, &dir.Path, &addedDate)
	if err == nil {
		dir.AddedDate = parseDate(addedDate)
		return dir, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	dir.AddedDate = time.Now()
	res, err := s.db.ExecContext(ctx, `INSERT INTO media_directories (path, added_date) VALUES (?, ?)`,
		path, formatDate(dir.AddedDate))
	if err != nil {
		return nil, err
	}
	dir.ID, err = res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return dir, nil
}

// ListDirectories returns all media directories ordered by path.
func (s *Store) ListDirectories(ctx context.Context) ([]*music.MediaDirectory, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, path, added_date FROM media_directories ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dirs := []*music.MediaDirectory{}
	for rows.Next() {
		dir := &music.MediaDirectory{}
		var addedDate string
		if err := rows.Scan(&dir.ID, &dir.Path, &addedDate); err != nil {
			return nil, err
		}
		dir.AddedDate = parseDate(addedDate)
		dirs = append(dirs, dir)
	}
	return dirs, rows.Err()
}

// DeleteDirectory deletes a media directory and cascades to its
// tracks, all inside one transaction.
func (s *Store) DeleteDirectory(ctx context.Context, id int64) error {
	slog.Debug("DeleteDirectory called", "directoryID", id)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM track_genres
		WHERE track_id IN (SELECT id FROM tracks WHERE directory_id = ?)
	`, id)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tracks WHERE directory_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM media_directories WHERE id = ?`, id); err != nil {
		return err
	}

	return tx.Commit()
}

// Settings returns the singleton directory-settings record.
func (s *Store) Settings(ctx context.Context) (*music.DirectorySettings, error) {
	settings := &music.DirectorySettings{}
	err := s.db.QueryRowContext(ctx, `SELECT manual_scan_requested FROM directory_settings WHERE id = 1`).
		Scan(&settings.ManualScanRequested)
	if err != nil {
		if err == sql.ErrNoRows {
			return &music.DirectorySettings{}, nil
		}
		return nil, err
	}
	return settings, nil
}

// SetManualScanRequested sets the manual-scan flag on the settings
// singleton.
func (s *Store) SetManualScanRequested(ctx context.Context, requested bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE directory_settings SET manual_scan_requested = ? WHERE id = 1`, requested)
	return err
}

// ConsumeManualScanRequest reads and clears the manual-scan flag in
// one transaction, so exactly one coordinator poll observes it.
func (s *Store) ConsumeManualScanRequest(ctx context.Context) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var requested bool
	err = tx.QueryRowContext(ctx, `SELECT manual_scan_requested FROM directory_settings WHERE id = 1`).Scan(&requested)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	if requested {
		if _, err := tx.ExecContext(ctx, `UPDATE directory_settings SET manual_scan_requested = 0 WHERE id = 1`); err != nil {
			return false, err
		}
	}
	return requested, tx.Commit()
}

// batchWriter applies scanner mutations inside one shared transaction.
type batchWriter struct {
	tx *sql.Tx
}

func (w *batchWriter) AddTrack(ctx context.Context, track *music.Track) error {
	return insertTrack(ctx, w.tx, track)
}

func (w *batchWriter) UpdateTrack(ctx context.Context, track *music.Track) error {
	return updateTrack(ctx, w.tx, track)
}

func (w *batchWriter) DeleteTrack(ctx context.Context, id int64) error {
	return deleteTrack(ctx, w.tx, id)
}

func (w *batchWriter) FindTrackByPath(ctx context.Context, path string) (*music.Track, error) {
	return findTrackByPath(ctx, w.tx, path)
}

func (w *batchWriter) GetOrCreateGenre(ctx context.Context, name string) (*music.Genre, error) {
	return getOrCreateGenre(ctx, w.tx, name)
}

// RunInBatch runs fn with a writer whose mutations commit atomically.
// The scanner keeps batches short so WAL readers are never starved,
// and a cancelled scan rolls back cleanly.
func (s *Store) RunInBatch(ctx context.Context, fn func(w music.LibraryWriter) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&batchWriter{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// TotalTracks returns the total number of indexed tracks.
func (s *Store) TotalTracks(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracks`).Scan(&count)
	return count, err
}

// TotalArtists returns the number of distinct non-empty artist names.
func (s *Store) TotalArtists(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT artist_name) FROM tracks WHERE artist_name != ''`).Scan(&count)
	return count, err
}

// TotalGenres returns the number of genres.
func (s *Store) TotalGenres(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM genres`).Scan(&count)
	return count, err
}

// TotalDuration returns the summed duration of all tracks in seconds.
func (s *Store) TotalDuration(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(duration), 0) FROM tracks`).Scan(&total)
	return total, err
}
