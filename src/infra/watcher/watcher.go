package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"chorale/src/features/config"
	"chorale/src/features/scanning"
)

// Watcher monitors the registered media directories and requests a
// rescan when media files change. Events are debounced so a copy of a
// whole album triggers one scan, not one per file.
type Watcher struct {
	watcher       *fsnotify.Watcher
	scanService   *scanning.Service
	configManager *config.Manager

	debounceTimer *time.Timer
	debounceMutex sync.Mutex
	running       bool
	stopChan      chan struct{}
}

// NewWatcher creates a new file system watcher.
func NewWatcher(scanService *scanning.Service, cfgManager *config.Manager) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:       fsWatcher,
		scanService:   scanService,
		configManager: cfgManager,
		stopChan:      make(chan struct{}),
	}, nil
}

// Start begins watching the given directory paths.
func (w *Watcher) Start(ctx context.Context, paths []string) error {
	for _, path := range paths {
		if err := w.watcher.Add(path); err != nil {
			slog.Warn("Failed to watch directory", "path", path, "error", err)
			continue
		}
		slog.Info("Watching media directory", "path", path)
	}

	w.running = true
	go w.watchLoop(ctx)

	slog.Info("File watcher started")
	return nil
}

// Stop stops the file watcher.
func (w *Watcher) Stop() {
	if !w.running {
		return
	}

	slog.Info("Stopping file watcher")
	w.running = false
	close(w.stopChan)

	w.debounceMutex.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.debounceMutex.Unlock()

	w.watcher.Close()
}

func (w *Watcher) debounce() time.Duration {
	secs := w.configManager.Get().Scanner.DebounceSeconds
	if secs <= 0 {
		secs = 10
	}
	return time.Duration(secs) * time.Second
}

// watchLoop processes file system events
func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", "error", err)

		case <-w.stopChan:
			return

		case <-ctx.Done():
			return
		}
	}
}

// handleEvent processes a single file system event
func (w *Watcher) handleEvent(event fsnotify.Event) {
	relevant := event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
	if !relevant || !w.isSupportedFile(event.Name) {
		return
	}

	slog.Debug("Detected media file change", "file", event.Name, "op", event.Op.String())

	w.debounceMutex.Lock()
	defer w.debounceMutex.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounce(), w.requestScan)
}

// isSupportedFile checks if the file is a supported audio format
func (w *Watcher) isSupportedFile(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	supportedExtensions := map[string]bool{
		".mp3":  true,
		".flac": true,
		".ogg":  true,
		".m4a":  true,
	}
	return supportedExtensions[ext]
}

// requestScan flags a scan after the debounce window closes
func (w *Watcher) requestScan() {
	if err := w.scanService.RequestScan(context.Background()); err != nil {
		slog.Error("Failed to request scan from watcher", "error", err)
	}
}
