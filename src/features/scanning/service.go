package scanning

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"chorale/src/features/config"
	"chorale/src/music"
)

// Scanner walks the registered media directories and reconciles the
// store with what is on disk.
type Scanner interface {
	Scan(ctx context.Context) (*Report, error)
}

// Report summarizes one scan pass.
type Report struct {
	Added   int       `json:"added"`
	Updated int       `json:"updated"`
	Removed int       `json:"removed"`
	Skipped int       `json:"skipped"`
	Pruned  int64     `json:"prunedGenres"`
	Started time.Time `json:"started"`
	Ended   time.Time `json:"ended"`
}

// Status is a snapshot of the coordinator state.
type Status struct {
	Running  bool    `json:"running"`
	Scanning bool    `json:"scanning"`
	LastScan *Report `json:"lastScan,omitempty"`
	LastErr  string  `json:"lastError,omitempty"`
}

// Service is the update coordinator. All writes triggered by scans go
// through one background goroutine, so the store never sees two
// concurrent scan writers.
type Service struct {
	scanner       Scanner
	library       music.Library
	configManager *config.Manager

	// restartMu serializes Restart against itself and Start/Stop.
	restartMu sync.Mutex

	scansTotal      prometheus.Counter
	scanErrorsTotal prometheus.Counter

	mu       sync.Mutex
	running  bool
	scanning bool
	lastScan *Report
	lastErr  error
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewService creates a new scanning service.
func NewService(scanner Scanner, lib music.Library, cfgManager *config.Manager) *Service {
	return &Service{
		scanner:       scanner,
		library:       lib,
		configManager: cfgManager,
	}
}

// SetCounters wires the scan outcome counters. Optional; without them
// scans are only logged.
func (s *Service) SetCounters(scans, scanErrors prometheus.Counter) {
	s.scansTotal = scans
	s.scanErrorsTotal = scanErrors
}

// Start launches the coordinator loop. It polls the persisted scan
// request flag and runs at most one scan at a time.
func (s *Service) Start() {
	s.restartMu.Lock()
	defer s.restartMu.Unlock()
	s.start()
}

func (s *Service) start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(ctx, s.done)
	slog.Info("Update coordinator started")
}

// Stop cancels the coordinator loop and waits for it to drain.
func (s *Service) Stop() {
	s.restartMu.Lock()
	defer s.restartMu.Unlock()
	s.stop()
}

func (s *Service) stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.running = false
	s.mu.Unlock()

	cancel()
	<-done
	slog.Info("Update coordinator stopped")
}

// Restart stops and starts the coordinator. Concurrent restarts are
// serialized, so overlapping config changes cannot race the loop.
func (s *Service) Restart() {
	s.restartMu.Lock()
	defer s.restartMu.Unlock()
	s.stop()
	s.start()
}

// RequestScan persists a manual scan request. The coordinator picks it
// up on its next poll; requesting while a scan runs coalesces into one
// follow-up scan.
func (s *Service) RequestScan(ctx context.Context) error {
	slog.Info("Manual scan requested")
	return s.library.SetManualScanRequested(ctx, true)
}

// Status returns a snapshot of the coordinator state.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Running:  s.running,
		Scanning: s.scanning,
		LastScan: s.lastScan,
	}
	if s.lastErr != nil {
		st.LastErr = s.lastErr.Error()
	}
	return st
}

func (s *Service) pollInterval() time.Duration {
	secs := s.configManager.Get().Scanner.PollIntervalSeconds
	if secs <= 0 {
		secs = 5
	}
	return time.Duration(secs) * time.Second
}

func (s *Service) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.pollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			requested, err := s.library.ConsumeManualScanRequest(ctx)
			if err != nil {
				if ctx.Err() == nil {
					slog.Error("Failed to poll scan request", "error", err)
				}
				continue
			}
			if requested {
				s.runScan(ctx)
			}
		}
	}
}

func (s *Service) runScan(ctx context.Context) {
	s.mu.Lock()
	s.scanning = true
	s.mu.Unlock()

	slog.Info("Scan starting")
	report, err := s.scanner.Scan(ctx)

	s.mu.Lock()
	s.scanning = false
	s.lastErr = err
	if report != nil {
		s.lastScan = report
	}
	s.mu.Unlock()

	if err != nil {
		if s.scanErrorsTotal != nil {
			s.scanErrorsTotal.Inc()
		}
		slog.Error("Scan failed", "error", err)
		return
	}
	if s.scansTotal != nil {
		s.scansTotal.Inc()
	}
	slog.Info("Scan completed",
		"added", report.Added,
		"updated", report.Updated,
		"removed", report.Removed,
		"skipped", report.Skipped,
		"prunedGenres", report.Pruned,
		"took", report.Ended.Sub(report.Started).String(),
	)
}
