package metrics

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// LibraryCounter exposes the aggregate counts the gauges scrape.
type LibraryCounter interface {
	TotalTracks(ctx context.Context) (int, error)
	TotalArtists(ctx context.Context) (int, error)
	TotalGenres(ctx context.Context) (int, error)
	TotalDuration(ctx context.Context) (int64, error)
}

// Service registers and owns the Prometheus collectors.
type Service struct {
	registry *prometheus.Registry

	ScansTotal       prometheus.Counter
	ScanErrorsTotal  prometheus.Counter
	LoginsTotal      prometheus.Counter
	LoginErrorsTotal prometheus.Counter
}

// NewService builds the metric set over the given counter source.
func NewService(counter LibraryCounter) *Service {
	registry := prometheus.NewRegistry()

	s := &Service{
		registry: registry,
		ScansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chorale_scans_total",
			Help: "Number of completed library scans.",
		}),
		ScanErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chorale_scan_errors_total",
			Help: "Number of failed library scans.",
		}),
		LoginsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chorale_logins_total",
			Help: "Number of successful logins.",
		}),
		LoginErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chorale_login_errors_total",
			Help: "Number of rejected logins.",
		}),
	}

	registry.MustRegister(s.ScansTotal, s.ScanErrorsTotal, s.LoginsTotal, s.LoginErrorsTotal)

	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "chorale_library_tracks",
		Help: "Number of tracks in the library.",
	}, gaugeInt(counter.TotalTracks)))
	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "chorale_library_artists",
		Help: "Number of distinct artists in the library.",
	}, gaugeInt(counter.TotalArtists)))
	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "chorale_library_genres",
		Help: "Number of genres in the library.",
	}, gaugeInt(counter.TotalGenres)))
	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "chorale_library_duration_seconds",
		Help: "Total play time of the library in seconds.",
	}, func() float64 {
		total, err := counter.TotalDuration(context.Background())
		if err != nil {
			slog.Error("Metric scrape failed", "metric", "chorale_library_duration_seconds", "error", err)
			return 0
		}
		return float64(total)
	}))

	return s
}

// Registry returns the registry backing the /metrics endpoint.
func (s *Service) Registry() *prometheus.Registry {
	return s.registry
}

func gaugeInt(get func(ctx context.Context) (int, error)) func() float64 {
	return func() float64 {
		n, err := get(context.Background())
		if err != nil {
			slog.Error("Metric scrape failed", "error", err)
			return 0
		}
		return float64(n)
	}
}
