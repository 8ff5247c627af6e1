package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GenerationCycles counts finished regeneration cycles by the state they
	// published: "ready", "empty_input" or "encoding_failure".
	GenerationCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrgen_generation_cycles_total",
			Help: "Regeneration cycles that published a result",
		},
		[]string{"outcome"},
	)

	SupersededCycles = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qrgen_generation_superseded_total",
			Help: "Regeneration cycles whose result was dropped because newer parameters arrived",
		},
	)

	EncodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qrgen_encode_duration_seconds",
			Help:    "Duration of a single encode request",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"format"},
	)

	Exports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrgen_exports_total",
			Help: "Download requests by format and whether a file was served",
		},
		[]string{"format", "served"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "qrgen_sessions_active",
			Help: "Open studio sessions",
		},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrgen_render_cache_lookups_total",
			Help: "Render cache lookups by format and result",
		},
		[]string{"format", "result"},
	)
)
