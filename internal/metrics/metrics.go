package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imageforge_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imageforge_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "imageforge_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Session lifecycle metrics
var (
	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "imageforge_sessions_created_total",
			Help: "Total number of upload sessions created",
		},
	)

	SessionsDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imageforge_sessions_deleted_total",
			Help: "Total number of sessions deleted, by trigger",
		},
		[]string{"trigger"}, // "deferred", "sweep", "manual"
	)

	AssetsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imageforge_assets_ingested_total",
			Help: "Total number of assets ingested, by source",
		},
		[]string{"source"}, // "direct", "fromArchive"
	)
)

// Pipeline metrics
var (
	AssetsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imageforge_assets_processed_total",
			Help: "Total number of assets run through the pipeline, by outcome",
		},
		[]string{"outcome"}, // "success", "failure"
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imageforge_pipeline_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"}, // "normalize", "background", "resize", "optimize"
	)

	StageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imageforge_pipeline_stage_failures_total",
			Help: "Total number of pipeline stage failures, by stage",
		},
		[]string{"stage"},
	)

	SizeReductionPercent = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "imageforge_size_reduction_percent",
			Help:    "Achieved size reduction per successfully processed asset",
			Buckets: []float64{0, 5, 10, 20, 30, 50, 70, 90},
		},
	)
)

// Delivery metrics
var (
	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imageforge_downloads_total",
			Help: "Total number of completed downloads, by deliverable kind",
		},
		[]string{"kind"}, // "single", "archive"
	)

	SweepRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "imageforge_sweep_runs_total",
			Help: "Total number of retention sweep runs",
		},
	)
)
