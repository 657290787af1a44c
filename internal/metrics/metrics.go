package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guest_gallery_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guest_gallery_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "guest_gallery_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Upload queue metrics
var (
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guest_gallery_uploads_total",
			Help: "Total number of processed uploads by outcome",
		},
		[]string{"kind", "status"},
	)

	UploadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guest_gallery_upload_duration_seconds",
			Help:    "End-to-end upload duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"kind"},
	)

	UploadBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guest_gallery_upload_bytes_total",
			Help: "Total bytes transferred to object storage",
		},
		[]string{"kind"},
	)

	UploadRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "guest_gallery_upload_retries_total",
			Help: "Total number of automatic upload retries",
		},
	)

	UploadQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "guest_gallery_upload_queue_depth",
			Help: "Number of items currently waiting in the upload queue",
		},
	)

	UploadsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "guest_gallery_uploads_in_progress",
			Help: "Number of uploads currently mid-transfer (at most 1 by design)",
		},
	)
)

// Preprocessing metrics
var (
	PreprocessTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guest_gallery_preprocess_total",
			Help: "Total number of preprocessing runs",
		},
		[]string{"operation", "status"},
	)

	PreprocessDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guest_gallery_preprocess_duration_seconds",
			Help:    "Preprocessing duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	PreprocessCompressionRatio = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "guest_gallery_preprocess_compression_ratio",
			Help:    "Output size as a fraction of input size for re-encoded images",
			Buckets: []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.7, 0.9, 1.0},
		},
	)
)

// Object storage metrics
var (
	ObjectStoreOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guest_gallery_object_store_operations_total",
			Help: "Total number of object storage operations",
		},
		[]string{"operation", "status"},
	)

	ObjectStoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guest_gallery_object_store_operation_duration_seconds",
			Help:    "Object storage operation duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)
)

// Record store metrics
var (
	RecordStoreOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guest_gallery_record_store_operations_total",
			Help: "Total number of record store operations",
		},
		[]string{"operation", "status"},
	)

	RecordStoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guest_gallery_record_store_operation_duration_seconds",
			Help:    "Record store operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"operation"},
	)
)

// Gallery metrics
var (
	GalleryRecordsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "guest_gallery_records_total",
			Help: "Total number of gallery records by kind",
		},
		[]string{"kind"},
	)

	GalleryPageFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guest_gallery_page_fetches_total",
			Help: "Total number of pager page fetches",
		},
		[]string{"page", "status"},
	)

	LiveClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "guest_gallery_live_clients",
			Help: "Number of connected live-update (SSE) clients",
		},
	)

	LiveEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guest_gallery_live_events_total",
			Help: "Total number of live events broadcast to clients",
		},
		[]string{"event"},
	)
)

// Bulk archive metrics
var (
	ArchiveRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guest_gallery_archive_runs_total",
			Help: "Total number of bulk archive runs",
		},
		[]string{"status"},
	)

	ArchiveAssetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guest_gallery_archive_assets_total",
			Help: "Total number of assets handled by the archiver",
		},
		[]string{"outcome"}, // "packed" or "fallback"
	)

	ArchiveRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "guest_gallery_archive_run_duration_seconds",
			Help:    "Bulk archive run duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "guest_gallery_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
