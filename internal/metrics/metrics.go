package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cds_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cds_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cds_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cds_db_queries_total",
			Help: "Total number of catalog storage operations",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cds_db_query_duration_seconds",
			Help:    "Catalog storage operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cds_db_size_bytes",
			Help: "Size of SQLite database files in bytes",
		},
		[]string{"file"}, // "main", "backup"
	)

	RemovalBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cds_removal_batch_size",
			Help:    "Number of object ids deleted per batched DELETE",
			Buckets: []float64{1, 5, 10, 50, 100, 250, 500, 1000, 2000},
		},
	)
)

// Worker engine metrics
var (
	WorkerQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cds_worker_queue_depth",
			Help: "Number of tasks waiting for the embedded database worker",
		},
	)

	WorkerTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cds_worker_tasks_total",
			Help: "Total number of tasks executed by the embedded database worker",
		},
		[]string{"kind", "status"},
	)

	WorkerTaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cds_worker_task_duration_seconds",
			Help:    "Embedded database task execution time in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"kind"},
	)

	WorkerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cds_worker_state",
			Help: "Current worker engine state (1 for the active state, 0 otherwise)",
		},
		[]string{"state"},
	)

	BackupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cds_backups_total",
			Help: "Total number of embedded database backups and restores",
		},
		[]string{"kind", "status"},
	)

	BackupDirty = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cds_backup_dirty",
			Help: "Whether the database changed since the last backup (1 = dirty)",
		},
	)
)

// Catalog metrics
var (
	ObjectsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cds_objects_total",
			Help: "Number of catalog objects by kind",
		},
		[]string{"kind"}, // "container", "item", "virtual"
	)

	MimeTypesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cds_mime_types_total",
			Help: "Number of distinct MIME types in the catalog",
		},
	)

	ContainerUpdatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cds_container_updates_total",
			Help: "Total number of container update id increments",
		},
	)

	SearchCompileTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cds_search_compile_total",
			Help: "Total number of search criteria compilations",
		},
		[]string{"status"}, // "success", "lex_error", "parse_error", "error"
	)
)

// Application info
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cds_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
