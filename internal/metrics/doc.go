// Package metrics provides Prometheus instrumentation for the content directory service.
//
// All metrics are prefixed with "cds_" and registered with the default registry
// through promauto.
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: Counter of total requests by method, path, and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of currently processing requests
//
// ## Database Metrics
//
//   - DBQueryTotal: Counter of catalog operations by operation and status
//   - DBQueryDuration: Histogram of catalog operation duration
//   - DBSizeBytes: Gauge of the SQLite database and backup file sizes
//   - RemovalBatchSize: Histogram of ids per batched DELETE during cascading removal
//
// ## Worker Engine Metrics
//
// The embedded database runs every statement on a single worker goroutine:
//   - WorkerQueueDepth: Gauge of tasks waiting for the worker
//   - WorkerTasksTotal / WorkerTaskDuration: executed tasks by kind
//   - WorkerState: one-hot gauge of starting/ready/shutting_down/stopped
//   - BackupsTotal: backups and restores by status
//   - BackupDirty: 1 while the database differs from its last backup
//
// The worker reports through [EngineObserver], which is handed to the engine by
// the composition root.
//
// ## Catalog Metrics
//
//   - ObjectsTotal: containers, items and virtual objects
//   - MimeTypesTotal: distinct MIME types
//   - ContainerUpdatesTotal: update id increments sent to eventing
//   - SearchCompileTotal: search criteria compilations by outcome
//
// # Collector
//
// [Collector] periodically asks a [StatsProvider] for catalog totals and stats
// the database files:
//
//	collector := metrics.NewCollector(store, dbPath, 1*time.Minute)
//	collector.Start()
//	defer collector.Stop()
//
// # Prometheus Queries
//
// Worker saturation:
//
//	max_over_time(cds_worker_queue_depth[5m])
//
// P95 browse latency:
//
//	histogram_quantile(0.95, sum(rate(cds_db_query_duration_seconds_bucket{operation="browse"}[5m])) by (le))
//
// Search criteria rejected by clients' malformed queries:
//
//	sum(rate(cds_search_compile_total{status=~".*_error"}[1h]))
package metrics
