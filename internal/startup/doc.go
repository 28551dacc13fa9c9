// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// [LoadConfig] starts from [DefaultConfig], applies an optional TOML file
// (the --config flag or CDS_CONFIG), then environment variables:
//
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - METRICS_INTERVAL: Catalog statistics collection interval (default: 1m)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - STORAGE_DRIVER: sqlite3, mysql or postgres (default: sqlite3)
//   - REMOVAL_BATCH_LIMIT: ids per batched delete during cascading removal
//   - SQLITE_FILE: Database file (default: /database/cds.db)
//   - SQLITE_SYNCHRONOUS: OFF, NORMAL, FULL or EXTRA (default: NORMAL)
//   - SQLITE_ON_ERROR: restore or fail (default: restore)
//   - SQLITE_BACKUP: Periodic compressed backups (default: true)
//   - SQLITE_BACKUP_INTERVAL: Backup period as Go duration (default: 10m)
//   - MYSQL_DSN, or MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PASSWORD, MYSQL_DATABASE
//   - POSTGRES_DSN
//   - UPDATE_FLUSH_INTERVAL: Container update id flush period (default: 2s)
//   - UPDATE_THRESHOLD: Pending containers that force a flush (default: 100)
//
// A TOML file uses the same settings:
//
//	port = "8080"
//
//	[storage]
//	driver = "sqlite3"
//
//	[storage.sqlite]
//	file = "/database/cds.db"
//	backup_interval = "15m"
//
// # Logging
//
// Startup output is grouped into sections separated by dashed lines: banner,
// system information, configuration, storage initialization, HTTP setup and
// the final endpoint summary. Shutdown uses the same format.
//
// # Build Information
//
// Version, Commit and BuildTime are injected with -ldflags:
//
//	go build -ldflags "-X media-directory/internal/startup.Version=1.0.0"
package startup
