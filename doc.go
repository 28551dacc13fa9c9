// Package main provides the entry point for the content directory service.
//
// The service keeps the object catalog of a UPnP media server: containers,
// items and virtual references, answering browse and search requests over a
// JSON HTTP API for operators. The UPnP/SOAP layer is not part of it.
//
// # Application Lifecycle
//
//  1. Configuration Loading: defaults, optional TOML file (--config or
//     CDS_CONFIG), then environment variables
//  2. Storage Initialization: opens the configured backend. The embedded
//     sqlite3 backend migrates, restores or recreates its database file
//     before it accepts work
//  3. Component Initialization:
//     - Update Manager: batches container update id increments
//     - Metrics Collector: gathers catalog totals for Prometheus
//  4. HTTP Server Setup: routes, request metrics and logging middleware,
//     plus a separate metrics server
//  5. Graceful Shutdown: on SIGINT/SIGTERM the servers drain, pending update
//     ids are flushed and storage is closed
//
// # Background Services
//
//   - Update Manager: flushes changed containers every UPDATE_FLUSH_INTERVAL
//   - Metrics Collector: refreshes catalog gauges every METRICS_INTERVAL
//   - SQLite backups: a compressed snapshot every SQLITE_BACKUP_INTERVAL when
//     the database changed
package main
