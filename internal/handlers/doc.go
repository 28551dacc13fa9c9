// Package handlers provides the JSON HTTP handlers of the content directory
// service.
//
// The HTTP surface is for operations and debugging, not for UPnP renderers:
//   - Health, liveness and readiness probes
//   - Build information
//   - Object lookup and removal
//   - Browse and search over the catalog
//   - Search criteria compilation (returns the emitted SQL)
//   - MIME types and catalog statistics
//   - On-demand backups of the embedded database
//
// Storage errors are mapped to HTTP status codes by writeError.
package handlers
