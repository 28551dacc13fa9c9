// Package middleware provides HTTP middleware for the content directory API.
//
// It includes:
//   - Structured request logging through the shared zerolog logger
//   - Prometheus request metrics labelled by route template
//
// Health probes can be left out of the request log with LogHealthChecks.
package middleware
