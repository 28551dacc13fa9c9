// Package logging provides a simple leveled logging interface for the
// content directory service.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable (or
// DEBUG=true) and may be overridden from the configuration file with SetLevel.
// Messages are written as zerolog JSON lines; LOG_FORMAT=console switches to
// zerolog's human readable console writer.
package logging
