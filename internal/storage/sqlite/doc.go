// Package sqlite is the embedded catalog backend.
//
// Every statement runs on one worker goroutine that exclusively owns the
// database handle. Callers submit tasks over a channel and block on a
// per-task reply channel, so the driver is never used concurrently and tasks
// execute in submission order.
//
// # Lifecycle
//
// [Open] moves the [Engine] through Starting to Ready:
//
//  1. the worker opens the database file;
//  2. the stored db_version is read and migrations bring it up to date;
//  3. if the version is unreadable or a migration fails, the engine restores
//     the "<file>.backup" copy, and failing that creates a fresh schema;
//  4. with backups enabled, a backup is taken and a cron job repeats it at
//     the configured interval whenever the database has changed.
//
// [Engine.Close] moves to ShuttingDown and then Stopped. Tasks still queued
// fail with storage.ErrShutdown; the task being executed completes.
//
// # Backups
//
// Backups are snappy framed streams of a VACUUM INTO snapshot. Restore
// accepts either a snappy stream or a plain database copy.
package sqlite
