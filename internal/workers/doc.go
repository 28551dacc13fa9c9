/*
Package workers sizes worker pools and database connection pools in
containerized environments.

runtime.NumCPU reports the host's CPUs, while GOMAXPROCS follows the
container's CPU limit (Go 1.19+). Every helper here scales GOMAXPROCS:

	// connection pool for the MySQL/PostgreSQL backends, at most 32
	db.SetMaxOpenConns(workers.ForIO(32))

	// CPU bound fan-out
	n := workers.ForCPU(8)

The STORAGE_CONNECTIONS environment variable overrides the computed value,
still bounded by the caller's limit.

The embedded SQLite backend does not use these helpers: it always runs exactly
one worker that owns the database handle.
*/
package workers
