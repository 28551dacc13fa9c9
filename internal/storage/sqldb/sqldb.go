// Package sqldb implements storage.Backend over a database/sql pool for the
// client/server databases. Dialect packages supply quoting, error codes and
// DDL; this package supplies connection retry, schema bootstrap and the
// primitives.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"media-directory/internal/logging"
	"media-directory/internal/search"
	"media-directory/internal/storage"
	"media-directory/internal/workers"
)

// Dialect describes what differs between client/server databases.
type Dialect struct {
	// Name identifies the backend in errors and logs.
	Name string
	// Quote renders a string literal.
	Quote func(string) string
	// ErrorCode extracts the native error code, or "".
	ErrorCode func(error) string
	// InsertReturning fetches new ids with RETURNING id instead of
	// LastInsertId.
	InsertReturning bool
}

// Backend runs statements directly on a pooled *sql.DB. The pool handles
// concurrency, so no further serialization happens here.
type Backend struct {
	db      *sql.DB
	dialect Dialect
	emitter *search.DefaultEmitter
}

// New wraps an open pool.
func New(db *sql.DB, dialect Dialect) *Backend {
	return &Backend{
		db:      db,
		dialect: dialect,
		emitter: search.NewDefaultEmitter(dialect.Quote),
	}
}

// ConnectOptions configures Connect.
type ConnectOptions struct {
	// MaxConns caps the pool; 0 sizes it from the CPU count.
	MaxConns int
	// Attempts is the number of pings tried before giving up.
	Attempts uint
	// Delay is the initial backoff between attempts.
	Delay time.Duration
}

// Connect opens a pool for driver and waits until the server answers.
func Connect(ctx context.Context, driver, dsn string, opts ConnectOptions) (*sql.DB, error) {
	if opts.Attempts == 0 {
		opts.Attempts = 5
	}
	if opts.Delay <= 0 {
		opts.Delay = time.Second
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", driver, err)
	}

	conns := workers.ForIO(opts.MaxConns)
	db.SetMaxOpenConns(conns)
	db.SetMaxIdleConns(conns)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	err = retry.Do(func() error {
		return db.PingContext(ctx)
	},
		retry.Context(ctx),
		retry.Attempts(opts.Attempts),
		retry.Delay(opts.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logging.Warn("%s not reachable (attempt %d/%d): %v", driver, n+1, opts.Attempts, err)
		}),
	)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	logging.Info("Connected to %s (pool size %d)", driver, conns)
	return db, nil
}

// Bootstrap creates the schema when existsQuery reports no settings table,
// and checks the stored version otherwise. existsQuery must return one count.
func (b *Backend) Bootstrap(ctx context.Context, existsQuery string, create []string) error {
	var n int
	if err := b.db.QueryRowContext(ctx, existsQuery).Scan(&n); err != nil {
		return b.wrap(existsQuery, err)
	}

	if n == 0 {
		logging.Info("Creating %s catalog schema version %d", b.dialect.Name, storage.CurrentSchemaVersion)
		return b.execInTx(ctx, create)
	}

	var raw string
	if err := b.db.QueryRowContext(ctx, storage.VersionQuery).Scan(&raw); err != nil {
		return fmt.Errorf("%w: reading schema version: %v", storage.ErrMigration, b.wrap(storage.VersionQuery, err))
	}
	version, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%w: invalid schema version %q", storage.ErrMigration, raw)
	}
	if version != storage.CurrentSchemaVersion {
		return fmt.Errorf("%w: %s schema is version %d, need %d", storage.ErrMigration,
			b.dialect.Name, version, storage.CurrentSchemaVersion)
	}
	return nil
}

func (b *Backend) execInTx(ctx context.Context, statements []string) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return b.wrap("BEGIN", err)
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return b.wrap(stmt, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return b.wrap("COMMIT", err)
	}
	return nil
}

func (b *Backend) wrap(statement string, err error) error {
	code := ""
	if b.dialect.ErrorCode != nil {
		code = b.dialect.ErrorCode(err)
	}
	return storage.NewBackendError(b.dialect.Name, code, statement, err)
}

// Name implements storage.Backend.
func (b *Backend) Name() string { return b.dialect.Name }

// Exec implements storage.Backend.
func (b *Backend) Exec(ctx context.Context, statement string) error {
	if _, err := b.db.ExecContext(ctx, statement); err != nil {
		return b.wrap(statement, err)
	}
	return nil
}

// ExecInsert implements storage.Backend.
func (b *Backend) ExecInsert(ctx context.Context, statement string) (int64, error) {
	if b.dialect.InsertReturning {
		statement += " RETURNING id"
		var id int64
		if err := b.db.QueryRowContext(ctx, statement).Scan(&id); err != nil {
			return 0, b.wrap(statement, err)
		}
		return id, nil
	}

	res, err := b.db.ExecContext(ctx, statement)
	if err != nil {
		return 0, b.wrap(statement, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, b.wrap(statement, err)
	}
	return id, nil
}

// Query implements storage.Backend.
func (b *Backend) Query(ctx context.Context, statement string) (*storage.RowSet, error) {
	rows, err := b.db.QueryContext(ctx, statement)
	if err != nil {
		return nil, b.wrap(statement, err)
	}
	rs, err := storage.ScanRowSet(rows)
	if err != nil {
		return nil, b.wrap(statement, err)
	}
	return rs, nil
}

// Quote implements storage.Backend.
func (b *Backend) Quote(s string) string { return b.dialect.Quote(s) }

// Emitter implements storage.Backend.
func (b *Backend) Emitter() search.Emitter { return b.emitter }

// Close closes the pool.
func (b *Backend) Close() error { return b.db.Close() }
