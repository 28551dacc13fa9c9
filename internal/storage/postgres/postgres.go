// Package postgres is the PostgreSQL catalog backend.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	_ "github.com/jackc/pgx/v4/stdlib" // registers the "pgx" driver
	"github.com/lib/pq"

	"media-directory/internal/logging"
	"media-directory/internal/storage"
	"media-directory/internal/storage/sqldb"
)

const (
	backendName = "postgres"
	driverName  = "pgx"
)

// Config holds the connection settings.
type Config struct {
	// DSN is a libpq connection string or postgres:// URL.
	DSN string
	// MaxConns caps the connection pool; 0 sizes it from the CPU count.
	MaxConns        int
	ConnectAttempts uint
}

// Quote renders s as a string literal.
func Quote(s string) string { return pq.QuoteLiteral(s) }

func errorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// Dialect returns the PostgreSQL dialect. New ids come back through
// RETURNING because the driver has no LastInsertId.
func Dialect() sqldb.Dialect {
	return sqldb.Dialect{
		Name:            backendName,
		Quote:           Quote,
		ErrorCode:       errorCode,
		InsertReturning: true,
	}
}

// Open connects, creating the catalog schema on an empty database.
func Open(ctx context.Context, cfg Config) (*sqldb.Backend, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres: DSN is empty")
	}

	db, err := sqldb.Connect(ctx, driverName, cfg.DSN, sqldb.ConnectOptions{
		MaxConns: cfg.MaxConns,
		Attempts: cfg.ConnectAttempts,
		Delay:    time.Second,
	})
	if err != nil {
		return nil, err
	}

	b := sqldb.New(db, Dialect())
	if err := b.Bootstrap(ctx, existsQuery, createStatements()); err != nil {
		_ = b.Close()
		return nil, err
	}
	logging.Info("PostgreSQL catalog ready")
	return b, nil
}

const existsQuery = "SELECT COUNT(*) FROM information_schema.tables " +
	"WHERE table_schema = current_schema() AND table_name = 'mt_internal_setting'"

var schema = []string{
	`CREATE TABLE mt_cds_object (
		id BIGSERIAL PRIMARY KEY,
		ref_id BIGINT DEFAULT NULL,
		parent_id BIGINT NOT NULL DEFAULT 0,
		object_type INTEGER NOT NULL,
		is_virtual SMALLINT NOT NULL DEFAULT 0,
		upnp_class TEXT DEFAULT NULL,
		dc_title TEXT DEFAULT NULL,
		is_restricted SMALLINT NOT NULL DEFAULT 0,
		metadata TEXT DEFAULT NULL,
		auxdata TEXT DEFAULT NULL,
		update_id INTEGER NOT NULL DEFAULT 0,
		is_searchable SMALLINT NOT NULL DEFAULT 0,
		location TEXT DEFAULT NULL,
		mime_type TEXT DEFAULT NULL,
		action TEXT DEFAULT NULL,
		state TEXT DEFAULT NULL,
		resources TEXT DEFAULT NULL
	)`,
	`CREATE INDEX mt_cds_object_parent_id ON mt_cds_object (parent_id, object_type, dc_title)`,
	`CREATE INDEX mt_cds_object_ref_id ON mt_cds_object (ref_id)`,
	`CREATE INDEX mt_cds_object_location ON mt_cds_object (location)`,
	`CREATE TABLE mt_metadata (
		id BIGSERIAL PRIMARY KEY,
		item_id BIGINT NOT NULL,
		property_name TEXT NOT NULL,
		property_value TEXT NOT NULL
	)`,
	`CREATE INDEX mt_metadata_item_id ON mt_metadata (item_id)`,
	`CREATE TABLE mt_internal_setting (
		setting_name TEXT PRIMARY KEY,
		setting_value TEXT NOT NULL
	)`,
}

// createStatements builds the schema, seeds the reserved ids and moves the
// id sequence past them.
func createStatements() []string {
	stmts := append(append([]string{}, schema...), storage.SeedStatements()...)
	return append(stmts, "SELECT setval('mt_cds_object_id_seq', 1)")
}
