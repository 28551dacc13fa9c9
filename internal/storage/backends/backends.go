// Package backends selects and opens the configured catalog backend.
package backends

import (
	"context"
	"fmt"
	"strings"

	"media-directory/internal/logging"
	"media-directory/internal/storage"
	"media-directory/internal/storage/mysql"
	"media-directory/internal/storage/postgres"
	"media-directory/internal/storage/sqlite"
)

// Driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Config selects a driver and carries the settings of each.
type Config struct {
	Driver   string
	SQLite   sqlite.Options
	MySQL    mysql.Config
	Postgres postgres.Config

	// RemovalBatchLimit overrides the cascading removal batch size when
	// positive.
	RemovalBatchLimit int
}

// Normalize maps a driver name or alias to one of the Driver constants. An
// empty name selects sqlite3.
func Normalize(driver string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverSQLite, "sqlite", "":
		return DriverSQLite, nil
	case DriverMySQL, "mariadb":
		return DriverMySQL, nil
	case DriverPostgres, "postgresql", "pgx":
		return DriverPostgres, nil
	}
	return "", fmt.Errorf("unknown storage driver %q", driver)
}

// Quote returns the string literal quoting of a driver without connecting
// to it, for compiling search criteria offline.
func Quote(driver string) (func(string) string, error) {
	name, err := Normalize(driver)
	if err != nil {
		return nil, err
	}
	switch name {
	case DriverMySQL:
		return mysql.Quote, nil
	case DriverPostgres:
		return postgres.Quote, nil
	}
	return sqlite.Quote, nil
}

// Open connects the configured backend and wraps it in a Storage. notifier
// may be nil and attached later with Storage.SetNotifier.
func Open(ctx context.Context, cfg Config, notifier storage.ChangeNotifier) (*storage.Storage, error) {
	var backend storage.Backend
	driver, err := Normalize(cfg.Driver)
	if err != nil {
		return nil, err
	}
	switch driver {
	case DriverSQLite:
		backend, err = sqlite.Open(ctx, cfg.SQLite)
	case DriverMySQL:
		backend, err = mysql.Open(ctx, cfg.MySQL)
	case DriverPostgres:
		backend, err = postgres.Open(ctx, cfg.Postgres)
	}
	if err != nil {
		return nil, err
	}

	logging.Info("Storage backend: %s", driver)

	opts := []storage.Option{storage.WithRemovalBatchLimit(cfg.RemovalBatchLimit)}
	if notifier != nil {
		opts = append(opts, storage.WithNotifier(notifier))
	}
	return storage.New(backend, opts...), nil
}
