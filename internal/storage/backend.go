package storage

import (
	"context"

	"media-directory/internal/search"
)

// Backend is the set of primitives a database driver supplies. Every catalog
// operation is built from these.
type Backend interface {
	// Name identifies the backend in errors and logs.
	Name() string
	// Exec runs a statement that returns no rows.
	Exec(ctx context.Context, statement string) error
	// ExecInsert runs an INSERT into the object table and returns the new id.
	ExecInsert(ctx context.Context, statement string) (int64, error)
	// Query runs a statement and materializes its rows.
	Query(ctx context.Context, statement string) (*RowSet, error)
	// Quote returns s as a SQL string literal for this dialect.
	Quote(s string) string
	// Emitter returns the search emitter for this dialect.
	Emitter() search.Emitter
	Close() error
}

// ChangeNotifier receives the ids of containers whose contents changed.
type ChangeNotifier interface {
	ContainerChanged(id int64)
}
