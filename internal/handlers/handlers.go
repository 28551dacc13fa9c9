package handlers

import (
	"context"
	"time"

	"media-directory/internal/cds"
	"media-directory/internal/metrics"
	"media-directory/internal/storage"
)

// Catalog is the part of storage.Storage the handlers use.
type Catalog interface {
	LoadObject(ctx context.Context, id int64, mode storage.SelectMode) (*cds.Object, error)
	RemoveObject(ctx context.Context, id int64) error
	Browse(ctx context.Context, p storage.BrowseParams) (*storage.BrowseResult, error)
	Search(ctx context.Context, p storage.SearchParams) (*storage.BrowseResult, error)
	CompileSearch(criteria string) (string, error)
	MimeTypes(ctx context.Context) ([]string, error)
	TotalFileCount(ctx context.Context) (int64, error)
	CollectStats(ctx context.Context) (metrics.Stats, error)
}

// Backuper is implemented by backends that can write an on-demand backup.
type Backuper interface {
	Backup(ctx context.Context) error
}

// Handlers serves the HTTP API.
type Handlers struct {
	catalog   Catalog
	driver    string
	backuper  Backuper
	ready     func() bool
	startTime time.Time
}

// Option configures Handlers.
type Option func(*Handlers)

// WithReadiness sets the readiness check. Without it the service reports
// ready as soon as it serves requests.
func WithReadiness(ready func() bool) Option {
	return func(h *Handlers) { h.ready = ready }
}

// WithBackuper enables POST /api/backup.
func WithBackuper(b Backuper) Option {
	return func(h *Handlers) { h.backuper = b }
}

// New creates the handlers. driver is reported by the health endpoint.
func New(catalog Catalog, driver string, opts ...Option) *Handlers {
	h := &Handlers{
		catalog:   catalog,
		driver:    driver,
		ready:     func() bool { return true },
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}
