package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"media-directory/internal/cds"
	"media-directory/internal/logging"
	"media-directory/internal/metrics"
)

// defaultRemovalBatchLimit bounds the pending and parent-count maps of one
// removal before they are flushed.
const defaultRemovalBatchLimit = 1000

// Storage implements the catalog operations on top of a Backend.
type Storage struct {
	backend Backend

	notifierMu sync.RWMutex
	notifier   ChangeNotifier

	removalBatchLimit int
}

// Option configures a Storage.
type Option func(*Storage)

// WithNotifier sets the sink for container change notifications.
func WithNotifier(n ChangeNotifier) Option {
	return func(s *Storage) { s.notifier = n }
}

// WithRemovalBatchLimit overrides the number of pending ids that triggers a
// flush during cascading removal.
func WithRemovalBatchLimit(n int) Option {
	return func(s *Storage) {
		if n > 0 {
			s.removalBatchLimit = n
		}
	}
}

// New creates a Storage over backend.
func New(backend Backend, opts ...Option) *Storage {
	s := &Storage{
		backend:           backend,
		removalBatchLimit: defaultRemovalBatchLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the underlying backend.
func (s *Storage) Backend() Backend { return s.backend }

// SetNotifier replaces the change notification sink. The update manager is
// built after the storage it writes to, so it is attached here.
func (s *Storage) SetNotifier(n ChangeNotifier) {
	s.notifierMu.Lock()
	defer s.notifierMu.Unlock()
	s.notifier = n
}

func (s *Storage) containerChanged(id int64) {
	s.notifierMu.RLock()
	n := s.notifier
	s.notifierMu.RUnlock()
	if n != nil && id != cds.IDInvalid {
		n.ContainerChanged(id)
	}
}

// Close closes the backend.
func (s *Storage) Close() error {
	return s.backend.Close()
}

// AddObject inserts obj, assigns the new id to obj.ID and returns it.
func (s *Storage) AddObject(ctx context.Context, obj *cds.Object) (id int64, err error) {
	start := time.Now()
	defer func() { recordQuery("add_object", start, err) }()

	if err = obj.Validate(); err != nil {
		return 0, fmt.Errorf("invalid object: %w", err)
	}
	if err = s.checkLinks(ctx, obj, false); err != nil {
		return 0, err
	}

	cols := encodeObject(obj, s.backend.Quote)
	id, err = s.backend.ExecInsert(ctx, insertStatement(ObjectTable, cols))
	if err != nil {
		return 0, fmt.Errorf("failed to insert object: %w", err)
	}
	obj.ID = id

	if stmt := metadataInsert(id, searchableMetadata(obj), s.backend.Quote); stmt != "" {
		if err = s.backend.Exec(ctx, stmt); err != nil {
			return 0, fmt.Errorf("failed to insert metadata for object %d: %w", id, err)
		}
	}

	s.containerChanged(obj.ParentID)
	logging.Debug("Added object %d (%s) under %d", id, obj.Type(), obj.ParentID)
	return id, nil
}

// UpdateObject rewrites the stored row and metadata of obj.
func (s *Storage) UpdateObject(ctx context.Context, obj *cds.Object) (err error) {
	start := time.Now()
	defer func() { recordQuery("update_object", start, err) }()

	if err = obj.Validate(); err != nil {
		return fmt.Errorf("invalid object: %w", err)
	}
	if _, err = s.loadObject(ctx, obj.ID, SelectBasic); err != nil {
		return err
	}
	if err = s.checkLinks(ctx, obj, true); err != nil {
		return err
	}

	cols := encodeObject(obj, s.backend.Quote)
	if err = s.backend.Exec(ctx, updateStatement(ObjectTable, obj.ID, cols)); err != nil {
		return fmt.Errorf("failed to update object %d: %w", obj.ID, err)
	}

	if err = s.backend.Exec(ctx, "DELETE FROM "+MetadataTable+" WHERE item_id = "+intLiteral(obj.ID)); err != nil {
		return fmt.Errorf("failed to clear metadata for object %d: %w", obj.ID, err)
	}
	if stmt := metadataInsert(obj.ID, searchableMetadata(obj), s.backend.Quote); stmt != "" {
		if err = s.backend.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to insert metadata for object %d: %w", obj.ID, err)
		}
	}

	s.containerChanged(obj.ParentID)
	return nil
}

// checkLinks verifies that obj hangs below an existing container and that a
// virtual reference points at a stored original. Only the seeded root sits
// below the invalid id, so an insert may never use it.
func (s *Storage) checkLinks(ctx context.Context, obj *cds.Object, update bool) error {
	switch {
	case obj.ParentID == cds.IDInvalid:
		if !update || obj.ID != cds.IDRoot {
			return fmt.Errorf("object %d under %d: %w", obj.ID, obj.ParentID, ErrInvalidParent)
		}
	case update && obj.ParentID == obj.ID:
		return fmt.Errorf("object %d is its own parent: %w", obj.ID, ErrInvalidParent)
	default:
		parent, err := s.loadObject(ctx, obj.ParentID, SelectBasic)
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("parent %d: %w", obj.ParentID, ErrInvalidParent)
		}
		if err != nil {
			return err
		}
		if !parent.IsContainer() {
			return fmt.Errorf("parent %d is an item: %w", obj.ParentID, ErrInvalidParent)
		}
	}

	if obj.RefID == 0 {
		return nil
	}
	target, err := s.loadObject(ctx, obj.RefID, SelectBasic)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("reference %d: %w", obj.RefID, ErrInvalidReference)
	}
	if err != nil {
		return err
	}
	if target.Virtual || target.IsVirtualReference() {
		return fmt.Errorf("reference %d is itself virtual: %w", obj.RefID, ErrInvalidReference)
	}
	return nil
}

// LoadObject reads one object. It fails with ErrNotFound if no row has id.
func (s *Storage) LoadObject(ctx context.Context, id int64, mode SelectMode) (obj *cds.Object, err error) {
	start := time.Now()
	defer func() { recordQuery("load_object", start, err) }()

	return s.loadObject(ctx, id, mode)
}

func (s *Storage) loadObject(ctx context.Context, id int64, mode SelectMode) (*cds.Object, error) {
	objs, err := s.queryObjects(ctx, selectFrom(mode)+" WHERE f.id = "+intLiteral(id), mode)
	if err != nil {
		return nil, err
	}
	if len(objs) == 0 {
		return nil, fmt.Errorf("object %d: %w", id, ErrNotFound)
	}
	return objs[0], nil
}

// FilterKind selects the rows SelectObjects returns.
type FilterKind int

const (
	// FilterParent matches children of an object.
	FilterParent FilterKind = iota
	// FilterRef matches virtual references to an object.
	FilterRef
	// FilterParentItems matches non-container children of an object.
	FilterParentItems
	// FilterParentContainers matches container children of an object.
	FilterParentContainers
)

// Filter is a SelectObjects predicate.
type Filter struct {
	Kind FilterKind
	ID   int64
}

// ByParentID matches the children of id.
func ByParentID(id int64) Filter { return Filter{Kind: FilterParent, ID: id} }

// ByRefID matches the virtual references to id.
func ByRefID(id int64) Filter { return Filter{Kind: FilterRef, ID: id} }

// ByParentIDItems matches the non-container children of id.
func ByParentIDItems(id int64) Filter { return Filter{Kind: FilterParentItems, ID: id} }

// ByParentIDContainers matches the container children of id.
func ByParentIDContainers(id int64) Filter { return Filter{Kind: FilterParentContainers, ID: id} }

func (f Filter) where() (string, error) {
	id := intLiteral(f.ID)
	switch f.Kind {
	case FilterParent:
		return "f.parent_id = " + id, nil
	case FilterRef:
		return "f.ref_id = " + id, nil
	case FilterParentItems:
		return "f.parent_id = " + id + " AND " + itemsOnly, nil
	case FilterParentContainers:
		return "f.parent_id = " + id + " AND " + containersOnly, nil
	}
	return "", fmt.Errorf("unknown filter kind %d", f.Kind)
}

const (
	containersOnly = "(f.object_type & 1) = 1"
	itemsOnly      = "(f.object_type & 1) = 0"
)

// SelectObjects returns the objects matching filter, ordered by id. The
// reserved phantom parent of the root is never returned.
func (s *Storage) SelectObjects(ctx context.Context, filter Filter, mode SelectMode) (objs []*cds.Object, err error) {
	start := time.Now()
	defer func() { recordQuery("select_objects", start, err) }()

	where, err := filter.where()
	if err != nil {
		return nil, err
	}
	q := selectFrom(mode) + " WHERE " + where + " AND f.id <> " + intLiteral(cds.IDInvalid) + " ORDER BY f.id"
	return s.queryObjects(ctx, q, mode)
}

// FindObjectByTitle returns the first child of parentID titled title.
func (s *Storage) FindObjectByTitle(ctx context.Context, parentID int64, title string) (obj *cds.Object, err error) {
	start := time.Now()
	defer func() { recordQuery("find_object", start, err) }()

	q := selectFrom(SelectFull) +
		" WHERE f.parent_id = " + intLiteral(parentID) +
		" AND f.dc_title = " + s.backend.Quote(title) +
		" ORDER BY f.id LIMIT 1"
	return s.findOne(ctx, q, fmt.Sprintf("title %q under %d", title, parentID))
}

// FindObjectByLocation returns the original (non-reference) object stored at
// location.
func (s *Storage) FindObjectByLocation(ctx context.Context, location string) (obj *cds.Object, err error) {
	start := time.Now()
	defer func() { recordQuery("find_object", start, err) }()

	q := selectFrom(SelectFull) +
		" WHERE f.location = " + s.backend.Quote(location) +
		" AND f.ref_id IS NULL ORDER BY f.id LIMIT 1"
	return s.findOne(ctx, q, fmt.Sprintf("location %q", location))
}

func (s *Storage) findOne(ctx context.Context, q, what string) (*cds.Object, error) {
	objs, err := s.queryObjects(ctx, q, SelectFull)
	if err != nil {
		return nil, err
	}
	if len(objs) == 0 {
		return nil, fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return objs[0], nil
}

func (s *Storage) queryObjects(ctx context.Context, q string, mode SelectMode) ([]*cds.Object, error) {
	rs, err := s.backend.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	objs := make([]*cds.Object, 0, rs.Len())
	for _, row := range rs.Rows {
		obj, err := decodeObject(row, mode)
		if err != nil {
			return nil, err
		}
		objs = append(objs, obj)
	}
	return objs, nil
}

// recordQuery records catalog operation metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}
