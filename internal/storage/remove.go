package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"media-directory/internal/cds"
	"media-directory/internal/logging"
	"media-directory/internal/metrics"
)

// RemoveObject deletes the object id together with everything that depends
// on it:
//   - a container loses its whole subtree first;
//   - an original item loses every virtual reference to it;
//   - a container whose last child goes is pruned as well, unless protected.
//
// Deletes are batched. If the walk fails, the unflushed batch is discarded but
// batches flushed earlier in the same call stay deleted.
func (s *Storage) RemoveObject(ctx context.Context, id int64) (err error) {
	start := time.Now()
	defer func() { recordQuery("remove_object", start, err) }()

	if cds.IsProtected(id) {
		return fmt.Errorf("object %d: %w", id, ErrProtectedObject)
	}

	obj, err := s.loadObject(ctx, id, SelectBasic)
	if err != nil {
		return err
	}

	r := &remover{
		s:            s,
		pending:      make(map[int64]struct{}),
		parentCounts: make(map[int64]int64),
		flushed:      make(map[int64]struct{}),
	}
	if obj.IsContainer() {
		if err = r.removeChildren(ctx, obj.ID); err != nil {
			return err
		}
		err = r.schedule(ctx, obj.ID, obj.ParentID)
	} else {
		err = r.removeItem(ctx, obj)
	}
	if err != nil {
		return err
	}
	if err = r.flush(ctx); err != nil {
		return err
	}

	logging.Debug("Removed object %d: %d rows deleted in %d batches", id, r.deleted, r.batches)
	return nil
}

// remover holds the state of one RemoveObject call.
type remover struct {
	s *Storage
	// pending holds ids scheduled for the next batched delete.
	pending map[int64]struct{}
	// parentCounts tracks the remaining children of parents touched by this
	// batch. Entries are fetched lazily with a COUNT query.
	parentCounts map[int64]int64
	// flushed holds ids already deleted by an earlier batch of this call.
	// Their parents were decremented then and must not be again.
	flushed map[int64]struct{}

	deleted int
	batches int
}

func (r *remover) removeChildren(ctx context.Context, parentID int64) error {
	children, err := r.s.SelectObjects(ctx, ByParentID(parentID), SelectBasic)
	if err != nil {
		return err
	}
	for _, child := range children {
		if child.IsContainer() {
			if err := r.removeChildren(ctx, child.ID); err != nil {
				return err
			}
			err = r.schedule(ctx, child.ID, child.ParentID)
		} else {
			err = r.removeItem(ctx, child)
		}
		if err != nil {
			return err
		}
		if err := r.flushIfFull(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *remover) removeItem(ctx context.Context, obj *cds.Object) error {
	if obj.IsVirtualReference() {
		return r.schedule(ctx, obj.ID, obj.ParentID)
	}

	refs, err := r.s.SelectObjects(ctx, ByRefID(obj.ID), SelectBasic)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		if err := r.schedule(ctx, ref.ID, ref.ParentID); err != nil {
			return err
		}
		if err := r.flushIfFull(ctx); err != nil {
			return err
		}
	}
	return r.schedule(ctx, obj.ID, obj.ParentID)
}

// schedule adds id to the pending batch and decrements its parent's known
// child count. A parent left without children is scheduled in turn.
// Protected ids are never scheduled.
func (r *remover) schedule(ctx context.Context, id, parentID int64) error {
	if cds.IsProtected(id) {
		return nil
	}
	if _, ok := r.pending[id]; ok {
		return nil
	}
	if _, ok := r.flushed[id]; ok {
		return nil
	}
	r.pending[id] = struct{}{}

	count, ok := r.parentCounts[parentID]
	if !ok {
		var err error
		if count, err = r.s.childCount(ctx, parentID, ""); err != nil {
			return err
		}
	}
	count--
	r.parentCounts[parentID] = count

	if count > 0 || cds.IsProtected(parentID) {
		return nil
	}

	parent, err := r.s.loadObject(ctx, parentID, SelectBasic)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return r.schedule(ctx, parent.ID, parent.ParentID)
}

func (r *remover) flushIfFull(ctx context.Context) error {
	limit := r.s.removalBatchLimit
	if len(r.pending) > limit || len(r.parentCounts) > limit {
		return r.flush(ctx)
	}
	return nil
}

// flush notifies every touched parent, then deletes the pending ids and their
// metadata in one statement each.
func (r *remover) flush(ctx context.Context) error {
	parents := sortedKeys(r.parentCounts)
	ids := sortedKeys(r.pending)
	clear(r.pending)
	clear(r.parentCounts)

	for _, parent := range parents {
		r.s.containerChanged(parent)
	}
	if len(ids) == 0 {
		return nil
	}

	list := idList(ids)
	if err := r.s.backend.Exec(ctx, "DELETE FROM "+MetadataTable+" WHERE item_id IN ("+list+")"); err != nil {
		return fmt.Errorf("failed to delete metadata: %w", err)
	}
	if err := r.s.backend.Exec(ctx, "DELETE FROM "+ObjectTable+" WHERE id IN ("+list+")"); err != nil {
		return fmt.Errorf("failed to delete objects: %w", err)
	}

	for _, id := range ids {
		r.flushed[id] = struct{}{}
	}
	metrics.RemovalBatchSize.Observe(float64(len(ids)))
	r.deleted += len(ids)
	r.batches++
	return nil
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
