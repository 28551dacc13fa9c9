package storage_test

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-directory/internal/cds"
	"media-directory/internal/search"
	"media-directory/internal/storage"
	"media-directory/internal/storage/sqlite"
)

type recordingNotifier struct {
	mu  sync.Mutex
	ids []int64
}

func (n *recordingNotifier) ContainerChanged(id int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, id)
}

func (n *recordingNotifier) changed() []int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]int64(nil), n.ids...)
}

func newTestStorage(t *testing.T, opts ...storage.Option) *storage.Storage {
	t.Helper()
	engine, err := sqlite.Open(context.Background(), sqlite.Options{
		Path:           filepath.Join(t.TempDir(), "cds.db"),
		BackupInterval: time.Hour,
	})
	require.NoError(t, err)
	s := storage.New(engine, opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustAdd(t *testing.T, s *storage.Storage, obj *cds.Object) int64 {
	t.Helper()
	id, err := s.AddObject(context.Background(), obj)
	require.NoError(t, err)
	return id
}

func addReference(t *testing.T, s *storage.Storage, parentID int64, orig *cds.Object) int64 {
	t.Helper()
	ref := cds.NewItem(parentID, orig.Title, orig.Location(), orig.MimeType())
	ref.RefID = orig.ID
	ref.Virtual = true
	return mustAdd(t, s, ref)
}

func titles(objs []*cds.Object) []string {
	out := make([]string, len(objs))
	for i, o := range objs {
		out[i] = o.Title
	}
	return out
}

func TestAddObjectAndLoad(t *testing.T) {
	n := &recordingNotifier{}
	s := newTestStorage(t, storage.WithNotifier(n))
	ctx := context.Background()

	parent := mustAdd(t, s, cds.NewContainer(cds.IDFilesystemRoot, "Music"))
	obj := cds.NewItem(parent, "Song", "/a.mp3", "")
	id, err := s.AddObject(ctx, obj)
	require.NoError(t, err)
	assert.Positive(t, id)
	assert.Equal(t, id, obj.ID)

	loaded, err := s.LoadObject(ctx, id, storage.SelectFull)
	require.NoError(t, err)
	assert.Equal(t, "Song", loaded.Title)
	assert.Equal(t, parent, loaded.ParentID)
	assert.Equal(t, "/a.mp3", loaded.Location())
	assert.Equal(t, []int64{cds.IDFilesystemRoot, parent}, n.changed())
}

func TestAddObjectRejectsBrokenLinks(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	folder := mustAdd(t, s, cds.NewContainer(cds.IDFilesystemRoot, "Folder"))
	orig := cds.NewItem(folder, "Song", "/song.mp3", "audio/mpeg")
	mustAdd(t, s, orig)
	ref := addReference(t, s, folder, orig)

	danglingRef := cds.NewItem(folder, "Ghost", "/ghost.mp3", "audio/mpeg")
	danglingRef.RefID = 4242
	danglingRef.Virtual = true

	chainedRef := cds.NewItem(folder, "Chain", "/song.mp3", "audio/mpeg")
	chainedRef.RefID = ref
	chainedRef.Virtual = true

	tests := []struct {
		name string
		obj  *cds.Object
		want error
	}{
		{"missing parent", cds.NewItem(9999, "Orphan", "/orphan.mp3", "audio/mpeg"), storage.ErrInvalidParent},
		{"item parent", cds.NewItem(orig.ID, "Nested", "/nested.mp3", "audio/mpeg"), storage.ErrInvalidParent},
		{"below invalid id", cds.NewContainer(cds.IDInvalid, "Second Root"), storage.ErrInvalidParent},
		{"dangling reference", danglingRef, storage.ErrInvalidReference},
		{"reference to reference", chainedRef, storage.ErrInvalidReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AddObject(ctx, tt.obj)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	count, err := s.ChildCount(ctx, folder, false, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count, "rejected objects are not stored")

	rows, err := s.Backend().Query(ctx, "SELECT COUNT(*) FROM mt_cds_object WHERE parent_id IN (9999, "+itoa(orig.ID)+")")
	require.NoError(t, err)
	n, err := rows.Rows[0].Int64(0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpdateObjectRejectsBrokenLinks(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	folder := mustAdd(t, s, cds.NewContainer(cds.IDFilesystemRoot, "Folder"))
	item := cds.NewItem(folder, "Song", "/song.mp3", "audio/mpeg")
	mustAdd(t, s, item)
	other := mustAdd(t, s, cds.NewItem(folder, "Other", "/other.mp3", "audio/mpeg"))

	item.ParentID = other
	assert.ErrorIs(t, s.UpdateObject(ctx, item), storage.ErrInvalidParent)

	sub := cds.NewContainer(folder, "Sub")
	mustAdd(t, s, sub)
	sub.ParentID = sub.ID
	assert.ErrorIs(t, s.UpdateObject(ctx, sub), storage.ErrInvalidParent)

	item.ParentID = folder
	item.RefID = 4242
	assert.ErrorIs(t, s.UpdateObject(ctx, item), storage.ErrInvalidReference)

	got, err := s.LoadObject(ctx, item.ID, storage.SelectBasic)
	require.NoError(t, err)
	assert.Equal(t, folder, got.ParentID)
	assert.Zero(t, got.RefID)

	root, err := s.LoadObject(ctx, cds.IDRoot, storage.SelectFull)
	require.NoError(t, err)
	assert.NoError(t, s.UpdateObject(ctx, root), "the root keeps its place below the invalid id")
}

func TestAddObjectRejectsInvalid(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.AddObject(context.Background(), cds.NewItem(cds.IDFilesystemRoot, "", "/a.mp3", "audio/mpeg"))
	assert.ErrorIs(t, err, cds.ErrMissingTitle)

	_, err = s.AddObject(context.Background(), cds.NewItem(cds.IDFilesystemRoot, "x", "", "audio/mpeg"))
	assert.ErrorIs(t, err, cds.ErrMissingLocation)
}

func TestObjectRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	container := cds.NewContainer(cds.IDFilesystemRoot, "Albums")
	container.Container().Searchable = true
	container.Container().UpdateID = 7
	container.Metadata.Set(cds.MetaDescription, "all of them")

	item := cds.NewItem(cds.IDFilesystemRoot, "Track", "/music/track.mp3", "audio/mpeg")
	item.Metadata.Set(cds.MetaArtist, "Artist & Co")
	item.AuxData.Set("tag", "a=b|c")
	item.Restricted = true
	item.Resources = []cds.Resource{{
		Purpose:      cds.PurposeContent,
		ProtocolInfo: "http-get:*:audio/mpeg:*",
		Attributes:   cds.Dict{{Key: cds.AttrSize, Value: "1024"}, {Key: cds.AttrDuration, Value: "0:03:00"}},
	}}

	active := cds.NewActiveItem(cds.IDFilesystemRoot, "Script", "/bin/run.sh", "text/plain", "/usr/bin/act", "idle")
	external := cds.NewExternalURLItem(cds.IDFilesystemRoot, "Radio", "http://radio.example/stream", "audio/mpeg")

	tests := []struct {
		name  string
		obj   *cds.Object
		check func(t *testing.T, got *cds.Object)
	}{
		{
			name: "container",
			obj:  container,
			check: func(t *testing.T, got *cds.Object) {
				require.NotNil(t, got.Container())
				assert.True(t, got.Container().Searchable)
				assert.Equal(t, int64(7), got.Container().UpdateID)
				assert.Equal(t, "all of them", got.Metadata.Value(cds.MetaDescription))
			},
		},
		{
			name: "item",
			obj:  item,
			check: func(t *testing.T, got *cds.Object) {
				assert.Equal(t, cds.TypeItem, got.Type())
				assert.Equal(t, cds.ClassMusicTrack, got.Class)
				assert.Equal(t, "/music/track.mp3", got.Location())
				assert.Equal(t, "audio/mpeg", got.MimeType())
				assert.True(t, got.Restricted)
				assert.Equal(t, "Artist & Co", got.Metadata.Value(cds.MetaArtist))
				assert.Equal(t, "a=b|c", got.AuxData.Value("tag"))
				require.Len(t, got.Resources, 1)
				assert.Equal(t, "http-get:*:audio/mpeg:*", got.Resources[0].ProtocolInfo)
				assert.Equal(t, "1024", got.Resources[0].Attributes.Value(cds.AttrSize))
				assert.Equal(t, "0:03:00", got.Resources[0].Attributes.Value(cds.AttrDuration))
			},
		},
		{
			name: "active item",
			obj:  active,
			check: func(t *testing.T, got *cds.Object) {
				require.True(t, got.IsActiveItem())
				b, ok := got.Body.(*cds.ActiveItem)
				require.True(t, ok)
				assert.Equal(t, "/usr/bin/act", b.Action)
				assert.Equal(t, "idle", b.State)
				assert.Equal(t, "/bin/run.sh", b.Location)
			},
		},
		{
			name: "external url",
			obj:  external,
			check: func(t *testing.T, got *cds.Object) {
				require.True(t, got.IsExternalURL())
				assert.Equal(t, "http://radio.example/stream", got.Location())
				assert.Equal(t, cds.TypeItem|cds.TypeExternalURL, got.Type())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := mustAdd(t, s, tt.obj)
			got, err := s.LoadObject(ctx, id, storage.SelectFull)
			require.NoError(t, err)
			assert.Equal(t, tt.obj.Title, got.Title)
			assert.Equal(t, tt.obj.Type(), got.Type())
			tt.check(t, got)

			basic, err := s.LoadObject(ctx, id, storage.SelectBasic)
			require.NoError(t, err)
			assert.Empty(t, basic.Title, "basic reads skip descriptive columns")
			assert.Equal(t, tt.obj.Type(), basic.Type())
		})
	}
}

func TestReferenceInheritsResources(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	orig := cds.NewItem(cds.IDFilesystemRoot, "Track", "/music/track.mp3", "audio/mpeg")
	orig.Resources = []cds.Resource{{ProtocolInfo: "http-get:*:audio/mpeg:*"}}
	mustAdd(t, s, orig)

	refID := addReference(t, s, cds.IDRoot, orig)
	ref, err := s.LoadObject(ctx, refID, storage.SelectFull)
	require.NoError(t, err)
	assert.True(t, ref.IsVirtualReference())
	assert.Equal(t, orig.ID, ref.RefID)
	require.Len(t, ref.Resources, 1)
	assert.Equal(t, "http-get:*:audio/mpeg:*", ref.Resources[0].ProtocolInfo)

	found, err := s.FindObjectByLocation(ctx, "/music/track.mp3")
	require.NoError(t, err)
	assert.Equal(t, orig.ID, found.ID, "references are never found by location")
}

func TestLoadObjectNotFound(t *testing.T) {
	s := newTestStorage(t)
	_, err := s.LoadObject(context.Background(), 4242, storage.SelectFull)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateObject(t *testing.T) {
	n := &recordingNotifier{}
	s := newTestStorage(t, storage.WithNotifier(n))
	ctx := context.Background()

	obj := cds.NewItem(cds.IDFilesystemRoot, "Old Title", "/a.mp3", "audio/mpeg")
	mustAdd(t, s, obj)

	obj.Title = "New Title"
	obj.Metadata.Set(cds.MetaGenre, "Jazz")
	require.NoError(t, s.UpdateObject(ctx, obj))

	got, err := s.LoadObject(ctx, obj.ID, storage.SelectFull)
	require.NoError(t, err)
	assert.Equal(t, "New Title", got.Title)
	assert.Equal(t, "Jazz", got.Metadata.Value(cds.MetaGenre))

	res, err := s.Search(ctx, storage.SearchParams{Criteria: `dc:title = "Old Title"`})
	require.NoError(t, err)
	assert.Zero(t, res.TotalMatches, "side table must follow updates")

	res, err = s.Search(ctx, storage.SearchParams{Criteria: `upnp:genre = "jazz"`})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.TotalMatches)

	missing := cds.NewItem(cds.IDFilesystemRoot, "ghost", "/ghost.mp3", "audio/mpeg")
	missing.ID = 9999
	assert.ErrorIs(t, s.UpdateObject(ctx, missing), storage.ErrNotFound)

	assert.Equal(t, []int64{1, 1}, n.changed())
}

func TestBrowseDirectChildren(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	parent := mustAdd(t, s, cds.NewContainer(cds.IDFilesystemRoot, "Music"))
	for _, title := range []string{"c", "a", "b"} {
		mustAdd(t, s, cds.NewItem(parent, title, "/music/"+title+".mp3", "audio/mpeg"))
	}

	res, err := s.Browse(ctx, storage.BrowseParams{
		ObjectID: parent,
		Flags:    storage.BrowseDirectChildren,
		Start:    0,
		Count:    10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.TotalMatches)
	assert.Equal(t, []string{"a", "b", "c"}, titles(res.Objects))
}

func TestBrowseOrderingAndFilters(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	parent := mustAdd(t, s, cds.NewContainer(cds.IDFilesystemRoot, "Mixed"))
	mustAdd(t, s, cds.NewItem(parent, "b-item", "/b", "audio/mpeg"))
	mustAdd(t, s, cds.NewItem(parent, "a-item", "/a", "audio/mpeg"))
	sub := mustAdd(t, s, cds.NewContainer(parent, "z-folder"))
	mustAdd(t, s, cds.NewItem(sub, "nested", "/z/n", "audio/mpeg"))

	browse := func(p storage.BrowseParams) *storage.BrowseResult {
		t.Helper()
		p.ObjectID = parent
		res, err := s.Browse(ctx, p)
		require.NoError(t, err)
		return res
	}

	all := browse(storage.BrowseParams{Flags: storage.BrowseDirectChildren})
	assert.Equal(t, []string{"z-folder", "a-item", "b-item"}, titles(all.Objects), "containers sort before items")
	require.NotNil(t, all.Objects[0].Container())
	assert.Equal(t, int64(1), all.Objects[0].Container().ChildCount)

	items := browse(storage.BrowseParams{Flags: storage.BrowseDirectChildren | storage.BrowseItems})
	assert.Equal(t, int64(2), items.TotalMatches)
	assert.Equal(t, []string{"a-item", "b-item"}, titles(items.Objects))

	containers := browse(storage.BrowseParams{Flags: storage.BrowseDirectChildren | storage.BrowseContainers})
	assert.Equal(t, []string{"z-folder"}, titles(containers.Objects))

	page := browse(storage.BrowseParams{Flags: storage.BrowseDirectChildren, Start: 1, Count: 1})
	assert.Equal(t, int64(3), page.TotalMatches)
	assert.Equal(t, []string{"a-item"}, titles(page.Objects))

	tail := browse(storage.BrowseParams{Flags: storage.BrowseDirectChildren, Start: 2})
	assert.Equal(t, []string{"b-item"}, titles(tail.Objects))

	sorted := browse(storage.BrowseParams{Flags: storage.BrowseDirectChildren | storage.BrowseItems, Sort: "-dc:title"})
	assert.Equal(t, []string{"b-item", "a-item"}, titles(sorted.Objects))
}

func TestBrowseMetadata(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	parent := mustAdd(t, s, cds.NewContainer(cds.IDFilesystemRoot, "Photos"))
	item := mustAdd(t, s, cds.NewItem(parent, "beach", "/p/beach.jpg", "image/jpeg"))

	res, err := s.Browse(ctx, storage.BrowseParams{ObjectID: parent, Flags: storage.BrowseMetadata})
	require.NoError(t, err)
	require.Len(t, res.Objects, 1)
	assert.Equal(t, int64(1), res.TotalMatches)
	assert.Equal(t, "Photos", res.Objects[0].Title)
	assert.Equal(t, int64(1), res.Objects[0].Container().ChildCount)

	res, err = s.Browse(ctx, storage.BrowseParams{ObjectID: item, Flags: storage.BrowseDirectChildren})
	require.NoError(t, err)
	assert.Empty(t, res.Objects, "items have no children")
	assert.Zero(t, res.TotalMatches)

	_, err = s.Browse(ctx, storage.BrowseParams{ObjectID: 31337})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBrowseMetadataLoadsTargetOnce(t *testing.T) {
	s, backend := newFailingStorage(t)
	ctx := context.Background()

	item := mustAdd(t, s, cds.NewItem(cds.IDFilesystemRoot, "beach", "/p/beach.jpg", "image/jpeg"))

	backend.mu.Lock()
	backend.match = "WHERE f.id = " + itoa(item)
	backend.mu.Unlock()

	res, err := s.Browse(ctx, storage.BrowseParams{ObjectID: item, Flags: storage.BrowseMetadata})
	require.NoError(t, err)
	require.Len(t, res.Objects, 1)
	assert.Equal(t, "/p/beach.jpg", res.Objects[0].Location())

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, 1, backend.matched)
}

func TestBrowseRootHidesPhantomParent(t *testing.T) {
	s := newTestStorage(t)

	res, err := s.Browse(context.Background(), storage.BrowseParams{
		ObjectID: cds.IDRoot,
		Flags:    storage.BrowseDirectChildren,
	})
	require.NoError(t, err)
	require.Len(t, res.Objects, 1)
	assert.Equal(t, cds.IDFilesystemRoot, res.Objects[0].ID)
}

func TestSelectObjects(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	parent := mustAdd(t, s, cds.NewContainer(cds.IDFilesystemRoot, "P"))
	sub := mustAdd(t, s, cds.NewContainer(parent, "sub"))
	orig := cds.NewItem(parent, "song", "/song.mp3", "audio/mpeg")
	mustAdd(t, s, orig)
	ref := addReference(t, s, sub, orig)

	ids := func(objs []*cds.Object, err error) []int64 {
		t.Helper()
		require.NoError(t, err)
		out := make([]int64, len(objs))
		for i, o := range objs {
			out[i] = o.ID
		}
		return out
	}

	assert.Equal(t, []int64{sub, orig.ID}, ids(s.SelectObjects(ctx, storage.ByParentID(parent), storage.SelectBasic)))
	assert.Equal(t, []int64{orig.ID}, ids(s.SelectObjects(ctx, storage.ByParentIDItems(parent), storage.SelectBasic)))
	assert.Equal(t, []int64{sub}, ids(s.SelectObjects(ctx, storage.ByParentIDContainers(parent), storage.SelectBasic)))
	assert.Equal(t, []int64{ref}, ids(s.SelectObjects(ctx, storage.ByRefID(orig.ID), storage.SelectBasic)))
	assert.Equal(t, []int64{cds.IDRoot}, ids(s.SelectObjects(ctx, storage.ByParentID(cds.IDInvalid), storage.SelectBasic)))
}

func TestFindObjectByTitle(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	parent := mustAdd(t, s, cds.NewContainer(cds.IDFilesystemRoot, "Artists"))
	want := mustAdd(t, s, cds.NewContainer(parent, "O'Brien"))

	got, err := s.FindObjectByTitle(ctx, parent, "O'Brien")
	require.NoError(t, err)
	assert.Equal(t, want, got.ID)

	_, err = s.FindObjectByTitle(ctx, cds.IDFilesystemRoot, "O'Brien")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.FindObjectByLocation(ctx, "/nowhere")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRemoveItemWithReferences(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	parent := mustAdd(t, s, cds.NewContainer(cds.IDFilesystemRoot, "Library"))
	orig := cds.NewItem(parent, "original", "/o.mp3", "audio/mpeg")
	mustAdd(t, s, orig)
	ref1 := addReference(t, s, parent, orig)
	ref2 := addReference(t, s, parent, orig)
	mustAdd(t, s, cds.NewItem(parent, "keep", "/k.mp3", "audio/mpeg"))

	before, err := s.ChildCount(ctx, parent, false, false)
	require.NoError(t, err)
	require.Equal(t, int64(4), before)

	require.NoError(t, s.RemoveObject(ctx, orig.ID))

	for _, id := range []int64{orig.ID, ref1, ref2} {
		_, err := s.LoadObject(ctx, id, storage.SelectBasic)
		assert.ErrorIs(t, err, storage.ErrNotFound, "object %d", id)
	}

	after, err := s.ChildCount(ctx, parent, false, false)
	require.NoError(t, err)
	assert.Equal(t, before-3, after)

	rows, err := s.Backend().Query(ctx, "SELECT COUNT(*) FROM mt_metadata WHERE item_id IN ("+
		itoa(orig.ID)+", "+itoa(ref1)+", "+itoa(ref2)+")")
	require.NoError(t, err)
	n, err := rows.Rows[0].Int64(0)
	require.NoError(t, err)
	assert.Zero(t, n, "metadata rows are deleted with their objects")
}

func TestRemovePrunesEmptyContainers(t *testing.T) {
	n := &recordingNotifier{}
	s := newTestStorage(t, storage.WithNotifier(n))
	ctx := context.Background()

	outer := mustAdd(t, s, cds.NewContainer(cds.IDFilesystemRoot, "outer"))
	inner := mustAdd(t, s, cds.NewContainer(outer, "inner"))
	item := mustAdd(t, s, cds.NewItem(inner, "only", "/only.mp3", "audio/mpeg"))

	require.NoError(t, s.RemoveObject(ctx, item))

	for _, id := range []int64{item, inner, outer} {
		_, err := s.LoadObject(ctx, id, storage.SelectBasic)
		assert.ErrorIs(t, err, storage.ErrNotFound, "object %d", id)
	}
	_, err := s.LoadObject(ctx, cds.IDFilesystemRoot, storage.SelectBasic)
	assert.NoError(t, err, "protected containers are never pruned")

	assert.Subset(t, n.changed(), []int64{cds.IDFilesystemRoot, outer, inner})
}

func TestRemoveSubtreeAcrossBatches(t *testing.T) {
	s := newTestStorage(t, storage.WithRemovalBatchLimit(2))
	ctx := context.Background()

	parent := mustAdd(t, s, cds.NewContainer(cds.IDFilesystemRoot, "parent"))
	sibling := mustAdd(t, s, cds.NewItem(parent, "sibling", "/sibling.mp3", "audio/mpeg"))
	doomed := mustAdd(t, s, cds.NewContainer(parent, "doomed"))
	nested := mustAdd(t, s, cds.NewContainer(doomed, "nested"))

	var removed []int64
	for i := 0; i < 5; i++ {
		removed = append(removed, mustAdd(t, s, cds.NewItem(doomed, "track", "/d/track", "audio/mpeg")))
	}
	for i := 0; i < 3; i++ {
		removed = append(removed, mustAdd(t, s, cds.NewItem(nested, "deep", "/d/n/deep", "audio/mpeg")))
	}
	removed = append(removed, doomed, nested)

	require.NoError(t, s.RemoveObject(ctx, doomed))

	for _, id := range removed {
		_, err := s.LoadObject(ctx, id, storage.SelectBasic)
		assert.ErrorIs(t, err, storage.ErrNotFound, "object %d", id)
	}

	_, err := s.LoadObject(ctx, parent, storage.SelectBasic)
	require.NoError(t, err, "a parent with a remaining child must survive")
	_, err = s.LoadObject(ctx, sibling, storage.SelectBasic)
	require.NoError(t, err)

	count, err := s.ChildCount(ctx, parent, false, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

// failingBackend counts the queries containing match and fails the
// failAt-th of them. With failAt zero it only counts.
type failingBackend struct {
	storage.Backend

	mu      sync.Mutex
	match   string
	failAt  int
	matched int
}

func (b *failingBackend) Query(ctx context.Context, statement string) (*storage.RowSet, error) {
	b.mu.Lock()
	if b.match != "" && strings.Contains(statement, b.match) {
		b.matched++
		if b.matched == b.failAt {
			b.mu.Unlock()
			return nil, errors.New("connection reset")
		}
	}
	b.mu.Unlock()
	return b.Backend.Query(ctx, statement)
}

func newFailingStorage(t *testing.T, opts ...storage.Option) (*storage.Storage, *failingBackend) {
	t.Helper()
	engine, err := sqlite.Open(context.Background(), sqlite.Options{
		Path:           filepath.Join(t.TempDir(), "cds.db"),
		BackupInterval: time.Hour,
	})
	require.NoError(t, err)
	backend := &failingBackend{Backend: engine}
	s := storage.New(backend, opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s, backend
}

func (b *failingBackend) disarm() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.match = ""
}

func TestRemoveAbortKeepsUnflushedBatch(t *testing.T) {
	s, backend := newFailingStorage(t, storage.WithRemovalBatchLimit(2))
	ctx := context.Background()

	parent := mustAdd(t, s, cds.NewContainer(cds.IDFilesystemRoot, "parent"))
	sibling := mustAdd(t, s, cds.NewItem(parent, "sibling", "/sibling.mp3", "audio/mpeg"))
	doomed := mustAdd(t, s, cds.NewContainer(parent, "doomed"))
	var tracks []int64
	for i := 0; i < 6; i++ {
		tracks = append(tracks, mustAdd(t, s, cds.NewItem(doomed, "track", "/d/track"+strconv.Itoa(i), "audio/mpeg")))
	}

	// Tracks are walked in id order and each looks up its references. The
	// first batch holds three tracks; the walk dies on the sixth track.
	backend.mu.Lock()
	backend.match = "WHERE f.ref_id = "
	backend.failAt = 6
	backend.mu.Unlock()

	survivors := append(append([]int64{}, tracks[3:]...), doomed)

	err := s.RemoveObject(ctx, doomed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	for _, id := range tracks[:3] {
		_, err := s.LoadObject(ctx, id, storage.SelectBasic)
		assert.ErrorIs(t, err, storage.ErrNotFound, "flushed track %d stays deleted", id)
	}
	for _, id := range survivors {
		_, err := s.LoadObject(ctx, id, storage.SelectBasic)
		assert.NoError(t, err, "unflushed object %d must survive the aborted walk", id)
	}

	backend.disarm()
	require.NoError(t, s.RemoveObject(ctx, doomed))

	for _, id := range survivors {
		_, err := s.LoadObject(ctx, id, storage.SelectBasic)
		assert.ErrorIs(t, err, storage.ErrNotFound, "object %d", id)
	}
	_, err = s.LoadObject(ctx, sibling, storage.SelectBasic)
	require.NoError(t, err)
	count, err := s.ChildCount(ctx, parent, false, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRemoveObjectErrors(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	for _, id := range []int64{cds.IDInvalid, cds.IDRoot, cds.IDFilesystemRoot} {
		assert.ErrorIs(t, s.RemoveObject(ctx, id), storage.ErrProtectedObject, "id %d", id)
	}

	assert.ErrorIs(t, s.RemoveObject(ctx, 777), storage.ErrNotFound)

	id := mustAdd(t, s, cds.NewItem(cds.IDFilesystemRoot, "once", "/once.mp3", "audio/mpeg"))
	require.NoError(t, s.RemoveObject(ctx, id))
	assert.ErrorIs(t, s.RemoveObject(ctx, id), storage.ErrNotFound, "second removal reports not found")
}

func TestSearch(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	music := mustAdd(t, s, cds.NewContainer(cds.IDFilesystemRoot, "Music"))
	song := cds.NewItem(music, "Foo", "/m/foo.mp3", "audio/mpeg")
	song.Metadata.Set(cds.MetaArtist, "Bar")
	mustAdd(t, s, song)
	other := cds.NewItem(music, "Foo Fighters Live", "/m/ffl.mp3", "audio/mpeg")
	other.Metadata.Set(cds.MetaArtist, "Baz")
	mustAdd(t, s, other)
	mustAdd(t, s, cds.NewItem(music, "100% real", "/p/pic.jpg", "image/jpeg"))

	tests := []struct {
		criteria string
		want     []string
	}{
		{`dc:title="Foo" and upnp:artist="Bar"`, []string{"Foo"}},
		{`dc:title = "foo"`, []string{"Foo"}},
		{`dc:title contains "foo"`, []string{"Foo", "Foo Fighters Live"}},
		{`dc:title doesNotContain "live"`, []string{"Music", "Foo", "100% real"}},
		{`dc:title startsWith "100%"`, []string{"100% real"}},
		{`dc:title contains "0% r"`, []string{"100% real"}},
		{`upnp:class derivedfrom "object.item.audioItem"`, []string{"Foo", "Foo Fighters Live"}},
		{`upnp:class derivedfrom "object.item"`, []string{"Foo", "Foo Fighters Live", "100% real"}},
		{`upnp:artist exists true`, []string{"Foo", "Foo Fighters Live"}},
		{`upnp:artist exists false and upnp:class derivedfrom "object.item"`, []string{"100% real"}},
		{`upnp:artist = "Baz" or upnp:artist = "Bar"`, []string{"Foo", "Foo Fighters Live"}},
		{`*`, []string{"Music", "Foo", "Foo Fighters Live", "100% real"}},
	}

	for _, tt := range tests {
		t.Run(tt.criteria, func(t *testing.T) {
			res, err := s.Search(ctx, storage.SearchParams{Criteria: tt.criteria})
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(res.Objects))
			assert.Equal(t, int64(len(tt.want)), res.TotalMatches)
		})
	}
}

func TestSearchPagingAndSort(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	for _, title := range []string{"b", "c", "a"} {
		mustAdd(t, s, cds.NewItem(cds.IDFilesystemRoot, title, "/"+title, "audio/mpeg"))
	}

	res, err := s.Search(ctx, storage.SearchParams{Criteria: "*", Sort: "+dc:title", Start: 1, Count: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.TotalMatches)
	assert.Equal(t, []string{"b"}, titles(res.Objects))
}

func TestSearchRejectsMalformedCriteria(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.Search(ctx, storage.SearchParams{Criteria: "dc:title="})
	assert.ErrorIs(t, err, search.ErrParse)

	_, err = s.Search(ctx, storage.SearchParams{Criteria: `dc:title = "open`})
	assert.ErrorIs(t, err, search.ErrLex)

	_, err = s.CompileSearch("dc:title ! x")
	assert.ErrorIs(t, err, search.ErrLex)
}

func TestAggregates(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	folder := mustAdd(t, s, cds.NewContainer(cds.IDFilesystemRoot, "F"))
	song := cds.NewItem(folder, "s", "/s.mp3", "audio/mpeg")
	mustAdd(t, s, song)
	mustAdd(t, s, cds.NewItem(folder, "p", "/p.jpg", "image/jpeg"))
	mustAdd(t, s, cds.NewItem(folder, "p2", "/p2.jpg", "image/jpeg"))
	addReference(t, s, cds.IDRoot, song)

	types, err := s.MimeTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"audio/mpeg", "image/jpeg"}, types)

	files, err := s.TotalFileCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), files)

	stats, err := s.CollectStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Containers)
	assert.Equal(t, int64(4), stats.Items)
	assert.Equal(t, int64(1), stats.Virtual)
	assert.Equal(t, int64(2), stats.MimeTypes)

	containers, err := s.ChildCount(ctx, cds.IDRoot, true, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), containers)
	items, err := s.ChildCount(ctx, cds.IDRoot, false, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), items)
}

func TestIncrementUpdateIDs(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	folder := mustAdd(t, s, cds.NewContainer(cds.IDFilesystemRoot, "F"))
	item := mustAdd(t, s, cds.NewItem(folder, "i", "/i", "audio/mpeg"))

	require.NoError(t, s.IncrementUpdateIDs(ctx, []int64{folder, item, cds.IDRoot}))
	require.NoError(t, s.IncrementUpdateIDs(ctx, []int64{folder}))
	require.NoError(t, s.IncrementUpdateIDs(ctx, nil))

	got, err := s.LoadObject(ctx, folder, storage.SelectExtended)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Container().UpdateID)

	root, err := s.LoadObject(ctx, cds.IDRoot, storage.SelectExtended)
	require.NoError(t, err)
	assert.Equal(t, int64(1), root.Container().UpdateID)
}

func TestInternalSettings(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.InternalSetting(ctx, "last_scan")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.StoreInternalSetting(ctx, "last_scan", "1"))
	require.NoError(t, s.StoreInternalSetting(ctx, "last_scan", "it's 2"))

	v, err := s.InternalSetting(ctx, "last_scan")
	require.NoError(t, err)
	assert.Equal(t, "it's 2", v)

	version, err := s.InternalSetting(ctx, storage.VersionSetting)
	require.NoError(t, err)
	assert.Equal(t, "3", version)
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
