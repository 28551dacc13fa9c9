package storage

import (
	"database/sql"
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-directory/internal/cds"
)

func textRow(values ...string) Row {
	row := make(Row, len(values))
	for i, v := range values {
		if v == "NULL" {
			continue
		}
		row[i] = sql.NullString{String: v, Valid: true}
	}
	return row
}

func TestDecodeObjectRejectsUnknownType(t *testing.T) {
	for _, raw := range []int{0, 0x4, 0x3, 0x10} {
		t.Run(strconv.Itoa(raw), func(t *testing.T) {
			_, err := decodeObject(textRow("12", "NULL", "1", strconv.Itoa(raw), "0"), SelectBasic)
			assert.ErrorIs(t, err, ErrUnknownObjectType)
		})
	}
}

func TestDecodeObjectBasic(t *testing.T) {
	obj, err := decodeObject(textRow("12", "7", "1", "2", "1"), SelectBasic)
	require.NoError(t, err)
	assert.Equal(t, int64(12), obj.ID)
	assert.Equal(t, int64(7), obj.RefID)
	assert.True(t, obj.Virtual)
	assert.Equal(t, cds.TypeItem, obj.Type())
}

func TestEncodeObjectColumns(t *testing.T) {
	quote := func(s string) string { return "'" + s + "'" }
	names := func(cols []column) []string {
		out := make([]string, len(cols))
		for i, c := range cols {
			out[i] = c.name
		}
		return out
	}

	container := names(encodeObject(cds.NewContainer(1, "c"), quote))
	assert.Contains(t, container, "update_id")
	assert.NotContains(t, container, "location")

	item := encodeObject(cds.NewItem(1, "i", "/i", ""), quote)
	assert.Contains(t, names(item), "location")
	assert.NotContains(t, names(item), "action")
	for _, c := range item {
		switch c.name {
		case "ref_id", "mime_type", "metadata":
			assert.Equal(t, "NULL", c.value, c.name)
		}
	}

	active := names(encodeObject(cds.NewActiveItem(1, "a", "/a", "", "act", "st"), quote))
	assert.Contains(t, active, "action")
	assert.Contains(t, active, "state")
}

func TestUpdateStatement(t *testing.T) {
	got := updateStatement(ObjectTable, 9, []column{{"dc_title", "'x'"}, {"ref_id", "NULL"}})
	assert.Equal(t, "UPDATE mt_cds_object SET id = id, dc_title = 'x', ref_id = NULL WHERE id = 9", got)
}

func TestSearchableMetadataAddsTitleAndClass(t *testing.T) {
	obj := cds.NewItem(1, "Song", "/s", "audio/mpeg")
	obj.Metadata.Set(cds.MetaArtist, "A")

	md := searchableMetadata(obj)
	assert.Equal(t, "Song", md.Value(cds.MetaTitle))
	assert.Equal(t, cds.ClassMusicTrack, md.Value("upnp:class"))
	assert.Equal(t, "A", md.Value(cds.MetaArtist))
	_, ok := obj.Metadata.Get(cds.MetaTitle)
	assert.False(t, ok, "the object's own metadata is not modified")
}

func TestLimitClause(t *testing.T) {
	tests := []struct {
		start, count int
		want         string
	}{
		{0, 0, ""},
		{-3, 0, ""},
		{0, 10, " LIMIT 10 OFFSET 0"},
		{5, 10, " LIMIT 10 OFFSET 5"},
		{5, 0, " LIMIT " + strconv.FormatInt(math.MaxInt64, 10) + " OFFSET 5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, limitClause(tt.start, tt.count), "start=%d count=%d", tt.start, tt.count)
	}
}

func TestTypeFilter(t *testing.T) {
	assert.Equal(t, "", typeFilter(BrowseDirectChildren))
	assert.Equal(t, itemsOnly, typeFilter(BrowseDirectChildren|BrowseItems))
	assert.Equal(t, containersOnly, typeFilter(BrowseDirectChildren|BrowseContainers))
	assert.Equal(t, "", typeFilter(BrowseDirectChildren|BrowseItems|BrowseContainers))
}

func TestSeedStatementsCoverReservedIDs(t *testing.T) {
	seeds := SeedStatements()
	require.Len(t, seeds, 4)
	assert.Contains(t, seeds[0], "VALUES (-1, NULL, -1,")
	assert.Contains(t, seeds[1], "VALUES (0, NULL, -1,")
	assert.Contains(t, seeds[2], "VALUES (1, NULL, 0,")
	assert.Contains(t, seeds[3], "'db_version', '3'")
}
