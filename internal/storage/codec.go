package storage

import (
	"fmt"
	"strconv"
	"strings"

	"media-directory/internal/cds"
)

// Table names.
const (
	ObjectTable   = "mt_cds_object"
	MetadataTable = "mt_metadata"
	SettingTable  = "mt_internal_setting"
)

// SelectMode controls how many columns a read fetches.
type SelectMode int

const (
	// SelectBasic reads identity and tree columns only.
	SelectBasic SelectMode = iota
	// SelectExtended adds descriptive columns.
	SelectExtended
	// SelectFull adds variant columns and resources.
	SelectFull
)

func (m SelectMode) String() string {
	switch m {
	case SelectBasic:
		return "basic"
	case SelectExtended:
		return "extended"
	case SelectFull:
		return "full"
	}
	return "mode(" + strconv.Itoa(int(m)) + ")"
}

// Column positions in select order.
const (
	colID = iota
	colRefID
	colParentID
	colObjectType
	colIsVirtual

	colClass
	colTitle
	colRestricted
	colMetadata
	colAuxData
	colUpdateID
	colSearchable

	colLocation
	colMimeType
	colAction
	colState
	colResources
	colRefResources
)

var (
	basicColumns    = []string{"f.id", "f.ref_id", "f.parent_id", "f.object_type", "f.is_virtual"}
	extendedColumns = []string{"f.upnp_class", "f.dc_title", "f.is_restricted", "f.metadata", "f.auxdata", "f.update_id", "f.is_searchable"}
	fullColumns     = []string{"f.location", "f.mime_type", "f.action", "f.state", "f.resources", "rf.resources"}
)

// selectFrom returns the SELECT ... FROM clause for mode. Objects are aliased
// as f; in full mode the referenced object is joined as rf.
func selectFrom(mode SelectMode) string {
	cols := append([]string{}, basicColumns...)
	if mode >= SelectExtended {
		cols = append(cols, extendedColumns...)
	}
	if mode >= SelectFull {
		cols = append(cols, fullColumns...)
	}
	q := "SELECT " + strings.Join(cols, ", ") + " FROM " + ObjectTable + " f"
	if mode >= SelectFull {
		q += " LEFT JOIN " + ObjectTable + " rf ON f.ref_id = rf.id"
	}
	return q
}

// decodeObject builds an object from a row read with selectFrom(mode).
func decodeObject(row Row, mode SelectMode) (*cds.Object, error) {
	id, err := row.Int64(colID)
	if err != nil {
		return nil, err
	}
	refID, err := row.Int64(colRefID)
	if err != nil {
		return nil, err
	}
	parentID, err := row.Int64(colParentID)
	if err != nil {
		return nil, err
	}
	rawType, err := row.Int64(colObjectType)
	if err != nil {
		return nil, err
	}

	obj := &cds.Object{
		ID:       id,
		RefID:    refID,
		ParentID: parentID,
		Virtual:  row.Bool(colIsVirtual),
	}

	switch cds.ObjectType(rawType) {
	case cds.TypeContainer:
		obj.Body = &cds.Container{}
	case cds.TypeItem:
		obj.Body = &cds.Item{}
	case cds.TypeItem | cds.TypeActiveItem:
		obj.Body = &cds.ActiveItem{}
	case cds.TypeItem | cds.TypeExternalURL:
		obj.Body = &cds.ExternalURLItem{}
	default:
		return nil, fmt.Errorf("object %d has type %#x: %w", id, rawType, ErrUnknownObjectType)
	}

	if mode >= SelectExtended {
		if err := decodeExtended(obj, row); err != nil {
			return nil, fmt.Errorf("object %d: %w", id, err)
		}
	}
	if mode >= SelectFull {
		if err := decodeFull(obj, row); err != nil {
			return nil, fmt.Errorf("object %d: %w", id, err)
		}
	}
	return obj, nil
}

func decodeExtended(obj *cds.Object, row Row) error {
	var err error
	obj.Class = row.String(colClass)
	obj.Title = row.String(colTitle)
	obj.Restricted = row.Bool(colRestricted)
	if obj.Metadata, err = cds.DecodeDict(row.String(colMetadata)); err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	if obj.AuxData, err = cds.DecodeDict(row.String(colAuxData)); err != nil {
		return fmt.Errorf("auxdata: %w", err)
	}
	if c, ok := obj.Body.(*cds.Container); ok {
		if c.UpdateID, err = row.Int64(colUpdateID); err != nil {
			return err
		}
		c.Searchable = row.Bool(colSearchable)
	}
	return nil
}

func decodeFull(obj *cds.Object, row Row) error {
	switch b := obj.Body.(type) {
	case *cds.Item:
		b.Location = row.String(colLocation)
		b.MimeType = row.String(colMimeType)
	case *cds.ActiveItem:
		b.Location = row.String(colLocation)
		b.MimeType = row.String(colMimeType)
		b.Action = row.String(colAction)
		b.State = row.String(colState)
	case *cds.ExternalURLItem:
		b.URL = row.String(colLocation)
		b.MimeType = row.String(colMimeType)
	}

	blob := row.String(colResources)
	if blob == "" && obj.RefID != 0 {
		blob = row.String(colRefResources)
	}
	resources, err := cds.DecodeResources(blob)
	if err != nil {
		return err
	}
	obj.Resources = resources
	return nil
}

// column is one column name with its SQL literal value.
type column struct {
	name  string
	value string
}

// encodeObject returns the columns written for obj. Only the columns of the
// object's variant are included.
func encodeObject(obj *cds.Object, quote func(string) string) []column {
	str := func(s string) string {
		if s == "" {
			return "NULL"
		}
		return quote(s)
	}

	refID := "NULL"
	if obj.RefID != 0 {
		refID = intLiteral(obj.RefID)
	}

	cols := []column{
		{"ref_id", refID},
		{"parent_id", intLiteral(obj.ParentID)},
		{"object_type", strconv.Itoa(int(obj.Type()))},
		{"is_virtual", boolLiteral(obj.Virtual)},
		{"upnp_class", str(obj.Class)},
		{"dc_title", str(obj.Title)},
		{"is_restricted", boolLiteral(obj.Restricted)},
		{"metadata", str(obj.Metadata.Encode())},
		{"auxdata", str(obj.AuxData.Encode())},
		{"resources", str(cds.EncodeResources(obj.Resources))},
	}

	switch b := obj.Body.(type) {
	case *cds.Container:
		cols = append(cols,
			column{"update_id", intLiteral(b.UpdateID)},
			column{"is_searchable", boolLiteral(b.Searchable)},
		)
	case *cds.Item:
		cols = append(cols,
			column{"location", str(b.Location)},
			column{"mime_type", str(b.MimeType)},
		)
	case *cds.ActiveItem:
		cols = append(cols,
			column{"location", str(b.Location)},
			column{"mime_type", str(b.MimeType)},
			column{"action", str(b.Action)},
			column{"state", str(b.State)},
		)
	case *cds.ExternalURLItem:
		cols = append(cols,
			column{"location", str(b.URL)},
			column{"mime_type", str(b.MimeType)},
		)
	}
	return cols
}

func insertStatement(table string, cols []column) string {
	names := make([]string, len(cols))
	values := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
		values[i] = c.value
	}
	return "INSERT INTO " + table + " (" + strings.Join(names, ", ") + ") VALUES (" + strings.Join(values, ", ") + ")"
}

func updateStatement(table string, id int64, cols []column) string {
	var b strings.Builder
	b.WriteString("UPDATE " + table + " SET id = id")
	for _, c := range cols {
		b.WriteString(", " + c.name + " = " + c.value)
	}
	b.WriteString(" WHERE id = " + intLiteral(id))
	return b.String()
}

// searchableMetadata is the metadata written to the side table. The title and
// class are always present so criteria on them match.
func searchableMetadata(obj *cds.Object) cds.Dict {
	md := obj.Metadata.Clone()
	if _, ok := md.Get(cds.MetaTitle); !ok && obj.Title != "" {
		md.Set(cds.MetaTitle, obj.Title)
	}
	if _, ok := md.Get("upnp:class"); !ok && obj.Class != "" {
		md.Set("upnp:class", obj.Class)
	}
	return md
}

func metadataInsert(id int64, md cds.Dict, quote func(string) string) string {
	if len(md) == 0 {
		return ""
	}
	rows := make([]string, len(md))
	for i, e := range md {
		rows[i] = "(" + intLiteral(id) + ", " + quote(e.Key) + ", " + quote(e.Value) + ")"
	}
	return "INSERT INTO " + MetadataTable + " (item_id, property_name, property_value) VALUES " + strings.Join(rows, ", ")
}

func intLiteral(v int64) string { return strconv.FormatInt(v, 10) }

func boolLiteral(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func idList(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = intLiteral(id)
	}
	return strings.Join(parts, ", ")
}
