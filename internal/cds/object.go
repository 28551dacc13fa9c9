package cds

import (
	"errors"
	"fmt"
	"strings"
)

// ObjectType is the bitmask stored in the object_type column.
type ObjectType int

// Object type bits. A variant sets every capability it has, so an active item
// is also an item.
const (
	TypeContainer   ObjectType = 0x1
	TypeItem        ObjectType = 0x2
	TypeActiveItem  ObjectType = 0x4
	TypeExternalURL ObjectType = 0x8
)

// IsContainer reports whether the container bit is set.
func (t ObjectType) IsContainer() bool { return t&TypeContainer != 0 }

// IsItem reports whether the item bit is set.
func (t ObjectType) IsItem() bool { return t&TypeItem != 0 }

// IsActiveItem reports whether the active item bit is set.
func (t ObjectType) IsActiveItem() bool { return t&TypeActiveItem != 0 }

// IsExternalURL reports whether the external URL bit is set.
func (t ObjectType) IsExternalURL() bool { return t&TypeExternalURL != 0 }

func (t ObjectType) String() string {
	var parts []string
	if t.IsContainer() {
		parts = append(parts, "container")
	}
	if t.IsItem() {
		parts = append(parts, "item")
	}
	if t.IsActiveItem() {
		parts = append(parts, "active")
	}
	if t.IsExternalURL() {
		parts = append(parts, "external_url")
	}
	if rest := t &^ (TypeContainer | TypeItem | TypeActiveItem | TypeExternalURL); rest != 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%#x", int(rest)))
	}
	return strings.Join(parts, "|")
}

// Reserved object ids. All three are protected from removal.
const (
	// IDInvalid is the parent of the root container.
	IDInvalid int64 = -1
	// IDRoot is the root container.
	IDRoot int64 = 0
	// IDFilesystemRoot is the "PC Directory" container mirroring the filesystem.
	IDFilesystemRoot int64 = 1
)

// IsProtected reports whether id is one of the reserved ids.
func IsProtected(id int64) bool {
	return id == IDInvalid || id == IDRoot || id == IDFilesystemRoot
}

// Metadata keys.
const (
	MetaTitle       = "dc:title"
	MetaCreator     = "dc:creator"
	MetaDate        = "dc:date"
	MetaDescription = "dc:description"
	MetaArtist      = "upnp:artist"
	MetaAlbum       = "upnp:album"
	MetaGenre       = "upnp:genre"
	MetaTrackNumber = "upnp:originalTrackNumber"
)

// Body holds the variant-specific part of an object. The set of
// implementations is closed: *Container, *Item, *ExternalURLItem, *ActiveItem.
type Body interface {
	objectType() ObjectType
}

// Container is a node with children.
type Container struct {
	Searchable bool
	UpdateID   int64
	// ChildCount is computed at read time and never stored.
	ChildCount int64
}

func (*Container) objectType() ObjectType { return TypeContainer }

// Item is a local media file.
type Item struct {
	Location string
	MimeType string
}

func (*Item) objectType() ObjectType { return TypeItem }

// ExternalURLItem is an item whose content lives at a remote URL.
type ExternalURLItem struct {
	URL      string
	MimeType string
}

func (*ExternalURLItem) objectType() ObjectType { return TypeItem | TypeExternalURL }

// ActiveItem is an item with an attached action, such as a script that runs
// when the item is played.
type ActiveItem struct {
	Item
	Action string
	State  string
}

func (*ActiveItem) objectType() ObjectType { return TypeItem | TypeActiveItem }

// Object is one catalog entry.
type Object struct {
	ID       int64
	ParentID int64
	// RefID is non-zero for a virtual reference and names the original object.
	RefID      int64
	Virtual    bool
	Restricted bool
	Class      string
	Title      string
	Metadata   Dict
	AuxData    Dict
	Resources  []Resource
	Body       Body
}

// NewContainer returns a container object under parentID.
func NewContainer(parentID int64, title string) *Object {
	return &Object{
		ParentID: parentID,
		Class:    ClassContainer,
		Title:    title,
		Body:     &Container{},
	}
}

// NewItem returns an item object for a local file. The class is derived from
// the MIME type.
func NewItem(parentID int64, title, location, mimeType string) *Object {
	return &Object{
		ParentID: parentID,
		Class:    ClassForMimeType(mimeType),
		Title:    title,
		Body:     &Item{Location: location, MimeType: mimeType},
	}
}

// NewExternalURLItem returns an item backed by a remote URL.
func NewExternalURLItem(parentID int64, title, url, mimeType string) *Object {
	return &Object{
		ParentID: parentID,
		Class:    ClassForMimeType(mimeType),
		Title:    title,
		Body:     &ExternalURLItem{URL: url, MimeType: mimeType},
	}
}

// NewActiveItem returns an item with an action and initial state.
func NewActiveItem(parentID int64, title, location, mimeType, action, state string) *Object {
	return &Object{
		ParentID: parentID,
		Class:    ClassForMimeType(mimeType),
		Title:    title,
		Body: &ActiveItem{
			Item:   Item{Location: location, MimeType: mimeType},
			Action: action,
			State:  state,
		},
	}
}

// Type returns the object type bitmask of the body, or 0 when there is none.
func (o *Object) Type() ObjectType {
	if o.Body == nil {
		return 0
	}
	return o.Body.objectType()
}

// IsContainer reports whether the object is a container.
func (o *Object) IsContainer() bool { return o.Type().IsContainer() }

// IsItem reports whether the object is an item of any kind.
func (o *Object) IsItem() bool { return o.Type().IsItem() }

// IsActiveItem reports whether the object is an active item.
func (o *Object) IsActiveItem() bool { return o.Type().IsActiveItem() }

// IsExternalURL reports whether the object is an external URL item.
func (o *Object) IsExternalURL() bool { return o.Type().IsExternalURL() }

// IsVirtualReference reports whether the object is a second placement of
// another object.
func (o *Object) IsVirtualReference() bool { return o.RefID != 0 }

// Container returns the container body, or nil.
func (o *Object) Container() *Container {
	c, _ := o.Body.(*Container)
	return c
}

// Location returns the file path or URL of an item. Containers have none.
func (o *Object) Location() string {
	switch b := o.Body.(type) {
	case *Item:
		return b.Location
	case *ActiveItem:
		return b.Location
	case *ExternalURLItem:
		return b.URL
	}
	return ""
}

// MimeType returns the MIME type of an item. Containers have none.
func (o *Object) MimeType() string {
	switch b := o.Body.(type) {
	case *Item:
		return b.MimeType
	case *ActiveItem:
		return b.MimeType
	case *ExternalURLItem:
		return b.MimeType
	}
	return ""
}

// Validation errors.
var (
	ErrMissingTitle    = errors.New("object has no title")
	ErrMissingClass    = errors.New("object has no upnp class")
	ErrMissingBody     = errors.New("object has no variant body")
	ErrMissingLocation = errors.New("item has no location")
	ErrMissingURL      = errors.New("external url item has no url")
)

// Validate checks the fields every stored object needs.
func (o *Object) Validate() error {
	if o.Title == "" {
		return ErrMissingTitle
	}
	if o.Class == "" {
		return ErrMissingClass
	}
	switch b := o.Body.(type) {
	case nil:
		return ErrMissingBody
	case *Item:
		if b.Location == "" {
			return ErrMissingLocation
		}
	case *ActiveItem:
		if b.Location == "" {
			return ErrMissingLocation
		}
	case *ExternalURLItem:
		if b.URL == "" {
			return ErrMissingURL
		}
	}
	return nil
}

// Clone returns a deep copy of the object.
func (o *Object) Clone() *Object {
	out := *o
	out.Metadata = o.Metadata.Clone()
	out.AuxData = o.AuxData.Clone()
	if o.Resources != nil {
		out.Resources = make([]Resource, len(o.Resources))
		for i, r := range o.Resources {
			r.Attributes = r.Attributes.Clone()
			r.Parameters = r.Parameters.Clone()
			out.Resources[i] = r
		}
	}
	switch b := o.Body.(type) {
	case *Container:
		c := *b
		out.Body = &c
	case *Item:
		c := *b
		out.Body = &c
	case *ExternalURLItem:
		c := *b
		out.Body = &c
	case *ActiveItem:
		c := *b
		out.Body = &c
	}
	return &out
}
