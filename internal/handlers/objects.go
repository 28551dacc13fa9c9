package handlers

import (
	"net/http"

	"media-directory/internal/cds"
	"media-directory/internal/storage"
)

// ResourceJSON is the JSON form of a cds.Resource.
type ResourceJSON struct {
	Purpose      string            `json:"purpose"`
	ProtocolInfo string            `json:"protocolInfo"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	Parameters   map[string]string `json:"parameters,omitempty"`
}

// ObjectJSON is the JSON form of a catalog object. Variant fields are only
// set for the variant they belong to.
type ObjectJSON struct {
	ID         int64             `json:"id"`
	ParentID   int64             `json:"parentId"`
	RefID      int64             `json:"refId,omitempty"`
	Type       string            `json:"type"`
	Class      string            `json:"class"`
	Title      string            `json:"title"`
	Restricted bool              `json:"restricted"`
	Virtual    bool              `json:"virtual"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	AuxData    map[string]string `json:"auxData,omitempty"`
	Resources  []ResourceJSON    `json:"resources,omitempty"`

	// Container
	ChildCount *int64 `json:"childCount,omitempty"`
	UpdateID   *int64 `json:"updateId,omitempty"`
	Searchable *bool  `json:"searchable,omitempty"`

	// Items
	Location string `json:"location,omitempty"`
	URL      string `json:"url,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Action   string `json:"action,omitempty"`
	State    string `json:"state,omitempty"`
}

// PageJSON is one page of browse or search results.
type PageJSON struct {
	Objects        []ObjectJSON `json:"objects"`
	NumberReturned int          `json:"numberReturned"`
	TotalMatches   int64        `json:"totalMatches"`
}

func dictMap(d cds.Dict) map[string]string {
	if len(d) == 0 {
		return nil
	}
	m := make(map[string]string, len(d))
	for _, e := range d {
		m[e.Key] = e.Value
	}
	return m
}

func toJSON(o *cds.Object) ObjectJSON {
	out := ObjectJSON{
		ID:         o.ID,
		ParentID:   o.ParentID,
		RefID:      o.RefID,
		Type:       o.Type().String(),
		Class:      o.Class,
		Title:      o.Title,
		Restricted: o.Restricted,
		Virtual:    o.Virtual,
		Metadata:   dictMap(o.Metadata),
		AuxData:    dictMap(o.AuxData),
	}
	for _, r := range o.Resources {
		out.Resources = append(out.Resources, ResourceJSON{
			Purpose:      r.Purpose.String(),
			ProtocolInfo: r.ProtocolInfo,
			Attributes:   dictMap(r.Attributes),
			Parameters:   dictMap(r.Parameters),
		})
	}

	switch b := o.Body.(type) {
	case *cds.Container:
		out.ChildCount = &b.ChildCount
		out.UpdateID = &b.UpdateID
		out.Searchable = &b.Searchable
	case *cds.Item:
		out.Location = b.Location
		out.MimeType = b.MimeType
	case *cds.ExternalURLItem:
		out.URL = b.URL
		out.MimeType = b.MimeType
	case *cds.ActiveItem:
		out.Location = b.Location
		out.MimeType = b.MimeType
		out.Action = b.Action
		out.State = b.State
	}
	return out
}

func toPage(res *storage.BrowseResult) PageJSON {
	page := PageJSON{
		Objects:        make([]ObjectJSON, 0, len(res.Objects)),
		NumberReturned: len(res.Objects),
		TotalMatches:   res.TotalMatches,
	}
	for _, o := range res.Objects {
		page.Objects = append(page.Objects, toJSON(o))
	}
	return page
}

// GetObject returns one object with all of its columns.
func (h *Handlers) GetObject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	obj, err := h.catalog.LoadObject(r.Context(), id, storage.SelectFull)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, toJSON(obj))
}

// DeleteObject removes an object, its references and any containers left
// empty by the removal.
func (h *Handlers) DeleteObject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.catalog.RemoveObject(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Browse lists the children of a container, or returns the object itself
// with flag=metadata.
func (h *Handlers) Browse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	p := storage.BrowseParams{ObjectID: id, Sort: r.URL.Query().Get("sort")}
	if p.Start, err = queryInt(r, "start", 0); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if p.Count, err = queryInt(r, "count", 0); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch r.URL.Query().Get("flag") {
	case "", "children":
		p.Flags = storage.BrowseDirectChildren
	case "metadata":
		p.Flags = storage.BrowseMetadata
	default:
		writeJSONError(w, "flag must be metadata or children", http.StatusBadRequest)
		return
	}

	switch r.URL.Query().Get("filter") {
	case "":
	case "items":
		p.Flags |= storage.BrowseItems
	case "containers":
		p.Flags |= storage.BrowseContainers
	default:
		writeJSONError(w, "filter must be items or containers", http.StatusBadRequest)
		return
	}

	res, err := h.catalog.Browse(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, toPage(res))
}
