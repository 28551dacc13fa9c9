package handlers

import (
	"net/http"

	"media-directory/internal/storage"
)

// Search runs UPnP search criteria (?q=) over the whole catalog.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	var err error
	p := storage.SearchParams{
		Criteria: r.URL.Query().Get("q"),
		Sort:     r.URL.Query().Get("sort"),
	}
	if p.Start, err = queryInt(r, "start", 0); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if p.Count, err = queryInt(r, "count", 0); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.catalog.Search(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, toPage(res))
}

// CompileSearch returns the SQL predicate the criteria compile to on the
// active backend. It touches no data.
func (h *Handlers) CompileSearch(w http.ResponseWriter, r *http.Request) {
	criteria := r.URL.Query().Get("q")
	sql, err := h.catalog.CompileSearch(criteria)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{
		"criteria": criteria,
		"sql":      sql,
	})
}
