package handlers

import (
	"net/http"
)

// StatsResponse contains catalog totals.
type StatsResponse struct {
	Containers int64 `json:"containers"`
	Items      int64 `json:"items"`
	Virtual    int64 `json:"virtual"`
	MimeTypes  int64 `json:"mimeTypes"`
	Files      int64 `json:"files"`
}

// GetStats returns catalog totals.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.catalog.CollectStats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	files, err := h.catalog.TotalFileCount(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, StatsResponse{
		Containers: stats.Containers,
		Items:      stats.Items,
		Virtual:    stats.Virtual,
		MimeTypes:  stats.MimeTypes,
		Files:      files,
	})
}

// GetMimeTypes returns the distinct MIME types in the catalog.
func (h *Handlers) GetMimeTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.catalog.MimeTypes(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if types == nil {
		types = []string{}
	}
	writeJSONResponse(w, http.StatusOK, types)
}

// TriggerBackup writes a backup of the embedded database now, whether or not
// it changed since the last one.
func (h *Handlers) TriggerBackup(w http.ResponseWriter, r *http.Request) {
	if h.backuper == nil {
		writeJSONError(w, "backups are only available for the sqlite3 backend", http.StatusNotImplemented)
		return
	}
	if err := h.backuper.Backup(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
