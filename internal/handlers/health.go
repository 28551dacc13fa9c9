package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"media-directory/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Driver  string `json:"driver"`
	Error   string `json:"error,omitempty"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`

	// Catalog summary
	TotalFiles int64 `json:"totalFiles"`
}

// HealthCheck returns the health status of the service. A ready service whose
// catalog cannot be queried is reported as degraded.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ready := h.ready()
	response := HealthResponse{
		Ready:        ready,
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		Driver:       h.driver,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	if !ready {
		response.Status = statusStarting
		writeJSONResponse(w, http.StatusServiceUnavailable, response)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response.Status = statusHealthy
	total, err := h.catalog.TotalFileCount(ctx)
	if err != nil {
		response.Status = statusDegraded
		response.Error = err.Error()
	}
	response.TotalFiles = total

	writeJSONResponse(w, http.StatusOK, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when the storage backend accepts work
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if h.ready() {
		writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	writeJSONResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
}
