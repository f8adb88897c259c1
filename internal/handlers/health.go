package handlers

import (
	"net/http"
	"runtime"
	"time"

	"imageforge/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// CapabilityReport lists which optional processing backends are live.
type CapabilityReport struct {
	Vips              bool `json:"vips"`
	BackgroundRemoval bool `json:"backgroundRemoval"`
	Ghostscript       bool `json:"ghostscript"`
	Oxipng            bool `json:"oxipng"`
}

// HealthResponse contains the health check response
type HealthResponse struct {
	Status         string           `json:"status"`
	Version        string           `json:"version"`
	Uptime         string           `json:"uptime"`
	ActiveSessions int              `json:"activeSessions"`
	Capabilities   CapabilityReport `json:"capabilities"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service. The service is
// degraded when the session store cannot be listed; missing optional
// capabilities are reported but do not degrade health.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:  statusHealthy,
		Version: startup.Version,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
		Capabilities: CapabilityReport{
			Vips:              h.caps.Vips,
			BackgroundRemoval: h.caps.BackgroundRemoval,
			Ghostscript:       h.caps.Ghostscript,
			Oxipng:            h.caps.Oxipng,
		},
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	ids, err := h.store.List()
	if err != nil {
		response.Status = statusDegraded
	} else {
		response.ActiveSessions = len(ids)
	}

	w.Header().Set("Content-Type", "application/json")
	if response.Status != statusHealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	writeJSON(w, response)
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

// ReadinessCheck returns 200 only when session storage is reachable
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := h.store.List(); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]string{
			"status": "not_ready",
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	writeJSON(w, map[string]string{
		"status": "ready",
	})
}
