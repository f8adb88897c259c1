package handlers

import (
	"encoding/json"
	"net/http"

	"imageforge/internal/logging"
	"imageforge/internal/pipeline"
	"imageforge/internal/store"
)

// ProcessRequest selects the session and per-run options.
type ProcessRequest struct {
	SessionID        string `json:"sessionId"`
	RemoveBackground bool   `json:"removeBackground"`
	Resize           bool   `json:"resize"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
}

// ProcessResponse reports the per-asset outcomes of one run.
type ProcessResponse struct {
	SessionID string                   `json:"sessionId"`
	Results   []store.ProcessingResult `json:"results"`
	Stats     pipeline.Stats           `json:"stats"`
}

// Process runs the pipeline over every asset in the session. Per-asset
// failures are reported inside the results, not as an HTTP error; the
// request itself only fails when the session cannot be found or its
// state cannot be recorded.
func (h *Handlers) Process(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		writeJSONError(w, "sessionId is required", http.StatusBadRequest)
		return
	}

	sess, err := h.store.Load(req.SessionID)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	opts := store.ProcessingOptions{
		RemoveBackground: req.RemoveBackground,
		Resize:           req.Resize,
		TargetWidth:      req.Width,
		TargetHeight:     req.Height,
	}

	stats, err := h.orchestrator.Run(sess, opts)
	if err != nil {
		logging.Error("processing run for session %s failed: %v", sess.ID, err)
		writeJSONError(w, "processing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, ProcessResponse{
		SessionID: sess.ID,
		Results:   sess.Results,
		Stats:     stats,
	})
}
