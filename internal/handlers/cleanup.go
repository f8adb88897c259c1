package handlers

import (
	"errors"
	"net/http"

	"imageforge/internal/logging"
	"imageforge/internal/metrics"
	"imageforge/internal/store"

	"github.com/gorilla/mux"
)

// Cleanup removes one session immediately. Removing a session that is
// already gone succeeds; the client's intent is satisfied either way.
func (h *Handlers) Cleanup(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	existed := h.store.Exists(sessionID)
	if err := h.store.Delete(sessionID); err != nil {
		if errors.Is(err, store.ErrInvalidSessionID) {
			writeJSONError(w, "session not found", http.StatusNotFound)
			return
		}
		logging.Error("manual cleanup of session %s failed: %v", sessionID, err)
		writeJSONError(w, "failed to delete session", http.StatusInternalServerError)
		return
	}

	if existed {
		metrics.SessionsDeleted.WithLabelValues("manual").Inc()
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{
		"status":    "cleaned",
		"sessionId": sessionID,
	})
}

// CleanupAll removes every stored session.
func (h *Handlers) CleanupAll(w http.ResponseWriter, _ *http.Request) {
	deleted, err := h.store.DeleteAll()
	if err != nil {
		logging.Error("cleanup of all sessions failed: %v", err)
		writeJSONError(w, "failed to delete sessions", http.StatusInternalServerError)
		return
	}

	metrics.SessionsDeleted.WithLabelValues("manual").Add(float64(deleted))
	logging.Info("manual cleanup removed %d sessions", deleted)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"status":          "cleaned",
		"deletedSessions": deleted,
	})
}
