package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"imageforge/internal/logging"
	"imageforge/internal/store"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, map[string]string{"error": message})
}

// writeSessionError maps session lookup errors to their HTTP status.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrSessionNotFound), errors.Is(err, store.ErrInvalidSessionID):
		writeJSONError(w, "session not found", http.StatusNotFound)
	case errors.Is(err, store.ErrMetadataUnreadable):
		writeJSONError(w, "session metadata unreadable", http.StatusInternalServerError)
	default:
		logging.Error("session lookup failed: %v", err)
		writeJSONError(w, "internal server error", http.StatusInternalServerError)
	}
}
