package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"imageforge/internal/metrics"
	"imageforge/internal/packager"

	"github.com/gorilla/mux"
)

// Download delivers the processed output: the image itself when exactly
// one asset succeeded, a zip archive otherwise. The session's deferred
// delete is scheduled only after the deliverable bytes are fully in
// memory, so the delete can never race the response.
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	sess, err := h.store.Load(sessionID)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	deliverable, err := packager.Package(sess)
	if err != nil {
		switch {
		case errors.Is(err, packager.ErrSessionNotProcessed):
			writeJSONError(w, "session has not been processed", http.StatusBadRequest)
		case errors.Is(err, packager.ErrNothingProcessed), errors.Is(err, packager.ErrEmptyArchive):
			writeJSONError(w, "no processed files available", http.StatusNotFound)
		default:
			writeJSONError(w, "failed to package download", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", deliverable.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", deliverable.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(deliverable.Data)))
	w.Write(deliverable.Data)

	metrics.DownloadsTotal.WithLabelValues(string(deliverable.Kind)).Inc()
	h.scheduler.ScheduleDelete(sess.ID)
}
