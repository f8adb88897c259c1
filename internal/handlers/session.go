package handlers

import (
	"net/http"
	"os"

	"imageforge/internal/logging"
	"imageforge/internal/pipeline"

	"github.com/gorilla/mux"
)

// GetSession returns the full session record.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.Load(mux.Vars(r)["sessionId"])
	if err != nil {
		writeSessionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, sess)
}

// DimensionsResponse reports the pixel size of the session's first asset.
type DimensionsResponse struct {
	OriginalName string  `json:"originalName"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	AspectRatio  float64 `json:"aspectRatio"`
	SizeBytes    int64   `json:"sizeBytes"`
}

// GetDimensions reports the dimensions of the first asset, normalizing
// special formats on the fly. The normalization scratch file is removed
// before the response goes out.
func (h *Handlers) GetDimensions(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.Load(mux.Vars(r)["sessionId"])
	if err != nil {
		writeSessionError(w, err)
		return
	}
	if len(sess.Assets) == 0 {
		writeJSONError(w, "session has no assets", http.StatusNotFound)
		return
	}

	asset := sess.Assets[0]
	normalized, _, err := h.normalizer.Normalize(asset.StoredPath)
	if err != nil {
		writeJSONError(w, "failed to read image: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if normalized != asset.StoredPath {
		defer func() {
			if err := os.Remove(normalized); err != nil {
				logging.Warn("failed to remove dimension scratch file %s: %v", normalized, err)
			}
		}()
	}

	width, height, err := pipeline.OrientedDimensions(normalized)
	if err != nil {
		writeJSONError(w, "failed to read image: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	var ratio float64
	if height > 0 {
		ratio = float64(width) / float64(height)
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, DimensionsResponse{
		OriginalName: asset.OriginalName,
		Width:        width,
		Height:       height,
		AspectRatio:  ratio,
		SizeBytes:    asset.SizeBytes,
	})
}

// GetPreview serves a bounded thumbnail of one stored asset. Transparent
// sources come back as PNG, opaque ones as JPEG.
func (h *Handlers) GetPreview(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sess, err := h.store.Load(vars["sessionId"])
	if err != nil {
		writeSessionError(w, err)
		return
	}

	var path string
	for _, asset := range sess.Assets {
		if asset.ID == vars["assetId"] {
			path = asset.StoredPath
			break
		}
	}
	if path == "" {
		writeJSONError(w, "asset not found", http.StatusNotFound)
		return
	}

	data, contentType, err := pipeline.PreviewBytes(path)
	if err != nil {
		writeJSONError(w, "failed to generate preview: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Write(data)
}
