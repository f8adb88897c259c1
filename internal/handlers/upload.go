package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"imageforge/internal/logging"
	"imageforge/internal/metrics"
	"imageforge/internal/store"

	"github.com/google/uuid"
)

// multipartMemory caps how much of an upload is held in memory before
// spilling to temp files.
const multipartMemory = 32 << 20

// UploadedFile describes one accepted asset in the upload response.
type UploadedFile struct {
	ID           string `json:"id"`
	OriginalName string `json:"originalName"`
	Source       string `json:"source"`
	SizeBytes    int64  `json:"sizeBytes"`
}

// UploadResponse is the body returned by a successful upload.
type UploadResponse struct {
	SessionID  string         `json:"sessionId"`
	Files      []UploadedFile `json:"files"`
	Errors     []string       `json:"errors,omitempty"`
	UploadType string         `json:"uploadType"`
}

// Upload ingests one or more images and/or zip archives into a fresh
// session. Individual bad files are collected as errors; the request
// fails outright only when nothing could be accepted.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeJSONError(w, "invalid multipart request: "+err.Error(), http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeJSONError(w, "no files provided", http.StatusBadRequest)
		return
	}

	sess, err := h.store.CreateSession()
	if err != nil {
		logging.Error("failed to create session: %v", err)
		writeJSONError(w, "failed to create session", http.StatusInternalServerError)
		return
	}

	var uploadErrors []string
	for _, hdr := range files {
		name := filepath.Base(hdr.Filename)
		switch {
		case !store.IsAllowedUpload(name):
			uploadErrors = append(uploadErrors, fmt.Sprintf("%s: unsupported file type", name))
		case store.IsArchiveFile(name):
			if err := h.ingestArchive(sess, hdr); err != nil {
				uploadErrors = append(uploadErrors, fmt.Sprintf("%s: %v", name, err))
			}
		default:
			if err := h.ingestDirect(sess, hdr); err != nil {
				uploadErrors = append(uploadErrors, fmt.Sprintf("%s: %v", name, err))
			}
		}
	}

	if len(sess.Assets) == 0 {
		// Nothing usable arrived; the empty session must not linger.
		if err := h.store.Delete(sess.ID); err != nil {
			logging.Warn("failed to remove empty session %s: %v", sess.ID, err)
		}
		writeJSONError(w, "no valid image files in upload", http.StatusBadRequest)
		return
	}

	sess.UploadErrors = uploadErrors
	sess.UploadType = "multiple"
	if len(sess.Assets) == 1 {
		sess.UploadType = "single"
	}

	if err := h.store.Save(sess); err != nil {
		logging.Error("failed to save session %s: %v", sess.ID, err)
		writeJSONError(w, "failed to save session", http.StatusInternalServerError)
		return
	}

	metrics.SessionsCreated.Inc()
	logging.Info("session %s created with %d assets (%d upload errors)",
		sess.ID, len(sess.Assets), len(uploadErrors))

	response := UploadResponse{
		SessionID:  sess.ID,
		Errors:     uploadErrors,
		UploadType: sess.UploadType,
	}
	for _, asset := range sess.Assets {
		response.Files = append(response.Files, UploadedFile{
			ID:           asset.ID,
			OriginalName: asset.OriginalName,
			Source:       string(asset.Source),
			SizeBytes:    asset.SizeBytes,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}

// ingestDirect stores a single uploaded image as a session asset.
func (h *Handlers) ingestDirect(sess *store.Session, hdr *multipart.FileHeader) error {
	src, err := hdr.Open()
	if err != nil {
		return fmt.Errorf("failed to read upload: %w", err)
	}
	defer src.Close()

	if _, err := h.store.AddDirectAsset(sess, hdr.Filename, src); err != nil {
		return err
	}
	metrics.AssetsIngested.WithLabelValues(string(store.SourceDirect)).Inc()
	return nil
}

// ingestArchive spools an uploaded zip into the session directory and
// extracts its image entries as assets. The spooled archive is removed
// by the extraction.
func (h *Handlers) ingestArchive(sess *store.Session, hdr *multipart.FileHeader) error {
	src, err := hdr.Open()
	if err != nil {
		return fmt.Errorf("failed to read upload: %w", err)
	}
	defer src.Close()

	archivePath := filepath.Join(h.store.SessionDir(sess.ID), uuid.NewString()+"_"+filepath.Base(hdr.Filename))
	dst, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to spool archive: %w", err)
	}
	_, err = io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(archivePath)
		return fmt.Errorf("failed to spool archive: %w", err)
	}

	added, err := h.store.ExtractArchive(sess, archivePath)
	if err != nil {
		os.Remove(archivePath)
		return err
	}
	if added == 0 {
		return fmt.Errorf("archive contains no image files")
	}

	metrics.AssetsIngested.WithLabelValues(string(store.SourceArchive)).Add(float64(added))
	return nil
}
