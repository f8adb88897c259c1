package store

import (
	"path/filepath"
	"strings"
	"time"
)

// SessionStatus tracks a session through its lifecycle. It only ever
// moves forward: Uploaded -> Processing -> Processed.
type SessionStatus string

const (
	// StatusUploaded means assets have been ingested but not processed.
	StatusUploaded SessionStatus = "uploaded"
	// StatusProcessing means a processing run is in flight.
	StatusProcessing SessionStatus = "processing"
	// StatusProcessed means a processing run has completed (possibly with
	// per-asset failures).
	StatusProcessed SessionStatus = "processed"
)

// SourceKind records how an asset entered the session.
type SourceKind string

const (
	// SourceDirect is a file uploaded as-is.
	SourceDirect SourceKind = "direct"
	// SourceArchive is a file extracted from an uploaded zip archive.
	SourceArchive SourceKind = "fromArchive"
)

// ImageAsset is one image within a session. Assets are owned exclusively
// by their session and keep their upload order.
type ImageAsset struct {
	ID           string     `json:"id"`
	OriginalName string     `json:"originalName"`
	StoredName   string     `json:"storedName"`
	StoredPath   string     `json:"storedPath"`
	Source       SourceKind `json:"source"`
	SizeBytes    int64      `json:"sizeBytes"`
}

// ProcessingOptions is the per-run option set. A resize request without
// two strictly positive dimensions degrades silently to no resize.
type ProcessingOptions struct {
	RemoveBackground bool `json:"removeBackground"`
	Resize           bool `json:"resize"`
	TargetWidth      int  `json:"width,omitempty"`
	TargetHeight     int  `json:"height,omitempty"`
}

// Normalize coerces malformed resize requests to non-resize.
func (o ProcessingOptions) Normalize() ProcessingOptions {
	if o.Resize && (o.TargetWidth <= 0 || o.TargetHeight <= 0) {
		o.Resize = false
		o.TargetWidth = 0
		o.TargetHeight = 0
	}
	return o
}

// OptimizeOnly reports whether the run has no user-facing stage besides
// normalization and size optimization.
func (o ProcessingOptions) OptimizeOnly() bool {
	return !o.RemoveBackground && !o.Resize
}

// ProcessingResult is the per-asset outcome of one pipeline run.
type ProcessingResult struct {
	AssetID       string   `json:"assetId"`
	OriginalName  string   `json:"originalName"`
	ProcessedName string   `json:"processedName,omitempty"`
	Success       bool     `json:"success"`
	Message       string   `json:"message"`
	Operations    []string `json:"operations,omitempty"`

	OriginalSizeBytes    int64    `json:"originalSizeBytes"`
	FinalSizeBytes       *int64   `json:"finalSizeBytes,omitempty"`
	SizeReductionPercent *float64 `json:"sizeReductionPercent,omitempty"`

	// OutputPath is only set on success and always lives inside the
	// session directory.
	OutputPath string `json:"outputPath,omitempty"`
	PreviewURL string `json:"previewUrl,omitempty"`
}

// Session is the unit of isolation for one upload-process-download cycle.
type Session struct {
	ID        string        `json:"sessionId"`
	CreatedAt time.Time     `json:"createdAt"`
	Status    SessionStatus `json:"status"`
	Assets    []ImageAsset  `json:"assets"`

	// Options and Results are nil until the first processing run; a re-run
	// replaces Results completely.
	Options     *ProcessingOptions `json:"options,omitempty"`
	Results     []ProcessingResult `json:"results,omitempty"`
	ProcessedAt *time.Time         `json:"processedAt,omitempty"`

	// UploadErrors records per-file ingest problems that did not fail the
	// upload as a whole.
	UploadErrors []string `json:"uploadErrors,omitempty"`
	UploadType   string   `json:"uploadType,omitempty"`
}

// SuccessfulResults returns the results that produced an output, in
// asset order.
func (s *Session) SuccessfulResults() []ProcessingResult {
	var out []ProcessingResult
	for _, r := range s.Results {
		if r.Success {
			out = append(out, r)
		}
	}
	return out
}

// StandardFormats are directly decodable; no conversion is needed before
// the pipeline runs.
var StandardFormats = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true,
	"webp": true, "bmp": true, "tiff": true, "tif": true,
}

// SpecialFormats require conversion to the canonical bitmap first.
var SpecialFormats = map[string]bool{
	"svg": true, "heif": true, "heic": true,
	"eps": true, "ai": true, "psd": true, "raw": true,
}

// Ext returns the lower-case extension of name without the dot.
func Ext(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

// IsImageFile reports whether name has a processable image extension.
func IsImageFile(name string) bool {
	ext := Ext(name)
	return StandardFormats[ext] || SpecialFormats[ext]
}

// IsArchiveFile reports whether name is a zip archive.
func IsArchiveFile(name string) bool {
	return Ext(name) == "zip"
}

// IsAllowedUpload reports whether name may be ingested at all.
func IsAllowedUpload(name string) bool {
	return IsImageFile(name) || IsArchiveFile(name)
}
