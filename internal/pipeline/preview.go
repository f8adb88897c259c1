package pipeline

import (
	"bytes"
	"encoding/base64"
	"image/jpeg"

	"imageforge/internal/logging"

	"github.com/disintegration/imaging"
)

// previewBound is the maximum width/height of generated previews.
const previewBound = 150

// PreviewBytes builds a small thumbnail of the image at path and returns
// the encoded bytes with their content type. Transparent sources keep
// their alpha channel as PNG; opaque sources become a compact JPEG.
func PreviewBytes(path string) ([]byte, string, error) {
	img, err := openBitmap(path)
	if err != nil {
		return nil, "", err
	}

	thumb := imaging.Fit(img, previewBound, previewBound, imaging.Lanczos)

	var buf bytes.Buffer
	mime := "image/jpeg"
	if hasRealTransparency(thumb) {
		mime = "image/png"
		err = imaging.Encode(&buf, thumb, imaging.PNG)
	} else {
		err = jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 70})
	}
	if err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mime, nil
}

// PreviewDataURL builds a base64-embeddable thumbnail of the image at
// path for UI consumption. Returns "" when the preview cannot be built;
// preview failure is never fatal to processing.
func PreviewDataURL(path string) string {
	data, mime, err := PreviewBytes(path)
	if err != nil {
		logging.Debug("preview skipped for %s: %v", path, err)
		return ""
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
