package pipeline

import (
	"image"

	"imageforge/internal/capability"
	"imageforge/internal/logging"

	"github.com/disintegration/imaging"
)

// Remover removes image backgrounds through the external rembg tool,
// degrading to a plain alpha-channel conversion when it is unavailable.
type Remover struct {
	caps *capability.Registry
}

// NewRemover returns a Remover backed by the given capabilities.
func NewRemover(caps *capability.Registry) *Remover {
	return &Remover{caps: caps}
}

// Remove writes a background-handled copy of inPath to outPath. The
// output always has an alpha channel and always has exactly origW x origH
// pixels, even when the removal model resampled internally. The caller
// gets a usable output whenever the input itself is readable; an
// unavailable or failing removal tool is a fallback, not an error.
func (r *Remover) Remove(inPath, outPath string, origW, origH int) (string, error) {
	if r.caps.BackgroundRemoval {
		if err := r.caps.RemoveBackground(inPath, outPath); err == nil {
			if err := normalizeRemovalOutput(outPath, origW, origH); err == nil {
				return "background removed", nil
			}
			logging.Warn("background removal output unusable for %s, falling back", inPath)
		} else {
			logging.Warn("background removal failed for %s: %v, falling back", inPath, err)
		}
	}

	// Fallback: convert to the alpha-capable canonical bitmap so the
	// caller still gets a transparency-ready output.
	img, err := openBitmap(inPath)
	if err != nil {
		return "", err
	}
	img = forceDimensions(img, origW, origH)
	if err := savePNG(img, outPath); err != nil {
		return "", err
	}
	return "background removal unavailable, converted to alpha-channel PNG", nil
}

// normalizeRemovalOutput re-opens the removal tool's output, corrects any
// dimension drift, and re-encodes it as the canonical bitmap.
func normalizeRemovalOutput(path string, origW, origH int) error {
	img, err := openBitmap(path)
	if err != nil {
		return err
	}
	img = forceDimensions(img, origW, origH)
	return savePNG(img, path)
}

// forceDimensions resamples img to exactly w x h if it drifted.
func forceDimensions(img image.Image, w, h int) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() == w && bounds.Dy() == h {
		return img
	}
	return imaging.Resize(img, w, h, imaging.Lanczos)
}
