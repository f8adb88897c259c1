package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"

	"imageforge/internal/capability"
	"imageforge/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// qualityLadder is the descending JPEG quality sequence tried for images
// without meaningful transparency.
var qualityLadder = []int{85, 80, 75, 70}

// Optimizer shrinks encoded byte size while holding pixel dimensions
// fixed. Reduction is best-effort: failing to reach the target is not an
// error, only I/O and decode problems are.
type Optimizer struct {
	caps *capability.Registry
}

// NewOptimizer returns an Optimizer backed by the given capabilities.
func NewOptimizer(caps *capability.Registry) *Optimizer {
	return &Optimizer{caps: caps}
}

// Optimize rewrites path in place, attempting to cut at least
// targetReductionPercent of its byte size. The output keeps the canonical
// alpha-capable container and exactly origW x origH pixels.
func (o *Optimizer) Optimize(path string, origW, origH int, targetReductionPercent float64) (string, error) {
	img, err := openBitmap(path)
	if err != nil {
		return "", err
	}

	// Dimension drift from an earlier stage is corrected before any
	// size work happens.
	img = forceDimensions(img, origW, origH)

	startSize, err := fileSize(path)
	if err != nil {
		return "", err
	}
	targetSize := int64(float64(startSize) * (1 - targetReductionPercent/100))

	if hasRealTransparency(img) {
		if err := o.optimizeTransparent(img, path); err != nil {
			return "", err
		}
	} else {
		if err := o.optimizeOpaque(img, path, targetSize); err != nil {
			return "", err
		}
	}

	// Final verification: the written bytes must still have the original
	// dimensions; one corrective resample otherwise.
	w, h, err := Dimensions(path)
	if err != nil {
		return "", err
	}
	if w != origW || h != origH {
		written, err := openBitmap(path)
		if err != nil {
			return "", err
		}
		if err := savePNG(imaging.Resize(written, origW, origH, imaging.Lanczos), path); err != nil {
			return "", err
		}
	}

	return fmt.Sprintf("PNG optimized (%dx%d)", origW, origH), nil
}

// optimizeTransparent keeps the transparency-preserving encoding and
// optionally hands the bytes to an external lossless optimizer. The
// handoff result is only accepted if it parses back to the same
// dimensions and actually got smaller.
func (o *Optimizer) optimizeTransparent(img image.Image, path string) error {
	if err := savePNG(img, path); err != nil {
		return err
	}

	origW, origH := img.Bounds().Dx(), img.Bounds().Dy()

	if o.caps.Oxipng {
		if o.tryOxipng(path, origW, origH) {
			return nil
		}
	}
	if o.caps.Vips {
		o.tryVipsReencode(path, origW, origH)
	}
	return nil
}

// tryOxipng runs oxipng on a scratch copy and swaps it in when the
// result is valid and smaller. Returns whether the swap happened.
func (o *Optimizer) tryOxipng(path string, origW, origH int) bool {
	before, err := fileSize(path)
	if err != nil {
		return false
	}

	scratch := path + "." + uuid.NewString()[:8] + ".oxipng"
	if err := copyFile(path, scratch); err != nil {
		return false
	}
	defer os.Remove(scratch)

	if err := o.caps.OptimizePNG(scratch); err != nil {
		logging.Debug("oxipng pass failed for %s: %v", path, err)
		return false
	}

	w, h, err := Dimensions(scratch)
	if err != nil || w != origW || h != origH {
		logging.Debug("oxipng output rejected for %s (dims %dx%d)", path, w, h)
		return false
	}
	after, err := fileSize(scratch)
	if err != nil || after >= before || after == 0 {
		return false
	}

	return os.Rename(scratch, path) == nil
}

// tryVipsReencode re-encodes the PNG through libvips at maximum
// compression, keeping the result only when it shrinks the file.
func (o *Optimizer) tryVipsReencode(path string, origW, origH int) {
	before, err := fileSize(path)
	if err != nil {
		return
	}

	ref, err := vips.LoadImageFromFile(path, vips.NewImportParams())
	if err != nil {
		return
	}
	defer ref.Close()

	params := vips.NewPngExportParams()
	params.Compression = 9
	data, _, err := ref.ExportPng(params)
	if err != nil || int64(len(data)) >= before {
		return
	}

	// Accept only if the bytes parse back to the same dimensions.
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width != origW || cfg.Height != origH {
		return
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		logging.Warn("failed to write vips-optimized PNG %s: %v", path, err)
	}
}

// optimizeOpaque walks the descending quality ladder until the encoded
// size is below target, then converts the chosen bytes back into the
// canonical container so callers always deal with one output format.
func (o *Optimizer) optimizeOpaque(img image.Image, path string, targetSize int64) error {
	var chosen []byte
	for _, quality := range qualityLadder {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return fmt.Errorf("jpeg encode at quality %d: %w", quality, err)
		}
		chosen = buf.Bytes()
		if int64(len(chosen)) < targetSize {
			break
		}
	}

	reduced, err := imaging.Decode(bytes.NewReader(chosen))
	if err != nil {
		return fmt.Errorf("failed to decode reduced image: %w", err)
	}
	return savePNG(reduced, path)
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
