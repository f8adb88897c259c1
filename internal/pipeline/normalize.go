package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"imageforge/internal/capability"
	"imageforge/internal/logging"
	"imageforge/internal/store"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/google/uuid"
)

// Sentinel errors for normalization.
var (
	// ErrUnsupportedFormat means the input's extension is not a known
	// image format.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrConversionFailed means every converter in the format's fallback
	// chain failed.
	ErrConversionFailed = errors.New("format conversion failed")
)

// converter is one strategy for turning a special-format file into the
// canonical bitmap. Each writes a PNG to outPath or fails.
type converter struct {
	name    string
	convert func(inPath, outPath string) error
}

// Normalizer converts arbitrary inputs to the canonical bitmap using a
// per-format ordered fallback chain.
type Normalizer struct {
	caps *capability.Registry
}

// NewNormalizer returns a Normalizer backed by the given capabilities.
func NewNormalizer(caps *capability.Registry) *Normalizer {
	return &Normalizer{caps: caps}
}

// Normalize returns a path to a canonical, decodable bitmap for the
// input. Directly-decodable formats are returned as-is with an empty
// note. Special formats are converted to a new temporary PNG in the same
// directory; the caller owns its removal. The note describes the
// conversion that was applied.
func (n *Normalizer) Normalize(path string) (string, string, error) {
	ext := store.Ext(path)

	if store.StandardFormats[ext] {
		if err := n.checkDecodable(path); err != nil {
			return "", "", err
		}
		return path, "", nil
	}

	chain := n.chainFor(ext)
	if chain == nil {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	outPath := filepath.Join(filepath.Dir(path), "normalized_"+uuid.NewString()+".png")

	var lastErr error
	for _, c := range chain {
		logging.Debug("normalizing %s via %s", filepath.Base(path), c.name)
		if err := c.convert(path, outPath); err != nil {
			lastErr = err
			os.Remove(outPath)
			continue
		}
		// The chain stops at the first converter that produced a
		// non-empty, decodable output. A corrupt conversion must fail
		// here instead of poisoning the stages downstream.
		if size, err := fileSize(outPath); err != nil || size == 0 {
			lastErr = fmt.Errorf("%s produced no output", c.name)
			os.Remove(outPath)
			continue
		}
		if err := n.checkDecodable(outPath); err != nil {
			lastErr = fmt.Errorf("%s produced undecodable output: %v", c.name, err)
			os.Remove(outPath)
			continue
		}
		note := fmt.Sprintf("converted %s to PNG (%s)", ext, c.name)
		return outPath, note, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no converter available")
	}
	return "", "", fmt.Errorf("%w: %v", ErrConversionFailed, lastErr)
}

// chainFor returns the ordered converter chain for a special format, or
// nil for unknown extensions.
func (n *Normalizer) chainFor(ext string) []converter {
	vipsConv := converter{"vips", n.vipsConvert}
	generic := converter{"generic decode", genericConvert}

	switch ext {
	case "svg", "heif", "heic", "raw", "psd":
		return []converter{vipsConv, generic}
	case "eps", "ai":
		return []converter{{"ghostscript", n.caps.GhostscriptToPNG}, vipsConv, generic}
	default:
		return nil
	}
}

// checkDecodable verifies the canonical decoder can open the file and
// that it is not a decode bomb. A plain decode failure is not a
// conversion failure; the passthrough path never attempts a conversion,
// so only the oversize refusal carries ErrConversionFailed.
func (n *Normalizer) checkDecodable(path string) error {
	w, h, err := Dimensions(path)
	if err != nil {
		return fmt.Errorf("unreadable image: %v", err)
	}
	if w*h > maxImagePixels {
		return fmt.Errorf("%w: image too large (%dx%d)", ErrConversionFailed, w, h)
	}
	return nil
}

// vipsConvert loads any format libvips understands and exports a PNG.
func (n *Normalizer) vipsConvert(inPath, outPath string) error {
	if !n.caps.Vips {
		return errors.New("vips not available")
	}

	ref, err := vips.LoadImageFromFile(inPath, vips.NewImportParams())
	if err != nil {
		return fmt.Errorf("vips failed to load image: %w", err)
	}
	defer ref.Close()

	data, _, err := ref.ExportPng(vips.NewPngExportParams())
	if err != nil {
		return fmt.Errorf("vips export failed: %w", err)
	}
	return os.WriteFile(outPath, data, 0o644)
}

// genericConvert is the last-resort strategy: whatever the registered Go
// decoders can open gets re-encoded as PNG.
func genericConvert(inPath, outPath string) error {
	img, err := openBitmap(inPath)
	if err != nil {
		return err
	}
	return savePNG(img, outPath)
}
