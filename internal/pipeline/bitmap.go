package pipeline

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"imageforge/internal/logging"

	// Canonical and directly-decodable format support
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// maxImagePixels guards against decode bombs. Anything above this is
// refused during normalization (~320MB as NRGBA).
const maxImagePixels = 80_000_000

// OrientedDimensions returns the pixel size of the image as it decodes,
// with EXIF auto-orientation applied. Rotating orientation tags transpose
// width and height relative to the raw header, so any stage that resamples
// a decoded bitmap must take its target size from this oracle, not from
// Dimensions.
func OrientedDimensions(path string) (int, int, error) {
	img, err := openBitmap(path)
	if err != nil {
		return 0, 0, err
	}
	bounds := img.Bounds()
	return bounds.Dx(), bounds.Dy(), nil
}

// Dimensions returns an image's raw header pixel size without fully
// decoding it. EXIF orientation is not applied.
func Dimensions(path string) (int, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0, err
	}
	return config.Width, config.Height, nil
}

// openBitmap decodes an image with EXIF auto-orientation applied.
func openBitmap(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

// savePNG writes img to path as a maximally compressed PNG, the canonical
// on-disk representation between stages.
func savePNG(img image.Image, path string) error {
	err := imaging.Save(img, path, imaging.PNGCompressionLevel(png.BestCompression))
	if err != nil {
		return fmt.Errorf("failed to encode PNG %s: %w", path, err)
	}
	return nil
}

// alphaFraction returns the fraction of pixels that are not fully opaque.
func alphaFraction(img image.Image) float64 {
	nrgba := imaging.Clone(img)
	bounds := nrgba.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 0
	}

	translucent := 0
	for i := 3; i < len(nrgba.Pix); i += 4 {
		if nrgba.Pix[i] < 0xff {
			translucent++
		}
	}
	return float64(translucent) / float64(total)
}

// transparencyThreshold is the alpha fraction above which an image is
// treated as genuinely transparent. A handful of stray non-opaque pixels
// left over from format conversion does not count.
const transparencyThreshold = 0.005

// hasRealTransparency classifies whether transparency must be preserved.
func hasRealTransparency(img image.Image) bool {
	return alphaFraction(img) > transparencyThreshold
}

// fileSize returns the byte size of path.
func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
