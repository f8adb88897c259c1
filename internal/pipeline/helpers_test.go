package pipeline

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"imageforge/internal/capability"

	"github.com/disintegration/imaging"
)

// testCaps is a registry with no external tooling, which is how the
// degraded paths are exercised deterministically.
func testCaps() *capability.Registry {
	return &capability.Registry{ExecTimeout: time.Second}
}

// testImage builds a gradient test image, optionally with a fully
// transparent left half.
func testImage(w, h int, transparent bool) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := uint8(255)
			if transparent && x < w/2 {
				a = 0
			}
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: uint8((x + y) * 255 / (w + h)),
				A: a,
			})
		}
	}
	return img
}

// writePNG saves a generated test image as a PNG and returns its path.
func writePNG(t *testing.T, dir, name string, w, h int, transparent bool) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := imaging.Save(testImage(w, h, transparent), path); err != nil {
		t.Fatalf("failed to write test PNG: %v", err)
	}
	return path
}

// writeJPEG saves a generated opaque test image as a JPEG.
func writeJPEG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := imaging.Save(testImage(w, h, false), path, imaging.JPEGQuality(95)); err != nil {
		t.Fatalf("failed to write test JPEG: %v", err)
	}
	return path
}

// exifOrientation6 is a minimal EXIF APP1 segment whose IFD0 carries a
// single orientation tag set to 6 (rotate 90 degrees clockwise to view).
var exifOrientation6 = []byte{
	0xff, 0xe1, 0x00, 0x22, // APP1 marker, segment length 34
	'E', 'x', 'i', 'f', 0x00, 0x00,
	'I', 'I', 0x2a, 0x00, 0x08, 0x00, 0x00, 0x00, // TIFF header, little-endian
	0x01, 0x00, // one IFD entry
	0x12, 0x01, 0x03, 0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x00, 0x00, 0x00, // orientation = 6
	0x00, 0x00, 0x00, 0x00, // no next IFD
}

// writeRotatedJPEG saves an opaque w x h JPEG tagged with EXIF
// orientation 6, so decoders that honor orientation see it as h x w.
func writeRotatedJPEG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	path := writeJPEG(t, dir, name, w, h)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) < 2 || data[0] != 0xff || data[1] != 0xd8 {
		t.Fatalf("generated JPEG %s is missing its SOI marker", name)
	}

	tagged := make([]byte, 0, len(data)+len(exifOrientation6))
	tagged = append(tagged, 0xff, 0xd8)
	tagged = append(tagged, exifOrientation6...)
	tagged = append(tagged, data[2:]...)
	if err := os.WriteFile(path, tagged, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// assertDimensions fails unless the image at path is exactly w x h.
func assertDimensions(t *testing.T, path string, w, h int) {
	t.Helper()
	gotW, gotH, err := Dimensions(path)
	if err != nil {
		t.Fatalf("failed to read dimensions of %s: %v", path, err)
	}
	if gotW != w || gotH != h {
		t.Errorf("%s is %dx%d, want %dx%d", filepath.Base(path), gotW, gotH, w, h)
	}
}

// assertPNG fails unless the file at path decodes as a PNG.
func assertPNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer f.Close()
	_, format, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("failed to decode %s: %v", path, err)
	}
	if format != "png" {
		t.Errorf("%s decoded as %s, want png", filepath.Base(path), format)
	}
}
