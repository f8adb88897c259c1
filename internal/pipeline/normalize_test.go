package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNormalizeStandardFormatPassthrough(t *testing.T) {
	dir := t.TempDir()
	n := NewNormalizer(testCaps())

	for _, name := range []string{"a.png", "b.jpg"} {
		var path string
		if strings.HasSuffix(name, ".png") {
			path = writePNG(t, dir, name, 20, 10, false)
		} else {
			path = writeJPEG(t, dir, name, 20, 10)
		}

		got, note, err := n.Normalize(path)
		if err != nil {
			t.Fatalf("Normalize(%s): %v", name, err)
		}
		if got != path {
			t.Errorf("standard format should pass through unchanged, got %s", got)
		}
		if note != "" {
			t.Errorf("standard format note = %q, want empty", note)
		}
	}
}

func TestNormalizeUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mystery.xyz")
	if err := os.WriteFile(path, []byte("???"), 0o644); err != nil {
		t.Fatal(err)
	}

	n := NewNormalizer(testCaps())
	if _, _, err := n.Normalize(path); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("got %v, want ErrUnsupportedFormat", err)
	}
}

func TestNormalizeCorruptStandardFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.png")
	if err := os.WriteFile(path, []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}

	n := NewNormalizer(testCaps())
	_, _, err := n.Normalize(path)
	if err == nil {
		t.Fatal("corrupt file must not pass normalization")
	}
	// No conversion was attempted on the passthrough path, so the error
	// must describe a decode failure rather than a failed conversion.
	if errors.Is(err, ErrConversionFailed) {
		t.Errorf("got %v, want a plain decode error, not ErrConversionFailed", err)
	}
	if !strings.Contains(err.Error(), "unreadable image") {
		t.Errorf("error %q should identify the file as unreadable", err)
	}
}

func TestNormalizeSpecialFallsBackToGenericDecode(t *testing.T) {
	dir := t.TempDir()
	// PNG content behind a .psd name: the primary converters are
	// unavailable in tests, so the generic decode strategy must pick
	// it up and emit a canonical temp file.
	src := writePNG(t, dir, "layered.png", 30, 20, false)
	path := filepath.Join(dir, "layered.psd")
	if err := os.Rename(src, path); err != nil {
		t.Fatal(err)
	}

	n := NewNormalizer(testCaps())
	got, note, err := n.Normalize(path)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got == path {
		t.Error("special format should produce a new canonical file")
	}
	if !strings.Contains(note, "generic decode") {
		t.Errorf("note = %q, want mention of the fallback converter", note)
	}
	assertDimensions(t, got, 30, 20)
	assertPNG(t, got)

	// Caller owns the temp file
	if !strings.HasPrefix(filepath.Base(got), "normalized_") {
		t.Errorf("canonical temp file %s should be clearly marked", got)
	}
}

func TestNormalizeSpecialAllConvertersFail(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "drawing.svg")
	if err := os.WriteFile(path, []byte("<svg/>"), 0o644); err != nil {
		t.Fatal(err)
	}

	n := NewNormalizer(testCaps())
	_, _, err := n.Normalize(path)
	if !errors.Is(err, ErrConversionFailed) {
		t.Errorf("got %v, want ErrConversionFailed", err)
	}

	// No stray temp files may survive a failed chain
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "normalized_") {
			t.Errorf("leftover temp file after failed normalization: %s", e.Name())
		}
	}
}
