package store

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// writeTestArchive builds a zip with the given entries (name -> content)
// inside the session directory and returns its path.
func writeTestArchive(t *testing.T, dir string, entries map[string][]byte) string {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := f.Write(content); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}

	path := filepath.Join(dir, "upload.zip")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractArchive(t *testing.T) {
	s := newTestStore(t)
	sess, _ := s.CreateSession()

	archive := writeTestArchive(t, s.SessionDir(sess.ID), map[string][]byte{
		"one.png":          []byte("png-bytes"),
		"nested/two.jpg":   []byte("jpg-bytes"),
		"readme.txt":       []byte("skip me"),
		"folder/":          nil,
		"three.webp":       []byte("webp-bytes"),
		"nested/notes.doc": []byte("skip me too"),
	})

	added, err := s.ExtractArchive(sess, archive)
	if err != nil {
		t.Fatalf("ExtractArchive: %v", err)
	}
	if added != 3 {
		t.Fatalf("extracted %d assets, want 3", added)
	}
	if len(sess.Assets) != 3 {
		t.Fatalf("session has %d assets, want 3", len(sess.Assets))
	}

	for _, asset := range sess.Assets {
		if asset.Source != SourceArchive {
			t.Errorf("asset %s source = %s, want %s", asset.OriginalName, asset.Source, SourceArchive)
		}
		if asset.SizeBytes == 0 {
			t.Errorf("asset %s has zero size", asset.OriginalName)
		}
		if _, err := os.Stat(asset.StoredPath); err != nil {
			t.Errorf("asset %s missing on disk: %v", asset.OriginalName, err)
		}
	}

	// The archive itself must be gone after extraction
	if _, err := os.Stat(archive); !os.IsNotExist(err) {
		t.Error("archive file should be removed after extraction")
	}
}

func TestExtractArchiveEmpty(t *testing.T) {
	s := newTestStore(t)
	sess, _ := s.CreateSession()

	archive := writeTestArchive(t, s.SessionDir(sess.ID), map[string][]byte{
		"only.txt": []byte("no images here"),
	})

	added, err := s.ExtractArchive(sess, archive)
	if err != nil {
		t.Fatalf("ExtractArchive: %v", err)
	}
	if added != 0 {
		t.Errorf("extracted %d assets from imageless archive, want 0", added)
	}
}

func TestExtractArchiveCorrupt(t *testing.T) {
	s := newTestStore(t)
	sess, _ := s.CreateSession()

	path := filepath.Join(s.SessionDir(sess.ID), "broken.zip")
	if err := os.WriteFile(path, []byte("this is not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := s.ExtractArchive(sess, path); err == nil {
		t.Error("expected error for corrupt archive")
	}
}
