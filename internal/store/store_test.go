package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestCreateSaveLoad(t *testing.T) {
	s := newTestStore(t)

	sess, err := s.CreateSession()
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if sess.Status != StatusUploaded {
		t.Errorf("new session status = %s, want %s", sess.Status, StatusUploaded)
	}

	if _, err := s.AddDirectAsset(sess, "photo.jpg", strings.NewReader("fake-jpeg-bytes")); err != nil {
		t.Fatalf("AddDirectAsset: %v", err)
	}
	if err := s.Save(sess); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := s.Load(sess.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Assets) != 1 {
		t.Fatalf("loaded %d assets, want 1", len(loaded.Assets))
	}
	asset := loaded.Assets[0]
	if asset.OriginalName != "photo.jpg" {
		t.Errorf("original name = %q, want photo.jpg", asset.OriginalName)
	}
	if asset.Source != SourceDirect {
		t.Errorf("source = %s, want %s", asset.Source, SourceDirect)
	}
	if asset.SizeBytes != int64(len("fake-jpeg-bytes")) {
		t.Errorf("size = %d, want %d", asset.SizeBytes, len("fake-jpeg-bytes"))
	}
	if _, err := os.Stat(asset.StoredPath); err != nil {
		t.Errorf("stored file missing: %v", err)
	}
	// Stored name must be collision-free but keep the display name visible
	if !strings.HasSuffix(asset.StoredName, "_photo.jpg") {
		t.Errorf("stored name %q does not preserve original name", asset.StoredName)
	}
}

func TestLoadErrors(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Load("no-such-session"); !errors.Is(err, ErrInvalidSessionID) {
		t.Errorf("malformed id: got %v, want ErrInvalidSessionID", err)
	}
	if _, err := s.Load("0d4cb497-5b87-4d0b-9d83-1d5b29880bbf"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("unknown id: got %v, want ErrSessionNotFound", err)
	}

	sess, _ := s.CreateSession()
	if err := os.WriteFile(filepath.Join(s.SessionDir(sess.ID), "metadata.json"), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(sess.ID); !errors.Is(err, ErrMetadataUnreadable) {
		t.Errorf("corrupt metadata: got %v, want ErrMetadataUnreadable", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	sess, _ := s.CreateSession()
	if err := s.Save(sess); err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(sess.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if s.Exists(sess.ID) {
		t.Error("session still exists after delete")
	}
	// Second delete and deleting a never-existing id are both no-ops
	if err := s.Delete(sess.ID); err != nil {
		t.Errorf("second delete: %v", err)
	}
	if err := s.Delete("0d4cb497-5b87-4d0b-9d83-1d5b29880bbf"); err != nil {
		t.Errorf("delete of unknown session: %v", err)
	}
}

func TestCompleteProcessingReplacesResults(t *testing.T) {
	s := newTestStore(t)

	sess, _ := s.CreateSession()
	if _, err := s.AddDirectAsset(sess, "a.png", strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}

	first := []ProcessingResult{{AssetID: sess.Assets[0].ID, Success: true, Message: "run one"}}
	if err := s.CompleteProcessing(sess, ProcessingOptions{RemoveBackground: true}, first); err != nil {
		t.Fatal(err)
	}

	second := []ProcessingResult{{AssetID: sess.Assets[0].ID, Success: false, Message: "run two"}}
	if err := s.CompleteProcessing(sess, ProcessingOptions{}, second); err != nil {
		t.Fatal(err)
	}

	loaded, err := s.Load(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Status != StatusProcessed {
		t.Errorf("status = %s, want %s", loaded.Status, StatusProcessed)
	}
	if len(loaded.Results) != 1 || loaded.Results[0].Message != "run two" {
		t.Errorf("results not replaced by second run: %+v", loaded.Results)
	}
	if loaded.Options == nil || loaded.Options.RemoveBackground {
		t.Errorf("options not replaced by second run: %+v", loaded.Options)
	}
}

func TestListAndDeleteAll(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		sess, _ := s.CreateSession()
		if err := s.Save(sess); err != nil {
			t.Fatal(err)
		}
	}
	// A stray non-session directory must not be listed or deleted
	if err := os.MkdirAll(filepath.Join(s.Root(), "lost+found"), 0o755); err != nil {
		t.Fatal(err)
	}

	ids, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 3 {
		t.Fatalf("List returned %d ids, want 3", len(ids))
	}

	deleted, err := s.DeleteAll()
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 3 {
		t.Errorf("DeleteAll removed %d, want 3", deleted)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "lost+found")); err != nil {
		t.Error("DeleteAll must not touch non-session directories")
	}
}

func TestCreatedAtFallsBackToDirTime(t *testing.T) {
	s := newTestStore(t)

	sess, _ := s.CreateSession()
	// No metadata saved at all: CreatedAt must still answer from the
	// directory so the sweep can reclaim half-ingested sessions.
	if _, err := s.CreatedAt(sess.ID); err != nil {
		t.Errorf("CreatedAt without metadata: %v", err)
	}
}

func TestOptionsNormalize(t *testing.T) {
	tests := []struct {
		name       string
		in         ProcessingOptions
		wantResize bool
		wantOpt    bool
	}{
		{"valid resize", ProcessingOptions{Resize: true, TargetWidth: 100, TargetHeight: 100}, true, false},
		{"zero width coerced", ProcessingOptions{Resize: true, TargetWidth: 0, TargetHeight: 100}, false, true},
		{"negative height coerced", ProcessingOptions{Resize: true, TargetWidth: 100, TargetHeight: -1}, false, true},
		{"no stages means optimize only", ProcessingOptions{}, false, true},
		{"background removal is not optimize only", ProcessingOptions{RemoveBackground: true}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			if got.Resize != tt.wantResize {
				t.Errorf("Resize = %v, want %v", got.Resize, tt.wantResize)
			}
			if got.OptimizeOnly() != tt.wantOpt {
				t.Errorf("OptimizeOnly = %v, want %v", got.OptimizeOnly(), tt.wantOpt)
			}
		})
	}
}

func TestFormatClassification(t *testing.T) {
	tests := []struct {
		name    string
		image   bool
		allowed bool
	}{
		{"photo.JPG", true, true},
		{"scan.tiff", true, true},
		{"vector.svg", true, true},
		{"shot.heic", true, true},
		{"bundle.zip", false, true},
		{"notes.txt", false, false},
		{"noextension", false, false},
	}

	for _, tt := range tests {
		if got := IsImageFile(tt.name); got != tt.image {
			t.Errorf("IsImageFile(%q) = %v, want %v", tt.name, got, tt.image)
		}
		if got := IsAllowedUpload(tt.name); got != tt.allowed {
			t.Errorf("IsAllowedUpload(%q) = %v, want %v", tt.name, got, tt.allowed)
		}
	}
}

func TestSuccessfulResults(t *testing.T) {
	sess := &Session{Results: []ProcessingResult{
		{AssetID: "a", Success: true},
		{AssetID: "b", Success: false},
		{AssetID: "c", Success: true},
	}}

	got := sess.SuccessfulResults()
	if len(got) != 2 || got[0].AssetID != "a" || got[1].AssetID != "c" {
		t.Errorf("SuccessfulResults = %+v, want assets a and c in order", got)
	}
}
