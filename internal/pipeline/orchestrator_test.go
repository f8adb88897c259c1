package pipeline

import (
	"os"
	"testing"

	"imageforge/internal/store"
)

func TestRunProcessesAssetsInOrder(t *testing.T) {
	s, sess := newPipelineSession(t)
	makeAsset(t, s, sess, "first.png", func(t *testing.T, dir, name string) string {
		return writePNG(t, dir, name, 30, 30, false)
	})
	missing := makeAsset(t, s, sess, "gone.png", func(t *testing.T, dir, name string) string {
		return writePNG(t, dir, name, 30, 30, false)
	})
	makeAsset(t, s, sess, "third.jpg", func(t *testing.T, dir, name string) string {
		return writeJPEG(t, dir, name, 30, 30)
	})
	if err := s.Save(sess); err != nil {
		t.Fatal(err)
	}
	// Simulate an asset whose backing file vanished before processing
	if err := os.Remove(missing.StoredPath); err != nil {
		t.Fatal(err)
	}

	o := NewOrchestrator(s, New(testCaps()))
	stats, err := o.Run(sess, store.ProcessingOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.Total != 3 || stats.Successful != 2 || stats.Failed != 1 {
		t.Errorf("stats = %+v, want 3 total, 2 successful, 1 failed", stats)
	}

	loaded, err := s.Load(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Status != store.StatusProcessed {
		t.Errorf("status = %s, want %s", loaded.Status, store.StatusProcessed)
	}
	if len(loaded.Results) != len(loaded.Assets) {
		t.Fatalf("results %d != assets %d", len(loaded.Results), len(loaded.Assets))
	}
	// Result order must match asset order even with a worker pool
	for i, r := range loaded.Results {
		if r.AssetID != loaded.Assets[i].ID {
			t.Errorf("result %d is for asset %s, want %s", i, r.AssetID, loaded.Assets[i].ID)
		}
	}
	if loaded.Results[1].Success || loaded.Results[1].Message != "file not found" {
		t.Errorf("missing asset result = %+v, want file-not-found failure", loaded.Results[1])
	}
}

func TestRunCoercesMalformedResize(t *testing.T) {
	s, sess := newPipelineSession(t)
	makeAsset(t, s, sess, "keep.png", func(t *testing.T, dir, name string) string {
		return writePNG(t, dir, name, 44, 33, false)
	})
	if err := s.Save(sess); err != nil {
		t.Fatal(err)
	}

	o := NewOrchestrator(s, New(testCaps()))
	opts := store.ProcessingOptions{Resize: true, TargetWidth: 0, TargetHeight: 100}
	if _, err := o.Run(sess, opts); err != nil {
		t.Fatalf("Run: %v", err)
	}

	loaded, _ := s.Load(sess.ID)
	if loaded.Options.Resize {
		t.Error("malformed resize must be coerced to false, not an error")
	}
	if !loaded.Results[0].Success {
		t.Fatalf("result failed: %s", loaded.Results[0].Message)
	}
	// Output keeps the original dimensions
	assertDimensions(t, loaded.Results[0].OutputPath, 44, 33)
}

func TestRunRerunReplacesResults(t *testing.T) {
	s, sess := newPipelineSession(t)
	makeAsset(t, s, sess, "twice.png", func(t *testing.T, dir, name string) string {
		return writePNG(t, dir, name, 20, 20, false)
	})
	if err := s.Save(sess); err != nil {
		t.Fatal(err)
	}

	o := NewOrchestrator(s, New(testCaps()))
	if _, err := o.Run(sess, store.ProcessingOptions{}); err != nil {
		t.Fatal(err)
	}
	sess, _ = s.Load(sess.ID)
	if _, err := o.Run(sess, store.ProcessingOptions{Resize: true, TargetWidth: 10, TargetHeight: 10}); err != nil {
		t.Fatal(err)
	}

	loaded, _ := s.Load(sess.ID)
	if len(loaded.Results) != 1 {
		t.Fatalf("re-run must replace results, got %d entries", len(loaded.Results))
	}
	if !loaded.Options.Resize {
		t.Error("options must reflect the latest run")
	}
	assertDimensions(t, loaded.Results[0].OutputPath, 10, 10)
}

func TestOutputNamesAreUnique(t *testing.T) {
	assets := []store.ImageAsset{
		{OriginalName: "a.png"},
		{OriginalName: "a.jpg"},
		{OriginalName: "b.png"},
	}

	names := outputNames(assets)
	seen := map[string]bool{}
	for _, n := range names {
		if seen[n] {
			t.Errorf("duplicate output name %q", n)
		}
		seen[n] = true
	}
	if names[0] != "a_processed.png" {
		t.Errorf("first name = %q, want a_processed.png", names[0])
	}
	if names[2] != "b_processed.png" {
		t.Errorf("third name = %q, want b_processed.png", names[2])
	}
}
