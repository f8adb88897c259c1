package capability

import (
	"strings"
	"testing"
	"time"
)

func TestUnavailableToolsReturnErrors(t *testing.T) {
	r := &Registry{ExecTimeout: time.Second}

	if err := r.RemoveBackground("in.png", "out.png"); err == nil {
		t.Error("RemoveBackground should fail when rembg is unavailable")
	}
	if err := r.GhostscriptToPNG("in.eps", "out.png"); err == nil {
		t.Error("GhostscriptToPNG should fail when gs is unavailable")
	}
	if err := r.OptimizePNG("in.png"); err == nil {
		t.Error("OptimizePNG should fail when oxipng is unavailable")
	}
}

func TestRunTimeout(t *testing.T) {
	r := &Registry{ExecTimeout: 50 * time.Millisecond}

	err := r.run("sleep", "5")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout error, got: %v", err)
	}
}

func TestRunReportsStderr(t *testing.T) {
	r := &Registry{ExecTimeout: 5 * time.Second}

	err := r.run("sh", "-c", "echo boom >&2; exit 1")
	if err == nil {
		t.Fatal("expected error from failing command")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected stderr in error, got: %v", err)
	}
}

func TestProbeIsIdempotent(t *testing.T) {
	first := Probe()
	second := Probe()

	if first.Vips != second.Vips {
		t.Error("vips availability should be stable across probes")
	}
	if first.BackgroundRemoval != second.BackgroundRemoval {
		t.Error("rembg availability should be stable across probes")
	}
}
