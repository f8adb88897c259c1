package capability

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"imageforge/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
)

// DefaultExecTimeout bounds every external tool invocation. A tool that
// exceeds it counts as a stage failure for the affected asset only.
const DefaultExecTimeout = 30 * time.Second

// Registry records which external capabilities were found at startup.
type Registry struct {
	// Vips reports whether libvips was initialized. It backs special-format
	// conversion (SVG, HEIF, camera raw) and the PNG re-encode pass.
	Vips bool
	// BackgroundRemoval reports whether the rembg CLI is on PATH.
	BackgroundRemoval bool
	// Ghostscript reports whether gs is on PATH (EPS/AI conversion).
	Ghostscript bool
	// Oxipng reports whether the oxipng lossless PNG optimizer is on PATH.
	Oxipng bool

	// ExecTimeout bounds external tool invocations.
	ExecTimeout time.Duration

	rembgPath string
	gsPath    string
	oxipng    string
}

var (
	vipsOnce sync.Once
	vipsOK   bool
)

// initVips starts libvips with conservative memory settings. Safe to call
// more than once; only the first call does anything.
func initVips() bool {
	vipsOnce.Do(func() {
		defer func() {
			// vips.Startup panics if the shared library is unusable.
			if r := recover(); r != nil {
				logging.Warn("libvips unavailable: %v", r)
				vipsOK = false
			}
		}()

		// Route vips chatter through our leveled logger, errors only
		// unless debug logging is on.
		vipsLevel := vips.LogLevelError
		if logging.IsDebugEnabled() {
			vipsLevel = vips.LogLevelInfo
		}
		vips.LoggingSettings(func(domain string, level vips.LogLevel, msg string) {
			switch level {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			default:
				logging.Debug("[%s] %s", domain, msg)
			}
		}, vipsLevel)

		vips.Startup(&vips.Config{
			ConcurrencyLevel: 1,
			MaxCacheMem:      50 * 1024 * 1024,
			MaxCacheSize:     100,
		})
		vipsOK = true
		logging.Info("libvips initialized (version: %s)", vips.Version)
	})
	return vipsOK
}

// ShutdownVips releases libvips resources at process shutdown.
func ShutdownVips() {
	if vipsOK {
		vips.Shutdown()
		vipsOK = false
	}
}

// Probe resolves every external capability once. Never fails; missing
// tools are logged and recorded as unavailable.
func Probe() *Registry {
	r := &Registry{ExecTimeout: DefaultExecTimeout}

	r.Vips = initVips()

	if path, err := exec.LookPath("rembg"); err == nil {
		r.BackgroundRemoval = true
		r.rembgPath = path
	}
	if path, err := exec.LookPath("gs"); err == nil {
		r.Ghostscript = true
		r.gsPath = path
	}
	if path, err := exec.LookPath("oxipng"); err == nil {
		r.Oxipng = true
		r.oxipng = path
	}

	logging.Info("capabilities: vips=%v rembg=%v ghostscript=%v oxipng=%v",
		r.Vips, r.BackgroundRemoval, r.Ghostscript, r.Oxipng)

	return r
}

// run executes an external tool with the registry's timeout.
func (r *Registry) run(name string, args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.ExecTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%s timed out after %v", name, r.ExecTimeout)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("%s failed: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return nil
}

// RemoveBackground invokes the rembg CLI on inPath, writing outPath.
func (r *Registry) RemoveBackground(inPath, outPath string) error {
	if !r.BackgroundRemoval {
		return fmt.Errorf("rembg not available")
	}
	return r.run(r.rembgPath, "i", inPath, outPath)
}

// GhostscriptToPNG rasterizes a PostScript-family file (EPS, AI) to a PNG
// with an alpha channel.
func (r *Registry) GhostscriptToPNG(inPath, outPath string) error {
	if !r.Ghostscript {
		return fmt.Errorf("ghostscript not available")
	}
	return r.run(r.gsPath,
		"-dSAFER", "-dBATCH", "-dNOPAUSE",
		"-sDEVICE=pngalpha", "-r300",
		"-sOutputFile="+outPath, inPath)
}

// OptimizePNG runs oxipng in place on path.
func (r *Registry) OptimizePNG(path string) error {
	if !r.Oxipng {
		return fmt.Errorf("oxipng not available")
	}
	return r.run(r.oxipng, "-o", "4", "--strip", "safe", path)
}
