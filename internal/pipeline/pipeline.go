package pipeline

import (
	"os"
	"path/filepath"
	"time"

	"imageforge/internal/capability"
	"imageforge/internal/logging"
	"imageforge/internal/metrics"
	"imageforge/internal/store"

	"github.com/google/uuid"
)

// state is the per-asset position in the transformation chain.
type state int

const (
	stateStart state = iota
	stateNormalized
	stateBackgroundHandled
	stateResized
	stateOptimized
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateStart:
		return "start"
	case stateNormalized:
		return "normalized"
	case stateBackgroundHandled:
		return "backgroundHandled"
	case stateResized:
		return "resized"
	case stateOptimized:
		return "optimized"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Target reductions the optimizer aims for, depending on which stages ran.
const (
	optimizeOnlyReduction = 8.0
	postRemovalReduction  = 15.0
)

// Pipeline drives one asset through normalize -> background -> resize ->
// optimize according to the per-run options.
type Pipeline struct {
	normalizer *Normalizer
	remover    *Remover
	optimizer  *Optimizer
}

// New builds a Pipeline backed by the given capability registry.
func New(caps *capability.Registry) *Pipeline {
	return &Pipeline{
		normalizer: NewNormalizer(caps),
		remover:    NewRemover(caps),
		optimizer:  NewOptimizer(caps),
	}
}

// Process runs the full chain for one asset and returns its result. A
// stage failure is terminal for this asset only. Temporary files created
// by intermediate stages are removed before returning; only the final
// output (on success) survives.
func (p *Pipeline) Process(asset store.ImageAsset, sessionDir, processedName string, opts store.ProcessingOptions) store.ProcessingResult {
	result := store.ProcessingResult{
		AssetID:       asset.ID,
		OriginalName:  asset.OriginalName,
		ProcessedName: processedName,
	}

	originalSize, err := fileSize(asset.StoredPath)
	if err != nil {
		result.Message = "file not found"
		metrics.AssetsProcessed.WithLabelValues("failure").Inc()
		return result
	}
	result.OriginalSizeBytes = originalSize

	finalPath := filepath.Join(sessionDir, processedName)
	current := asset.StoredPath
	st := stateStart

	var temps []string
	defer func() {
		for _, tmp := range temps {
			if tmp == finalPath {
				continue
			}
			if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
				logging.Warn("failed to remove temp file %s: %v", tmp, err)
			}
		}
	}()

	fail := func(stage, message string) store.ProcessingResult {
		logging.Debug("asset %s failed in state %s at stage %s: %s", asset.ID, st, stage, message)
		result.Message = message
		metrics.StageFailures.WithLabelValues(stage).Inc()
		metrics.AssetsProcessed.WithLabelValues("failure").Inc()
		st = stateFailed
		return result
	}

	// Start -> Normalized. Nothing can proceed without a decodable bitmap.
	start := time.Now()
	normalized, note, err := p.normalizer.Normalize(current)
	metrics.StageDuration.WithLabelValues("normalize").Observe(time.Since(start).Seconds())
	if err != nil {
		return fail("normalize", err.Error())
	}
	if normalized != current {
		temps = append(temps, normalized)
		result.Operations = append(result.Operations, note)
	}
	current = normalized
	st = stateNormalized

	origW, origH, err := OrientedDimensions(current)
	if err != nil {
		return fail("normalize", "error reading image: "+err.Error())
	}

	// The resolved target dimensions every later stage must preserve.
	targetW, targetH := origW, origH
	if opts.Resize {
		targetW, targetH = opts.TargetWidth, opts.TargetHeight
	}

	targetReduction := optimizeOnlyReduction

	// Normalized -> BackgroundHandled (skipped unless requested).
	if opts.RemoveBackground {
		out := filepath.Join(sessionDir, "temp_"+uuid.NewString()+".png")
		start = time.Now()
		note, err := p.remover.Remove(current, out, origW, origH)
		metrics.StageDuration.WithLabelValues("background").Observe(time.Since(start).Seconds())
		if err != nil {
			return fail("background", err.Error())
		}
		temps = append(temps, out)
		result.Operations = append(result.Operations, note)
		current = out
		st = stateBackgroundHandled
		targetReduction = postRemovalReduction
	}

	// BackgroundHandled -> Resized (skipped unless requested).
	if opts.Resize {
		out := filepath.Join(sessionDir, "temp_"+uuid.NewString()+".png")
		start = time.Now()
		note, err := Resize(current, out, targetW, targetH)
		metrics.StageDuration.WithLabelValues("resize").Observe(time.Since(start).Seconds())
		if err != nil {
			return fail("resize", err.Error())
		}
		temps = append(temps, out)
		if note != "" {
			result.Operations = append(result.Operations, note)
		}
		current = out
		st = stateResized
	}

	// Materialize the final output, then Resized -> Optimized. The size
	// guarantee is enforced here no matter which earlier stages ran.
	if current == asset.StoredPath {
		img, err := openBitmap(current)
		if err != nil {
			return fail("optimize", "error reading image: "+err.Error())
		}
		if err := savePNG(img, finalPath); err != nil {
			return fail("optimize", err.Error())
		}
	} else {
		if err := os.Rename(current, finalPath); err != nil {
			return fail("optimize", "failed to place output: "+err.Error())
		}
	}

	start = time.Now()
	note, err = p.optimizer.Optimize(finalPath, targetW, targetH, targetReduction)
	metrics.StageDuration.WithLabelValues("optimize").Observe(time.Since(start).Seconds())
	if err != nil {
		os.Remove(finalPath)
		return fail("optimize", err.Error())
	}
	result.Operations = append(result.Operations, note)
	st = stateOptimized

	finalSize, err := fileSize(finalPath)
	if err != nil || finalSize == 0 {
		os.Remove(finalPath)
		return fail("optimize", "output file missing or empty")
	}

	reduction := (float64(originalSize-finalSize) / float64(originalSize)) * 100
	if reduction < 0 {
		reduction = 0
	}

	result.Success = true
	result.Message = "processed successfully"
	result.OutputPath = finalPath
	result.FinalSizeBytes = &finalSize
	result.SizeReductionPercent = &reduction
	result.PreviewURL = PreviewDataURL(finalPath)

	metrics.AssetsProcessed.WithLabelValues("success").Inc()
	metrics.SizeReductionPercent.Observe(reduction)
	logging.Debug("asset %s done: %dKB -> %dKB", asset.ID, originalSize/1024, finalSize/1024)

	return result
}
