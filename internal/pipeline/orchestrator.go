package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"imageforge/internal/logging"
	"imageforge/internal/store"
	"imageforge/internal/workers"
)

// Orchestrator runs the pipeline over every asset in a session and
// publishes the aggregate outcome.
type Orchestrator struct {
	store    *store.Store
	pipeline *Pipeline
}

// NewOrchestrator wires a Pipeline to the session store.
func NewOrchestrator(s *store.Store, p *Pipeline) *Orchestrator {
	return &Orchestrator{store: s, pipeline: p}
}

// Stats summarizes one processing run.
type Stats struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// Run processes every asset in the session with the given options and
// atomically records status, options, and the complete result set.
//
// Assets are processed by a bounded worker pool, but results are written
// into a position-indexed slice so their order always matches the asset
// order, and every asset derives its temp paths from its own id, so no
// two assets ever share a mutable path. Per-asset failures are absorbed
// into results; the session always ends up Processed.
func (o *Orchestrator) Run(sess *store.Session, opts store.ProcessingOptions) (Stats, error) {
	opts = opts.Normalize()

	sess.Status = store.StatusProcessing
	if err := o.store.Save(sess); err != nil {
		return Stats{}, fmt.Errorf("failed to mark session processing: %w", err)
	}

	names := outputNames(sess.Assets)
	results := make([]store.ProcessingResult, len(sess.Assets))
	sessionDir := o.store.SessionDir(sess.ID)

	jobs := make(chan int)
	var wg sync.WaitGroup

	workerCount := workers.ForCPU(len(sess.Assets))
	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				asset := sess.Assets[i]
				if _, err := os.Stat(asset.StoredPath); err != nil {
					results[i] = store.ProcessingResult{
						AssetID:      asset.ID,
						OriginalName: asset.OriginalName,
						Message:      "file not found",
					}
					continue
				}
				results[i] = o.pipeline.Process(asset, sessionDir, names[i], opts)
			}
		}()
	}

	for i := range sess.Assets {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if err := o.store.CompleteProcessing(sess, opts, results); err != nil {
		return Stats{}, fmt.Errorf("failed to record processing results: %w", err)
	}

	stats := Stats{Total: len(results)}
	for _, r := range results {
		if r.Success {
			stats.Successful++
		} else {
			stats.Failed++
		}
	}
	logging.Info("session %s processed: %d successful, %d failed", sess.ID, stats.Successful, stats.Failed)

	return stats, nil
}

// outputNames assigns each asset a distinct processed-output name derived
// from its display name. Duplicate display names get a numeric suffix so
// no two assets write to the same path and archive entries stay unique.
func outputNames(assets []store.ImageAsset) []string {
	names := make([]string, len(assets))
	seen := make(map[string]int, len(assets))

	for i, asset := range assets {
		base := strings.TrimSuffix(asset.OriginalName, filepath.Ext(asset.OriginalName))
		name := base + "_processed.png"
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s_processed_%d.png", base, n)
		}
		names[i] = name
	}
	return names
}
