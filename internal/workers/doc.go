// Package workers calculates how many concurrent workers the processing
// pipeline should use, respecting container CPU limits and allowing a
// manual override via the PIPELINE_WORKERS environment variable.
package workers
