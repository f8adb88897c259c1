// Package packager turns a processed session into a downloadable
// deliverable: the single output file when exactly one asset succeeded,
// or an in-memory zip archive of every successful output otherwise.
//
// Deliverable bytes are fully materialized in memory before the caller
// gets them, which is what allows a deferred session delete to be
// scheduled safely right after packaging.
package packager
