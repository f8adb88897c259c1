// Package capability probes the external image tooling the pipeline can
// delegate to (libvips, rembg, Ghostscript, oxipng) and records what is
// available.
//
// The registry is resolved once at process startup and passed to the
// components that need it, so availability is an explicit dependency
// instead of a scattered set of globals. Missing tools are never fatal:
// each pipeline stage has a degraded path it falls back to.
package capability
