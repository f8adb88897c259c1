// Package pipeline implements the per-asset image transformation chain
// and the orchestrator that runs it over a whole session.
//
// Every asset moves through an ordered set of fallible stages:
// normalization to the canonical bitmap, optional background removal,
// optional resizing, and a final size optimization pass that never
// changes pixel dimensions. A stage failure is terminal for that asset
// only; the rest of the session is unaffected.
//
// The canonical bitmap is an alpha-capable PNG. Special input formats
// (SVG, HEIF, EPS, PSD, camera raw) are converted to it through an
// ordered chain of converters before any other stage runs.
package pipeline
