// Package middleware provides the HTTP middleware chain: W3C Extended
// Log Format request logging, Prometheus request metrics, and gzip
// compression for JSON responses.
//
// Session and asset ids in request paths are collapsed to placeholders
// before they reach metric labels, keeping label cardinality bounded.
package middleware
