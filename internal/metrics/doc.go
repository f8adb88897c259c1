// Package metrics defines the Prometheus metrics exposed by imageforge.
//
// Metrics are registered via promauto at package initialization and
// served on the metrics port configured at startup.
package metrics
