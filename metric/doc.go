// Package metric exposes pipeline and provenance metrics with Prometheus.
//
// Metrics are registered on a private registry created by NewRegistry so
// that several pipelines in one process (and tests) never collide on the
// default registry. Every recording method is safe on a nil *Metrics,
// which disables collection.
package metric
