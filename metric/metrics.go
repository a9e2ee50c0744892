package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "medkit"

// Step statuses
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Provenance record results
const (
	ProvAdded     = "added"
	ProvDuplicate = "duplicate"
	ProvIgnored   = "ignored"
)

// Metrics holds the pipeline and provenance collectors
type Metrics struct {
	StepRuns            *prometheus.CounterVec
	StepDuration        *prometheus.HistogramVec
	AnnotationsProduced *prometheus.CounterVec
	ProvRecords         *prometheus.CounterVec
	DocumentsProcessed  *prometheus.CounterVec
}

// NewMetrics creates the collectors without registering them
func NewMetrics() *Metrics {
	return &Metrics{
		StepRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "step_runs_total",
				Help:      "Total number of pipeline step executions",
			},
			[]string{"pipeline", "operation", "status"},
		),

		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Pipeline step execution duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"pipeline", "operation"},
		),

		AnnotationsProduced: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "annotations_produced_total",
				Help:      "Total number of annotations returned by operations",
			},
			[]string{"operation"},
		),

		ProvRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "prov_records_total",
				Help:      "Provenance records by result (added, duplicate, ignored)",
			},
			[]string{"result"},
		),

		DocumentsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_processed_total",
				Help:      "Total number of documents run through a document pipeline",
			},
			[]string{"pipeline", "status"},
		),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.StepRuns,
		m.StepDuration,
		m.AnnotationsProduced,
		m.ProvRecords,
		m.DocumentsProcessed,
	}
}

// ObserveStep records one step execution
func (m *Metrics) ObserveStep(pipeline, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	m.StepRuns.WithLabelValues(pipeline, operation, status).Inc()
	m.StepDuration.WithLabelValues(pipeline, operation).Observe(d.Seconds())
}

// AddAnnotations counts annotations produced by operation
func (m *Metrics) AddAnnotations(operation string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.AnnotationsProduced.WithLabelValues(operation).Add(float64(n))
}

// ObserveProvRecord counts a provenance record by result
func (m *Metrics) ObserveProvRecord(result string) {
	if m == nil {
		return
	}
	m.ProvRecords.WithLabelValues(result).Inc()
}

// ObserveDocument counts a document run through pipeline
func (m *Metrics) ObserveDocument(pipeline string, err error) {
	if m == nil {
		return
	}
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	m.DocumentsProcessed.WithLabelValues(pipeline, status).Inc()
}
