package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics tracks the identification pipeline and the name validator.
type PipelineMetrics struct {
	operationsTotal *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	errorsTotal     *prometheus.CounterVec
}

// NewPipelineMetrics creates and registers the pipeline collectors.
func NewPipelineMetrics(registry prometheus.Registerer) (*PipelineMetrics, error) {
	m := &PipelineMetrics{
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wildlife_pipeline_operations_total",
				Help: "Pipeline operations by stage and outcome",
			},
			[]string{"operation", "status"}, // status: success, sentinel, degraded, error
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wildlife_pipeline_stage_duration_seconds",
				Help:    "Time spent in each pipeline stage",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
			},
			[]string{"operation"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wildlife_pipeline_errors_total",
				Help: "Pipeline errors by stage and category",
			},
			[]string{"operation", "error_type"},
		),
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *PipelineMetrics) RecordOperation(operation, status string) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

func (m *PipelineMetrics) RecordDuration(operation string, seconds float64) {
	m.stageDuration.WithLabelValues(operation).Observe(seconds)
}

func (m *PipelineMetrics) RecordError(operation, errorType string) {
	m.errorsTotal.WithLabelValues(operation, errorType).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.operationsTotal.Describe(ch)
	m.stageDuration.Describe(ch)
	m.errorsTotal.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.operationsTotal.Collect(ch)
	m.stageDuration.Collect(ch)
	m.errorsTotal.Collect(ch)
}
