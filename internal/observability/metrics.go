// Package observability exposes Prometheus metrics for the wildlife service.
// Sentry error reporting lives in the telemetry package.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	Pipeline *metrics.PipelineMetrics
	HTTP     *metrics.HTTPMetrics
	Upstream *metrics.UpstreamMetrics
}

// NewMetrics creates a private registry with the Go runtime and process
// collectors plus the application collectors.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	pipeline, err := metrics.NewPipelineMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	upstream, err := metrics.NewUpstreamMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		Pipeline: pipeline,
		HTTP:     httpMetrics,
		Upstream: upstream,
	}, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      promErrorLog{},
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// RegisterHandlers registers the metrics endpoint with the provided http.ServeMux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux) {
	mux.Handle("/metrics", m.Handler())
}

// promErrorLog routes promhttp errors to the module logger.
type promErrorLog struct{}

func (promErrorLog) Println(v ...any) {
	log.Error(fmt.Sprint(v...))
}
