package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/logger"
)

// HTTPMetrics contains Prometheus metrics for API requests
type HTTPMetrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge
}

// NewHTTPMetrics creates and registers new HTTP metrics
func NewHTTPMetrics(registry prometheus.Registerer) (*HTTPMetrics, error) {
	m := &HTTPMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wildlife_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"}, // route is the registered path, e.g. /v1/species/id/:id
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wildlife_http_request_duration_seconds",
				Help:    "Time taken for HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		requestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wildlife_http_requests_in_flight",
				Help: "Requests currently being served",
			},
		),
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// RequestStarted increments the in-flight gauge.
func (m *HTTPMetrics) RequestStarted() {
	m.requestsInFlight.Inc()
}

// RequestFinished records a completed request and decrements the in-flight gauge.
func (m *HTTPMetrics) RequestFinished(method, route string, status int, seconds float64) {
	m.requestsInFlight.Dec()
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(seconds)
}

// InFlight returns the current number of in-flight requests
func (m *HTTPMetrics) InFlight() float64 {
	metric := &dto.Metric{}
	if err := m.requestsInFlight.Write(metric); err != nil {
		log.Warn("failed to read in-flight gauge", logger.Error(err))
		return 0
	}
	if metric.Gauge != nil && metric.Gauge.Value != nil {
		return *metric.Gauge.Value
	}
	return 0
}

// Describe implements the prometheus.Collector interface.
func (m *HTTPMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.requestsTotal.Describe(ch)
	m.requestDuration.Describe(ch)
	ch <- m.requestsInFlight.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *HTTPMetrics) Collect(ch chan<- prometheus.Metric) {
	m.requestsTotal.Collect(ch)
	m.requestDuration.Collect(ch)
	ch <- m.requestsInFlight
}
