package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// UpstreamMetrics tracks outbound calls to the model provider and the
// encyclopedia.
type UpstreamMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewUpstreamMetrics creates and registers the upstream collectors.
func NewUpstreamMetrics(registry prometheus.Registerer) (*UpstreamMetrics, error) {
	m := &UpstreamMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wildlife_upstream_requests_total",
				Help: "Outbound requests by service and status code",
			},
			[]string{"service", "status_code"}, // status_code is "error" when no response arrived
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wildlife_upstream_request_duration_seconds",
				Help:    "Time until upstream response headers arrive",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 11), // 50ms to ~50s
			},
			[]string{"service"},
		),
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Observe records one round trip to service.
func (m *UpstreamMetrics) Observe(service string, status int, err error, elapsed time.Duration) {
	code := strconv.Itoa(status)
	if err != nil || status == 0 {
		code = "error"
	}
	m.requestsTotal.WithLabelValues(service, code).Inc()
	m.requestDuration.WithLabelValues(service).Observe(elapsed.Seconds())
}

// Describe implements the prometheus.Collector interface.
func (m *UpstreamMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.requestsTotal.Describe(ch)
	m.requestDuration.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *UpstreamMetrics) Collect(ch chan<- prometheus.Metric) {
	m.requestsTotal.Collect(ch)
	m.requestDuration.Collect(ch)
}
