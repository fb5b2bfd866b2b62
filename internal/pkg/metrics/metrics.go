package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the transform pipeline
type Metrics struct {
	transformsTotal   *prometheus.CounterVec
	transformDuration *prometheus.HistogramVec
	inputBytes        prometheus.Histogram
	outputBytes       prometheus.Histogram
	inFlight          prometheus.Gauge

	httpRequestsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a registry with the transform collectors and the Go
// runtime collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	sizeBuckets := prometheus.ExponentialBuckets(1024, 4, 10)

	m := &Metrics{
		transformsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "image_transforms_total",
				Help: "Total number of transform requests by outcome and error kind",
			},
			[]string{"status", "kind"},
		),

		transformDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "image_transform_duration_seconds",
				Help:    "Wall-clock time of the decode/resample/encode pipeline",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),

		inputBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "image_transform_input_bytes",
				Help:    "Size of uploaded images",
				Buckets: sizeBuckets,
			},
		),

		outputBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "image_transform_output_bytes",
				Help:    "Size of encoded WebP images",
				Buckets: sizeBuckets,
			},
		),

		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "image_transforms_in_flight",
				Help: "Number of transforms submitted to the worker pool and not yet finished",
			},
		),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "code"},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.transformsTotal,
		m.transformDuration,
		m.inputBytes,
		m.outputBytes,
		m.inFlight,
		m.httpRequestsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) TransformStarted(inputBytes int) {
	m.inFlight.Inc()
	m.inputBytes.Observe(float64(inputBytes))
}

// TransformFinished records the outcome. kind is "none" on success.
func (m *Metrics) TransformFinished(status, kind string, outputBytes int, duration time.Duration) {
	m.inFlight.Dec()
	m.transformsTotal.WithLabelValues(status, kind).Inc()
	m.transformDuration.WithLabelValues(status).Observe(duration.Seconds())
	if outputBytes > 0 {
		m.outputBytes.Observe(float64(outputBytes))
	}
}

func (m *Metrics) RecordHTTPRequest(method, route, code string) {
	m.httpRequestsTotal.WithLabelValues(method, route, code).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
