// Package metrics holds the Prometheus instrumentation for codec runs and
// the HTTP service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Directions and statuses used as label values.
const (
	DirectionDecode = "decode"
	DirectionEncode = "encode"

	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics holds all Prometheus metrics for cefcodec.
type Metrics struct {
	eventsTotal   *prometheus.CounterVec
	warningsTotal *prometheus.CounterVec
	lineBytes     *prometheus.HistogramVec

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge
}

// New creates the metrics and registers them with reg. A nil reg registers
// with the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		eventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cefcodec_events_total",
				Help: "Total number of events decoded or encoded",
			},
			[]string{"direction", "status"},
		),
		warningsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cefcodec_warnings_total",
				Help: "Total number of recovered codec problems by kind",
			},
			[]string{"kind"},
		),
		lineBytes: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cefcodec_line_bytes",
				Help:    "Size of CEF lines read or written",
				Buckets: prometheus.ExponentialBuckets(64, 2, 12),
			},
			[]string{"direction"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cefcodec_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cefcodec_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		httpRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "cefcodec_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),
	}
}

// RecordEvent records one decoded or encoded event and the size of its line.
func (m *Metrics) RecordEvent(direction string, success bool, lineBytes int) {
	status := StatusSuccess
	if !success {
		status = StatusError
	}
	m.eventsTotal.WithLabelValues(direction, status).Inc()
	if lineBytes > 0 {
		m.lineBytes.WithLabelValues(direction).Observe(float64(lineBytes))
	}
}

// RecordWarning counts a codec warning.
func (m *Metrics) RecordWarning(kind string) {
	m.warningsTotal.WithLabelValues(kind).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		m.httpRequestsInFlight.Inc()
		defer m.httpRequestsInFlight.Dec()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(rw, r)

		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
