package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Billing metrics
	DocumentsCreatedTotal  *prometheus.CounterVec
	StatusTransitionsTotal *prometheus.CounterVec
	ReceiptsTotal          *prometheus.CounterVec
	OperationDuration      *prometheus.HistogramVec
	RetriesTotal           *prometheus.CounterVec
	SweepUpdatesTotal      *prometheus.CounterVec
}

// New creates and registers all metrics on registry.
func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voyage_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "voyage_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		DocumentsCreatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voyage_documents_created_total",
				Help: "Billing documents created, by kind",
			},
			[]string{"kind"},
		),
		StatusTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voyage_status_transitions_total",
				Help: "Document status changes, by kind and target status",
			},
			[]string{"kind", "status"},
		),
		ReceiptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voyage_receipts_total",
				Help: "Receipt save attempts, by result",
			},
			[]string{"result"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "voyage_operation_duration_seconds",
				Help:    "Duration of billing operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		RetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voyage_persistence_retries_total",
				Help: "Persistence operations retried after a failure",
			},
			[]string{"operation"},
		),
		SweepUpdatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voyage_sweep_updates_total",
				Help: "Documents updated by scheduled sweeps",
			},
			[]string{"sweep"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DocumentsCreatedTotal,
		m.StatusTransitionsTotal,
		m.ReceiptsTotal,
		m.OperationDuration,
		m.RetriesTotal,
		m.SweepUpdatesTotal,
	)
	return m
}

// The recording helpers below are safe on a nil *Metrics.

func (m *Metrics) DocumentCreated(kind string) {
	if m != nil {
		m.DocumentsCreatedTotal.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) StatusChanged(kind, status string) {
	if m != nil {
		m.StatusTransitionsTotal.WithLabelValues(kind, status).Inc()
	}
}

func (m *Metrics) Receipt(result string) {
	if m != nil {
		m.ReceiptsTotal.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) Retried(operation string) {
	if m != nil {
		m.RetriesTotal.WithLabelValues(operation).Inc()
	}
}

func (m *Metrics) SweepUpdated(sweep string, n int64) {
	if m != nil && n > 0 {
		m.SweepUpdatesTotal.WithLabelValues(sweep).Add(float64(n))
	}
}

// ObserveOperation records how long operation took since start.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	if m != nil {
		m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
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

// HTTPMiddleware instruments HTTP requests. Requests are labelled with the matched
// ServeMux pattern to keep label cardinality bounded.
func HTTPMiddleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
