// Package telemetry wires Prometheus metrics and OpenTelemetry tracing for
// the service, grounded on Togather-Foundation-server's
// internal/metrics/{metrics,http}.go for metric naming/registration
// conventions and internal/telemetry/tracing.go for the tracer-provider
// setup (stdout exporter only — SPEC_FULL.md does not require a collector).
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "agrocheck"

// Registry is the process-wide Prometheus registry, served by GET /metrics.
var Registry = prometheus.NewRegistry()

var (
	// ChecksTotal counts completed POST /check requests by verdict.
	ChecksTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Total number of compliance checks performed, by verdict",
		},
		[]string{"verdict"},
	)

	// CheckDuration records end-to-end check latency.
	CheckDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "check_duration_seconds",
			Help:      "End-to-end POST /check latency in seconds",
			Buckets:   []float64{.025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"input_type"},
	)

	// CheckerExecutionsTotal counts individual checker runs by status.
	CheckerExecutionsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checker_executions_total",
			Help:      "Total checker executions, by checker name and result status",
		},
		[]string{"checker", "status"},
	)

	// CheckerDuration records per-checker execution latency.
	CheckerDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checker_duration_seconds",
			Help:      "Checker execution latency in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"checker"},
	)

	// CacheHitsTotal/CacheMissesTotal track the per-checker cache layer.
	CacheHitsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total cache hits in the checker result cache",
		},
		[]string{"checker"},
	)
	CacheMissesTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total cache misses in the checker result cache",
		},
		[]string{"checker"},
	)

	// GeocodeRequestsTotal tracks outbound geocoding calls by provider/outcome.
	GeocodeRequestsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Total geocoding provider requests",
		},
		[]string{"provider", "outcome"}, // outcome: success|error|fallback
	)

	// AuditEnqueueFailuresTotal counts failed async audit-row enqueues.
	AuditEnqueueFailuresTotal = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_enqueue_failures_total",
			Help:      "Total failures enqueuing an audit row for async persistence",
		},
	)

	// HealthStatus mirrors the monitoring collector's Status (0=down,
	// 1=degraded, 2=ok) for dashboarding.
	HealthStatus = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "health_status",
			Help:      "Overall health status (0=down, 1=degraded, 2=ok)",
		},
	)
)

// HTTP metrics, grounded on Togather's internal/metrics/http.go.
var (
	HTTPRequestsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	HTTPRequestsInFlight = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		},
	)
)

// Init registers Go/process collectors. Call once at startup.
func Init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMiddleware records request count, latency, and in-flight gauge for
// every request. routePattern should be the matched chi route (e.g.
// "/check"), not the raw path, to keep label cardinality bounded.
func HTTPMiddleware(routePattern func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			HTTPRequestsInFlight.Inc()
			defer HTTPRequestsInFlight.Dec()

			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			route := r.URL.Path
			if routePattern != nil {
				if p := routePattern(r); p != "" {
					route = p
				}
			}

			HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
			HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}
