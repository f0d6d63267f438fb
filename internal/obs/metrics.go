package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP-level metrics shared by the whole API surface.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Workflow outcome counters. Notification and email failures never abort the
// owning request by themselves, so the counters are the operator's only
// visibility into those paths.
var (
	ReceiptsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "receipts_created_total",
		Help: "Receipts persisted through the creation workflow.",
	})

	NotificationsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "receipt_notifications_sent_total",
		Help: "Push notifications dispatched for created receipts.",
	})

	NotificationsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "receipt_notifications_failed_total",
		Help: "Push notification dispatch failures.",
	})

	EmailsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Outbound emails by template.",
		},
		[]string{"template"},
	)

	EmailsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_failed_total",
			Help: "Outbound email failures by template.",
		},
		[]string{"template"},
	)

	OnboardingCompensations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "onboarding_compensations_total",
		Help: "Organization onboarding sagas that rolled back.",
	})
)

// Init registers all metrics with the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		ReceiptsCreated, NotificationsSent, NotificationsFailed,
		EmailsSent, EmailsFailed, OnboardingCompensations,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument wraps a handler with RPS/latency/in-flight measurements.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter captures the response code written by the wrapped handler.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
