package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "areca_gateway"

var (
	// RequestsTotal counts completed requests by matched route.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration observes the request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// RateLimited counts requests rejected with ERR_RATE_LIMITED.
	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		},
	)

	// RateStoreErrors counts rate-limit store failures that admitted a request.
	RateStoreErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_store_errors_total",
			Help:      "Rate limit store operations that failed.",
		},
		[]string{"op"},
	)

	// Uploads counts upload outcomes.
	Uploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Upload requests by outcome.",
		},
		[]string{"outcome"},
	)

	// ProxyResponses counts frontend proxy outcomes.
	ProxyResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_responses_total",
			Help:      "Frontend proxy responses by outcome.",
		},
		[]string{"outcome"},
	)

	// TelemetryReports counts error reports by outcome.
	TelemetryReports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_reports_total",
			Help:      "Error reports by outcome.",
		},
		[]string{"outcome"},
	)

	// BreakerState tracks circuit breaker state (0 closed, 1 half-open, 2 open).
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
		},
		[]string{"name"},
	)

	// StoreHealthy tracks backing store health (1 healthy, 0 not).
	StoreHealthy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_healthy",
			Help:      "Whether a backing store is healthy (1) or not (0).",
		},
		[]string{"store", "kind"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		RateLimited,
		RateStoreErrors,
		Uploads,
		ProxyResponses,
		TelemetryReports,
		BreakerState,
		StoreHealthy,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRequest records metrics for a completed HTTP request.
func RecordRequest(method, route string, status int, duration time.Duration) {
	RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// SetStoreHealth records a store probe result.
func SetStoreHealth(store, kind string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1
	}
	StoreHealthy.WithLabelValues(store, kind).Set(v)
}
