package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the service's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cloth",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cloth",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path"},
	)

	flagOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cloth",
			Subsystem: "flags",
			Name:      "operations_total",
			Help:      "Flag service operations by outcome.",
		},
		[]string{"operation", "result"},
	)

	authVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cloth",
			Subsystem: "auth",
			Name:      "verifications_total",
			Help:      "Token verifications by outcome.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		flagOperations,
		authVerifications,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordFlagOperation counts a flag service call. result is "ok" or an error code.
func RecordFlagOperation(operation, result string) {
	flagOperations.WithLabelValues(operation, result).Inc()
}

// RecordAuthVerification counts a token verification outcome.
func RecordAuthVerification(result string) {
	authVerifications.WithLabelValues(result).Inc()
}
