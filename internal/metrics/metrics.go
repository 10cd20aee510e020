package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Lifecycle metrics

	OperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "account",
		Name:      "operations_total",
		Help:      "Total lifecycle operations, by operation and outcome.",
	}, []string{"operation", "outcome"})

	OperationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "account",
		Name:      "operation_duration_seconds",
		Help:      "Duration of lifecycle operations.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"operation"})

	StaleResetTokens = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "account",
		Name:      "stale_reset_tokens",
		Help:      "Users still holding a confirmation token past its TTL.",
	})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "account",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "account",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})

	HTTPRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "account",
		Name:      "http_requests_in_flight",
		Help:      "HTTP requests currently being served.",
	})
)

func Register() {
	prometheus.MustRegister(
		OperationsTotal,
		OperationDuration,
		StaleResetTokens,
		HTTPRequestDuration,
		HTTPRequestsTotal,
		HTTPRequestsInFlight,
	)
}
