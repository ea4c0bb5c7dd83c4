// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the tokengate authentication gateway.
package observability

import "github.com/prometheus/client_golang/prometheus"

// AuthBuckets defines histogram buckets for verification latency. Local
// HMAC checks land in the sub-millisecond range; remote JWKS fetches can
// take hundreds of milliseconds on a cold cache.
var AuthBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

var (
	// AuthOutcomesTotal counts gate decisions by terminal outcome
	// (admitted, rejected, passthrough).
	AuthOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokengate_auth_outcomes_total",
			Help: "Gate decisions by terminal outcome",
		},
		[]string{"outcome"},
	)

	// AuthRejectionsTotal counts rejections by failure kind.
	AuthRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokengate_auth_rejections_total",
			Help: "Rejected requests by failure kind",
		},
		[]string{"kind"},
	)

	// VerifyDuration records token verification latency in seconds.
	VerifyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tokengate_verify_duration_seconds",
			Help:    "Token verification latency",
			Buckets: AuthBuckets,
		},
	)

	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokengate_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tokengate_request_duration_seconds",
			Help:    "Request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(
		AuthOutcomesTotal,
		AuthRejectionsTotal,
		VerifyDuration,
		RequestsTotal,
		RequestDuration,
	)
}
