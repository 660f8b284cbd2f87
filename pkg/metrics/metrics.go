// Package metrics provides Prometheus metrics for the bowen server and client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DocumentOpsTotal tracks document reads and writes by collection and status
	DocumentOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bowen",
			Subsystem: "documents",
			Name:      "operations_total",
			Help:      "Total number of document loads and saves",
		},
		[]string{"collection", "op", "status"},
	)

	// TokensTotal tracks model tokens by direction
	TokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bowen",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Total number of model tokens consumed",
		},
		[]string{"provider", "direction"},
	)

	// ChatStreamsTotal tracks completion streams by status
	ChatStreamsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bowen",
			Subsystem: "llm",
			Name:      "streams_total",
			Help:      "Total number of chat completion streams",
		},
		[]string{"provider", "status"},
	)

	// ChatStreamDuration tracks completion stream duration in seconds
	ChatStreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bowen",
			Subsystem: "llm",
			Name:      "stream_duration_seconds",
			Help:      "Duration of chat completion streams in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"provider"},
	)

	// CircuitState tracks the upstream circuit breaker state (0 closed, 1 half-open, 2 open)
	CircuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "bowen",
			Subsystem: "llm",
			Name:      "circuit_state",
			Help:      "State of the upstream model circuit breaker",
		},
		[]string{"provider"},
	)

	// RateLimitedTotal tracks rejected chat requests
	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bowen",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Total number of chat requests rejected by the rate limiter",
		},
	)

	// ClientSaveFailuresTotal tracks failed debounced saves in the client engine
	ClientSaveFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bowen",
			Subsystem: "client",
			Name:      "save_failures_total",
			Help:      "Total number of failed document saves in the client engine",
		},
		[]string{"store"},
	)
)

// Status returns the status label for err.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
