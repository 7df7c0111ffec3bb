// Package telemetry registers the Prometheus collectors used across the
// HTTP transport, the Transaction Processor, and the Outbox Relay, mirroring
// the teacher's internal/api/middleware/prometheus.go wiring.
package telemetry

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "transferengine_http_requests_in_flight",
		Help: "Number of HTTP requests currently being served.",
	})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "transferengine_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transferengine_http_requests_total",
		Help: "Total HTTP requests served.",
	}, []string{"method", "route", "status"})

	ProcessorOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transferengine_processor_outcomes_total",
		Help: "Transaction Processor outcomes by kind.",
	}, []string{"outcome"}) // committed_completed, committed_failed, replayed

	ProcessorRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transferengine_processor_retries_total",
		Help: "Transaction Processor retries by reason.",
	}, []string{"reason"}) // serialization_conflict, version_conflict, idempotency_race

	OutboxPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "transferengine_outbox_published_total",
		Help: "Outbox events successfully published to the downstream bus.",
	})

	OutboxPublishErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transferengine_outbox_publish_errors_total",
		Help: "Outbox publish attempts that failed.",
	}, []string{"terminal"}) // "true" once moved to FAILED, "false" while still retryable

	OutboxRelayLagSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "transferengine_outbox_relay_lag_seconds",
		Help: "Age of the oldest PENDING outbox event observed on the last poll.",
	})

	DLQRoutedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transferengine_dlq_routed_total",
		Help: "Poison bus messages routed to the dead-letter topic, by reason.",
	}, []string{"reason"})

	DLQDroppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transferengine_dlq_dropped_total",
		Help: "DLQ routing attempts that were themselves dropped (async producer queue full or closed).",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsInFlight,
		HTTPDuration,
		HTTPRequestsTotal,
		ProcessorOutcomes,
		ProcessorRetries,
		OutboxPublished,
		OutboxPublishErrors,
		OutboxRelayLagSeconds,
		DLQRoutedTotal,
		DLQDroppedTotal,
	)
}
