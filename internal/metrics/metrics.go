package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// The webhook always answers 200, so ingestion failures are only visible
// here and in the logs.
var (
	IngestOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_ingest_outcomes_total",
			Help: "Ingested webhook payloads by outcome",
		},
		[]string{"outcome"}, // "accepted", "malformed", "unbound", "store_failed"
	)

	WebhookDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "telemetry_webhook_duration_seconds",
			Help:    "Webhook ingestion duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	LastKnownCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "telemetry_last_known_cache_entries",
			Help: "Current number of entries in the last-known position cache",
		},
	)

	CommandDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notehub_command_dispatches_total",
			Help: "Outbound device commands by outcome",
		},
		[]string{"outcome"}, // "sent", "rejected", "failed"
	)

	EventPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracking_event_publish_errors_total",
			Help: "Failed attempts to publish tracking events to the broker",
		},
	)
)
