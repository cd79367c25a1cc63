package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SubmissionsTotal counts job submissions by kind and outcome.
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lumina_submissions_total",
			Help: "Total number of job submissions",
		},
		[]string{"kind", "outcome"},
	)

	// ProviderLatency tracks provider submit calls in seconds.
	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lumina_provider_submit_duration_seconds",
			Help:    "Duration of inference provider submit calls in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"kind"},
	)

	// WebhookResults counts reconciled provider callbacks by kind and result.
	WebhookResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lumina_webhook_results_total",
			Help: "Provider callbacks by reconciliation result",
		},
		[]string{"kind", "result"},
	)

	// PackItems counts pack fan-out items by outcome.
	PackItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lumina_pack_items_total",
			Help: "Pack fan-out items by outcome",
		},
		[]string{"outcome"},
	)

	// RelayDeliveries counts job event notifications by outcome.
	RelayDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lumina_relay_deliveries_total",
			Help: "Job event notifications delivered by the relay worker",
		},
		[]string{"outcome"},
	)

	// RelayDuration tracks how long one event takes to relay, in seconds.
	RelayDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lumina_relay_duration_seconds",
			Help:    "Duration of job event relays in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
	)

	// WorkersActive tracks the number of currently active relay workers.
	WorkersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lumina_workers_active",
			Help: "Number of currently active worker goroutines",
		},
	)
)
