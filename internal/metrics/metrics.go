package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/streaky/streakd/internal/domain"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	ItemsProcessed      *prometheus.CounterVec
	ItemLatency         prometheus.Histogram
	NotificationsSent   *prometheus.CounterVec
	NotificationsFailed *prometheus.CounterVec
	BatchesStarted      prometheus.Counter
	StaleRequeued       prometheus.Counter
	StaleFailed         prometheus.Counter
	RowsCleaned         prometheus.Counter
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ItemsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_items_processed_total",
			Help: "Queue items processed, by final outcome.",
		}, []string{"outcome"}),

		ItemLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "queue_item_processing_seconds",
			Help:    "End-to-end processing latency for one queue item.",
			Buckets: prometheus.DefBuckets,
		}),

		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Successfully delivered reminder notifications.",
		}, []string{"channel"}),

		NotificationsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Failed reminder delivery attempts.",
		}, []string{"channel"}),

		BatchesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batches_started_total",
			Help: "Reminder cycles that initialized a batch.",
		}),

		StaleRequeued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stale_items_requeued_total",
			Help: "Timed-out processing items moved back to pending by the reaper.",
		}),

		StaleFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stale_items_failed_total",
			Help: "Timed-out processing items failed after exhausting requeues.",
		}),

		RowsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queue_rows_cleaned_total",
			Help: "Queue rows deleted by retention cleanup.",
		}),
	}

	reg.MustRegister(
		m.ItemsProcessed,
		m.ItemLatency,
		m.NotificationsSent,
		m.NotificationsFailed,
		m.BatchesStarted,
		m.StaleRequeued,
		m.StaleFailed,
		m.RowsCleaned,
	)

	return m
}

// WorkerHooks returns the metric callbacks injected into the per-item
// worker. Centralises the prometheus observation calls so the worker
// package stays metrics-agnostic.
func (m *Metrics) WorkerHooks() (
	onItem func(outcome string, latency time.Duration),
	onDelivery func(ch domain.Channel, success bool),
) {
	onItem = func(outcome string, latency time.Duration) {
		m.ItemsProcessed.WithLabelValues(outcome).Inc()
		m.ItemLatency.Observe(latency.Seconds())
	}
	onDelivery = func(ch domain.Channel, success bool) {
		if success {
			m.NotificationsSent.WithLabelValues(string(ch)).Inc()
		} else {
			m.NotificationsFailed.WithLabelValues(string(ch)).Inc()
		}
	}
	return
}
