package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	TrackedEventsTotal *prometheus.CounterVec

	Subscribers             prometheus.Gauge
	SubscribersDroppedTotal *prometheus.CounterVec
	BroadcastTicksTotal     prometheus.Counter
	BroadcastDuration       prometheus.Histogram

	CleanupRunsTotal   prometheus.Counter
	ScopesEvictedTotal prometheus.Counter
	ArchiveEventsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		TrackedEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_analytics_tracked_events_total",
				Help: "Total number of analytics events applied to the metric store",
			},
			[]string{"kind"},
		),
		Subscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "chat_analytics_subscribers",
				Help: "Number of registered live subscribers",
			},
		),
		SubscribersDroppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_analytics_subscribers_dropped_total",
				Help: "Subscribers unregistered after a failed delivery",
			},
			[]string{"reason"},
		),
		BroadcastTicksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chat_analytics_broadcast_ticks_total",
				Help: "Broadcast passes that delivered a snapshot",
			},
		),
		BroadcastDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chat_analytics_broadcast_duration_seconds",
				Help:    "Time spent snapshotting and delivering one broadcast pass",
				Buckets: prometheus.DefBuckets,
			},
		),
		CleanupRunsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chat_analytics_cleanup_runs_total",
				Help: "Completed retention cleanup passes",
			},
		),
		ScopesEvictedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chat_analytics_scopes_evicted_total",
				Help: "Scopes evicted by retention cleanup",
			},
		),
		ArchiveEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_analytics_archive_events_total",
				Help: "Events handed to the archive, by result",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		m.TrackedEventsTotal,
		m.Subscribers,
		m.SubscribersDroppedTotal,
		m.BroadcastTicksTotal,
		m.BroadcastDuration,
		m.CleanupRunsTotal,
		m.ScopesEvictedTotal,
		m.ArchiveEventsTotal,
	)

	return m
}

// NewNopMetrics returns collectors registered on a throwaway registry.
func NewNopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
