package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the caching, sync, and fan-out paths.
type Metrics struct {
	CacheHits        *prometheus.CounterVec
	CacheMisses      *prometheus.CounterVec
	PipelineFailures *prometheus.CounterVec

	NotificationsDelivered prometheus.Counter
	NotificationsDropped   prometheus.Counter
	ActiveSubscriptions    prometheus.Gauge
}

// New creates a Metrics instance registered against reg. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cache_hits_total",
			Help: "Cache hits by key family",
		}, []string{"family"}),
		CacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cache_misses_total",
			Help: "Cache misses by key family, including backend errors degraded to misses",
		}, []string{"family"}),
		PipelineFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_pipeline_step_failures_total",
			Help: "Post-mutation pipeline step failures by step name",
		}, []string{"step"}),
		NotificationsDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "storefront_notifications_delivered_total",
			Help: "Notification events delivered to live subscribers",
		}),
		NotificationsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "storefront_notifications_dropped_total",
			Help: "Notification events dropped because a subscriber's buffer was full",
		}),
		ActiveSubscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_active_subscriptions",
			Help: "Currently registered notification subscriptions",
		}),
	}
}
