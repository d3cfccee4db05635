package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	PollCycles          prometheus.Counter
	MessagesClassified  prometheus.Counter
	MessagesSkipped     prometheus.Counter
	DraftsCreated       prometheus.Counter
	CleanerQueries      prometheus.Counter
	CleanerResponses    prometheus.Counter
	ReservationFailures prometheus.Counter
	CacheHits           prometheus.Counter
	CacheMisses         prometheus.Counter
	CycleDuration       prometheus.Histogram
	PendingDrafts       prometheus.Gauge
}

// NewMetrics creates new Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		PollCycles: promauto.NewCounter(prometheus.CounterOpts{
			Name: "checkin_concierge_poll_cycles_total",
			Help: "Total number of completed polling cycles",
		}),
		MessagesClassified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "checkin_concierge_messages_classified_total",
			Help: "Total number of guest messages sent to the intent classifier",
		}),
		MessagesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "checkin_concierge_messages_skipped_total",
			Help: "Total number of messages skipped as already seen or already processed",
		}),
		DraftsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "checkin_concierge_drafts_created_total",
			Help: "Total number of drafts queued for owner review",
		}),
		CleanerQueries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "checkin_concierge_cleaner_queries_total",
			Help: "Total number of queries sent to the cleaning staff",
		}),
		CleanerResponses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "checkin_concierge_cleaner_responses_total",
			Help: "Total number of cleaner responses processed",
		}),
		ReservationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "checkin_concierge_reservation_failures_total",
			Help: "Total number of reservations skipped due to errors in a cycle",
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "checkin_concierge_reservation_cache_hits_total",
			Help: "Total number of reservation metadata cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "checkin_concierge_reservation_cache_misses_total",
			Help: "Total number of reservation metadata cache misses",
		}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "checkin_concierge_cycle_duration_seconds",
			Help:    "Time spent per polling cycle",
			Buckets: prometheus.DefBuckets,
		}),
		PendingDrafts: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "checkin_concierge_pending_drafts",
			Help: "Number of drafts currently awaiting owner review",
		}),
	}
}
