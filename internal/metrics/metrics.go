package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Fetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "multiselect",
		Name:      "fetches_total",
		Help:      "Range fetches served, by outcome",
	}, []string{"outcome"})

	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "multiselect",
		Name:      "fetch_duration_seconds",
		Help:      "Time spent in count and fetch calls for one range request",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
	})

	Batches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "multiselect",
		Name:      "batches_total",
		Help:      "Update batches pushed to remote views",
	})

	RowsSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "multiselect",
		Name:      "rows_sent_total",
		Help:      "Rows carried by set operations",
	})

	UnknownKeys = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "multiselect",
		Name:      "unknown_keys_total",
		Help:      "Keys from remote views that did not resolve and were ignored",
	})

	StaleConfirms = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "multiselect",
		Name:      "stale_confirms_total",
		Help:      "Update confirmations that were not authoritative",
	})

	Sessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "multiselect",
		Name:      "sessions",
		Help:      "Open remote view sessions",
	})
)
