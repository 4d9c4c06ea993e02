package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	NewsSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "news_submissions_total",
			Help: "Total number of accepted news submissions by detection outcome.",
		},
		[]string{"outcome"},
	)

	VotesRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "votes_recorded_total",
			Help: "Total number of community votes by upsert outcome.",
		},
		[]string{"outcome"},
	)

	RegistryEntriesAdded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_entries_added_total",
			Help: "Total number of entries added to the fake news registry.",
		},
	)

	NewsDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "news_deleted_total",
			Help: "Total number of news items removed by moderators.",
		},
	)

	ClassifierDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "classifier_request_duration_seconds",
			Help:    "Duration of detection service calls.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)

	// Refreshed by the scheduled stats job.
	StoreItems = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "news_store_items",
			Help: "Current number of stored rows by kind.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(NewsSubmissions, VotesRecorded, RegistryEntriesAdded, NewsDeleted, ClassifierDuration, StoreItems)
}
