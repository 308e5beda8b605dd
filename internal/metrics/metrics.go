package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeSuccess          = "success"
	OutcomeGenerationFailed = "generation_failed"
	OutcomeRetrievalFailed  = "retrieval_failed"

	StageQuery    = "query"
	StageGenerate = "generate"
)

var (
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resource_recommender_requests_total",
			Help: "Total number of recommendation requests by outcome",
		},
		[]string{"outcome"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resource_recommender_stage_duration_seconds",
			Help:    "Duration of external calls made while serving a recommendation",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	RecordsFetched = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "resource_recommender_records_fetched",
			Help:    "Number of store records returned per request",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	InFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "resource_recommender_requests_in_flight",
			Help: "Number of recommendation requests currently being served",
		},
	)
)
