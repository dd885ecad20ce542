package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	InsightsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "litinsight_insights_submitted_total",
			Help: "Total number of insight jobs accepted",
		},
	)

	InsightsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "litinsight_insights_finished_total",
			Help: "Total number of insight jobs that reached a terminal state",
		},
		[]string{"status", "category"},
	)

	InsightDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "litinsight_insight_duration_seconds",
			Help:    "Wall time from job creation to terminal state",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"status"},
	)

	InsightsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "litinsight_insights_active",
			Help: "Number of insight pipelines currently running in this process",
		},
	)

	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "litinsight_provider_calls_total",
			Help: "Provider calls by candidate and outcome",
		},
		[]string{"provider", "outcome"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "litinsight_provider_call_duration_seconds",
			Help:    "Latency of individual provider calls",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
		[]string{"provider"},
	)

	EnrichmentFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "litinsight_enrichment_failures_total",
			Help: "Recovered document lookup failures",
		},
		[]string{"stage"},
	)

	RateLimitRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "litinsight_rate_limit_rejected_total",
			Help: "Summarize requests rejected by the rate limiter",
		},
	)
)
