// Package metrics registra los collectors Prometheus del recomendador.
// Se exponen en /metrics con promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecommendationsTotal cuenta recomendaciones servidas por tier/modo.
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recsys_recommendations_total",
			Help: "Recommendation requests served, by scoring tier or mode",
		},
		[]string{"tier"},
	)

	RecommendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recsys_recommend_duration_seconds",
			Help:    "End-to-end recommendation latency including snapshot load",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	InferenceRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recsys_inference_requests_total",
			Help: "Model server calls by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"}, // success | failure | rejected
	)

	// 0 = closed, 1 = open, 2 = half-open
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recsys_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"name"},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recsys_cache_requests_total",
			Help: "Recommendation cache lookups by result",
		},
		[]string{"result"}, // hit | miss | error
	)

	MalformedFeatures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recsys_malformed_features_total",
			Help: "Feature values replaced by their documented default",
		},
		[]string{"field"},
	)
)
