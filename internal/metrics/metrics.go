// Package metrics holds the Prometheus instruments of cropadvisor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recommendation runs by outcome ("ok", "error").
	Recommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropadvisor_recommendations_total",
			Help: "Total number of recommendation runs",
		},
		[]string{"outcome"},
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cropadvisor_recommendation_duration_seconds",
			Help:    "Duration of a recommendation run in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Crops evaluated, split by whether they passed every hard constraint.
	CropsEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropadvisor_crops_evaluated_total",
			Help: "Total number of crop evaluations",
		},
		[]string{"selectable"},
	)

	CatalogCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropadvisor_catalog_cache_requests_total",
			Help: "Catalog cache lookups by result (hit, miss)",
		},
		[]string{"result"},
	)

	CatalogInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cropadvisor_catalog_invalidations_total",
			Help: "Total number of catalog cache invalidations",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropadvisor_http_requests_total",
			Help: "Total HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)
)
