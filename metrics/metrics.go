// Package metrics holds the Prometheus collectors for the API, MongoDB,
// the recipe cache, vector search and the admin import.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flavornet_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flavornet_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flavornet_api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flavornet_api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// MongoDB
	DBCommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flavornet_mongo_command_duration_seconds",
			Help:    "Duration of MongoDB commands in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	DBCommandErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flavornet_mongo_command_errors_total",
			Help: "Total number of failed MongoDB commands",
		},
		[]string{"command"},
	)

	// Cache
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flavornet_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"kind"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flavornet_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"kind"},
	)

	// Vector search
	VectorSearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flavornet_vector_search_duration_seconds",
			Help:    "Duration of embedding plus Qdrant search in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	SearchFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flavornet_search_fallbacks_total",
			Help: "Searches answered by the Mongo text index instead of the vector store",
		},
		[]string{"reason"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flavornet_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Import
	ImportedRecipes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flavornet_imported_recipes_total",
			Help: "Recipes processed by the importer, by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks in-flight API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordDBCommand records a finished MongoDB command.
func RecordDBCommand(command string, duration time.Duration, err error) {
	DBCommandDuration.WithLabelValues(command).Observe(duration.Seconds())
	if err != nil {
		DBCommandErrors.WithLabelValues(command).Inc()
	}
}

func RecordCache(kind string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(kind).Inc()
	} else {
		CacheMisses.WithLabelValues(kind).Inc()
	}
}

// RecordBreakerState maps a breaker state name to the gauge value.
func RecordBreakerState(name, state string) {
	v := 0.0
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	CircuitBreakerState.WithLabelValues(name).Set(v)
}
