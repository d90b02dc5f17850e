// Package metrics registers the Prometheus collectors of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var durationBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 15000}

var (
	StoreRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "districtmap_store_requests_total",
		Help: "Statistic store calls by backend and operation",
	}, []string{"backend", "op"})
	StoreFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "districtmap_store_failures_total",
		Help: "Failed statistic store calls by backend and operation",
	}, []string{"backend", "op"})
	StoreDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "districtmap_store_duration_ms",
		Help:    "Statistic store call duration in milliseconds",
		Buckets: durationBuckets,
	}, []string{"backend", "op"})
	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "districtmap_cache_hits_total",
		Help: "Row cache hits by cache backend",
	}, []string{"cache"})
	CacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "districtmap_cache_misses_total",
		Help: "Row cache misses by cache backend",
	}, []string{"cache"})
	FeaturesConvertedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "districtmap_features_converted_total",
		Help: "District features converted to geographic coordinates",
	})
	FeaturesSkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "districtmap_features_skipped_total",
		Help: "District features skipped during conversion by reason",
	}, []string{"reason"})
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "districtmap_http_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"route", "code"})
)

func init() {
	prometheus.MustRegister(StoreRequestsTotal)
	prometheus.MustRegister(StoreFailuresTotal)
	prometheus.MustRegister(StoreDurationMs)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(FeaturesConvertedTotal)
	prometheus.MustRegister(FeaturesSkippedTotal)
	prometheus.MustRegister(HTTPRequestsTotal)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
