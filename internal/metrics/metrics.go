package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sakelog_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration records HTTP request latency per route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sakelog_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// PostWritesTotal counts post mutations by operation.
	PostWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sakelog_post_writes_total",
		Help: "Total number of post create, update and delete operations",
	}, []string{"operation"})

	// SyncExportsTotal counts spreadsheet exports by result.
	SyncExportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sakelog_sync_exports_total",
		Help: "Total number of spreadsheet export attempts",
	}, []string{"result"})

	// CacheHitsTotal counts read-cache hits per cache name.
	CacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sakelog_cache_hits_total",
		Help: "Total number of cache hits",
	}, []string{"cache"})

	// CacheMissesTotal counts read-cache misses per cache name.
	CacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sakelog_cache_misses_total",
		Help: "Total number of cache misses",
	}, []string{"cache"})
)

// Handler exposes the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest records one completed HTTP request.
func ObserveRequest(method, route string, status int, start time.Time) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
}

// RecordPostWrite increments the mutation counter for the operation.
func RecordPostWrite(operation string) {
	PostWritesTotal.WithLabelValues(operation).Inc()
}

// RecordExport increments the export counter with "ok" or "error".
func RecordExport(result string) {
	SyncExportsTotal.WithLabelValues(result).Inc()
}
