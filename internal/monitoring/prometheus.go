// Package monitoring provides Prometheus metrics for the correlation engine.
//
// Usage:
//
//  1. Expose the metrics endpoint on the API router:
//     monitoring.SetupPrometheusMetrics(router)
//
//  2. Add HTTP metrics middleware:
//     router.Use(monitoring.HTTPMetricsMiddleware())
//
//  3. Record engine metrics where the work happens:
//     monitoring.RecordStoreQuery("failed_spans", time.Since(start), err == nil)
//     monitoring.RecordCacheOperation("get", "hit")
//     monitoring.RecordAnalysis("find_correlated_failures", time.Since(start), err == nil)
//
// Available metrics:
//
//   - agentlens_http_requests_total{method, endpoint, status_code}
//   - agentlens_http_request_duration_seconds{method, endpoint}
//   - agentlens_store_queries_total{query, status}
//   - agentlens_store_query_duration_seconds{query}
//   - agentlens_cache_operations_total{operation, result}
//   - agentlens_analysis_operations_total{operation, status}
//   - agentlens_analysis_duration_seconds{operation}
//   - agentlens_errors_total{type, component}
package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentlens_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentlens_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	storeQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentlens_store_queries_total",
			Help: "Total number of analytical store queries",
		},
		[]string{"query", "status"},
	)

	storeQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentlens_store_query_duration_seconds",
			Help:    "Analytical store query duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"query"},
	)

	cacheOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentlens_cache_operations_total",
			Help: "Total number of cache operations",
		},
		[]string{"operation", "result"}, // result: hit, miss, evict, error
	)

	analysisOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentlens_analysis_operations_total",
			Help: "Total number of analysis operations",
		},
		[]string{"operation", "status"},
	)

	analysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentlens_analysis_duration_seconds",
			Help:    "Analysis operation duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"operation"},
	)

	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentlens_errors_total",
			Help: "Total number of errors by type and component",
		},
		[]string{"type", "component"},
	)
)

// SetupPrometheusMetrics registers all engine metrics with the default
// registry and exposes /metrics on the router. Registration errors are
// ignored so repeated setup (tests) stays harmless.
func SetupPrometheusMetrics(router *gin.Engine) {
	_ = prometheus.Register(httpRequestsTotal)
	_ = prometheus.Register(httpRequestDuration)
	_ = prometheus.Register(storeQueriesTotal)
	_ = prometheus.Register(storeQueryDuration)
	_ = prometheus.Register(cacheOperationsTotal)
	_ = prometheus.Register(analysisOperationsTotal)
	_ = prometheus.Register(analysisDuration)
	_ = prometheus.Register(errorsTotal)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// HTTPMetricsMiddleware collects request count and latency per endpoint.
func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		c.Next()

		statusCode := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(c.Request.Method, endpoint, statusCode).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
		if c.Writer.Status() >= 400 {
			errorsTotal.WithLabelValues("http", endpoint).Inc()
		}
	}
}

// RecordStoreQuery records one analytical store query.
func RecordStoreQuery(query string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
		errorsTotal.WithLabelValues("store", query).Inc()
	}
	storeQueriesTotal.WithLabelValues(query, status).Inc()
	storeQueryDuration.WithLabelValues(query).Observe(duration.Seconds())
}

// RecordCacheOperation records one cache operation outcome.
func RecordCacheOperation(operation, result string) {
	cacheOperationsTotal.WithLabelValues(operation, result).Inc()
	if result == "error" {
		errorsTotal.WithLabelValues("cache", operation).Inc()
	}
}

// RecordAnalysis records one top-level analysis operation.
func RecordAnalysis(operation string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
		errorsTotal.WithLabelValues("analysis", operation).Inc()
	}
	analysisOperationsTotal.WithLabelValues(operation, status).Inc()
	analysisDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
