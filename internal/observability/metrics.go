package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (dashboard down) or spikes.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95 growth on view routes.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight.
	HTTPRequestsInFlight prometheus.Gauge

	// Merged file loads by result (success, missing, error). Watch for: missing = merge job not run.
	DatasetLoadsTotal *prometheus.CounterVec

	// Loads answered from the in-process memo table.
	DatasetCacheHitsTotal prometheus.Counter

	// View renders by view (scatter, line) and state (empty, populated).
	ViewRendersTotal *prometheus.CounterVec

	// Rendered-view cache hits by view.
	ViewCacheHitsTotal *prometheus.CounterVec

	// Rendered-view cache failures by op (get, set). Renders still succeed.
	ViewCacheErrorsTotal *prometheus.CounterVec

	// Rate limit denials.
	RateLimitDeniedTotal prometheus.Counter

	CacheWarmingTotal           prometheus.Counter
	CacheWarmingErrorsTotal     prometheus.Counter
	CacheWarmingDurationSeconds prometheus.Histogram
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	DatasetLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datasetLoadsTotal",
			Help: "Merged dataset file loads by result",
		},
		[]string{"result"},
	)
	DatasetCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "datasetCacheHitsTotal",
			Help: "Dataset loads served from the in-process memo table",
		},
	)
	ViewRendersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewRendersTotal",
			Help: "Dashboard view renders by view and resulting state",
		},
		[]string{"view", "state"},
	)
	ViewCacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewCacheHitsTotal",
			Help: "Rendered views served from cache",
		},
		[]string{"view"},
	)
	ViewCacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewCacheErrorsTotal",
			Help: "Rendered-view cache errors by operation",
		},
		[]string{"op"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	CacheWarmingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingTotal",
			Help: "Total number of view cache warming runs",
		},
	)
	CacheWarmingErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingErrorsTotal",
			Help: "View cache warming runs with at least one failure",
		},
	)
	CacheWarmingDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cacheWarmingDurationSeconds",
			Help:    "Duration of view cache warming runs",
			Buckets: []float64{.01, .05, .1, .5, 1, 5},
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		DatasetLoadsTotal, DatasetCacheHitsTotal,
		ViewRendersTotal, ViewCacheHitsTotal, ViewCacheErrorsTotal,
		RateLimitDeniedTotal,
		CacheWarmingTotal, CacheWarmingErrorsTotal, CacheWarmingDurationSeconds,
	)
}

// RecordViewRender counts a render of view ending in state.
func RecordViewRender(view, state string) {
	ViewRendersTotal.WithLabelValues(view, state).Inc()
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
