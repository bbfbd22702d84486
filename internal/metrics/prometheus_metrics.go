package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

// PrometheusMetrics provides metrics collection for the Paket service
type PrometheusMetrics struct {
	// Save pipeline metrics
	savesTotal    *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	fetchErrors   *prometheus.CounterVec

	// Title cache metrics
	titleCacheTotal *prometheus.CounterVec

	// Feed metrics
	feedRequests   *prometheus.CounterVec
	articlesStored prometheus.Gauge

	// HTTP metrics
	httpRequests   *prometheus.CounterVec
	activeRequests prometheus.Gauge

	logger      *zap.Logger
	httpHandler func(*fasthttp.RequestCtx)
}

// NewPrometheusMetrics creates a new Prometheus-based metrics collector
func NewPrometheusMetrics(namespace string, logger *zap.Logger) *PrometheusMetrics {
	return NewPrometheusMetricsWithRegistry(namespace, prometheus.DefaultRegisterer, logger)
}

// NewPrometheusMetricsWithRegistry creates a new Prometheus-based metrics collector with custom registry
func NewPrometheusMetricsWithRegistry(namespace string, registerer prometheus.Registerer, logger *zap.Logger) *PrometheusMetrics {
	pm := &PrometheusMetrics{
		logger: logger,
	}

	pm.savesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "saves_total",
		Help:      "Total number of save requests",
	}, []string{"outcome"}) // outcome: success, fetch_error, store_error, invalid_request, rate_limited

	pm.fetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "fetch_duration_seconds",
		Help:      "Time spent fetching and classifying documents",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
	})

	pm.fetchErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_errors_total",
		Help:      "Total fetch failures by error kind",
	}, []string{"kind"})

	pm.titleCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "title_cache_total",
		Help:      "Title cache lookups by result",
	}, []string{"result"}) // result: hit, miss, error

	pm.feedRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_requests_total",
		Help:      "Total feed renders by output format",
	}, []string{"format"}) // format: rss, html

	pm.articlesStored = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "articles_stored",
		Help:      "Number of articles currently stored",
	})

	pm.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by endpoint and status",
	}, []string{"endpoint", "status"})

	pm.activeRequests = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_requests",
		Help:      "Number of requests currently being handled",
	})

	registerer.MustRegister(
		pm.savesTotal,
		pm.fetchDuration,
		pm.fetchErrors,
		pm.titleCacheTotal,
		pm.feedRequests,
		pm.articlesStored,
		pm.httpRequests,
		pm.activeRequests,
	)

	gatherer, ok := registerer.(prometheus.Gatherer)
	if !ok {
		gatherer = prometheus.DefaultGatherer
	}
	pm.httpHandler = fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	logger.Info("Prometheus metrics initialized")
	return pm
}

// RecordSave records a save request outcome
func (pm *PrometheusMetrics) RecordSave(outcome string) {
	pm.savesTotal.WithLabelValues(outcome).Inc()
}

// RecordFetchDuration records fetch duration
func (pm *PrometheusMetrics) RecordFetchDuration(seconds float64) {
	pm.fetchDuration.Observe(seconds)
}

// RecordFetchError records a fetch failure by error kind
func (pm *PrometheusMetrics) RecordFetchError(kind string) {
	pm.fetchErrors.WithLabelValues(kind).Inc()
}

// RecordTitleCache records a title cache lookup result
func (pm *PrometheusMetrics) RecordTitleCache(result string) {
	pm.titleCacheTotal.WithLabelValues(result).Inc()
}

// RecordFeedRequest records a feed render by format
func (pm *PrometheusMetrics) RecordFeedRequest(format string) {
	pm.feedRequests.WithLabelValues(format).Inc()
}

// UpdateArticlesStored updates the stored-article gauge
func (pm *PrometheusMetrics) UpdateArticlesStored(count float64) {
	pm.articlesStored.Set(count)
}

// RecordHTTPRequest records an HTTP request
func (pm *PrometheusMetrics) RecordHTTPRequest(endpoint, status string) {
	pm.httpRequests.WithLabelValues(endpoint, status).Inc()
}

// IncActiveRequests increments the in-flight request gauge
func (pm *PrometheusMetrics) IncActiveRequests() {
	pm.activeRequests.Inc()
}

// DecActiveRequests decrements the in-flight request gauge
func (pm *PrometheusMetrics) DecActiveRequests() {
	pm.activeRequests.Dec()
}

// ServeHTTP serves Prometheus metrics via HTTP
func (pm *PrometheusMetrics) ServeHTTP(ctx *fasthttp.RequestCtx) {
	pm.httpHandler(ctx)
}
