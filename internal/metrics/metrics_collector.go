package metrics

import (
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// MetricsCollector centralizes all metrics recording for the Paket service.
// A nil collector is valid and drops every recording, so callers never have
// to branch on whether metrics are enabled.
type MetricsCollector struct {
	prometheus *PrometheusMetrics
	logger     *zap.Logger
}

// NewMetricsCollector creates a new MetricsCollector instance
func NewMetricsCollector(namespace string, logger *zap.Logger) *MetricsCollector {
	return &MetricsCollector{
		prometheus: NewPrometheusMetrics(namespace, logger),
		logger:     logger,
	}
}

// RecordSaveSuccess records a completed save
func (mc *MetricsCollector) RecordSaveSuccess() {
	if mc == nil {
		return
	}
	mc.prometheus.RecordSave("success")
}

// RecordSaveFetchError records a save that failed while fetching the document
func (mc *MetricsCollector) RecordSaveFetchError() {
	if mc == nil {
		return
	}
	mc.prometheus.RecordSave("fetch_error")
}

// RecordSaveStoreError records a save that failed while persisting
func (mc *MetricsCollector) RecordSaveStoreError() {
	if mc == nil {
		return
	}
	mc.prometheus.RecordSave("store_error")
}

// RecordSaveInvalidRequest records a save rejected before fetching
func (mc *MetricsCollector) RecordSaveInvalidRequest() {
	if mc == nil {
		return
	}
	mc.prometheus.RecordSave("invalid_request")
}

// RecordSaveRateLimited records a save rejected by the outbound rate limiter
func (mc *MetricsCollector) RecordSaveRateLimited() {
	if mc == nil {
		return
	}
	mc.prometheus.RecordSave("rate_limited")
}

// RecordFetchDuration records fetch duration in seconds
func (mc *MetricsCollector) RecordFetchDuration(seconds float64) {
	if mc == nil {
		return
	}
	mc.prometheus.RecordFetchDuration(seconds)
}

// RecordFetchError records a fetch failure by error kind
func (mc *MetricsCollector) RecordFetchError(kind string) {
	if mc == nil {
		return
	}
	mc.prometheus.RecordFetchError(kind)
}

// RecordTitleCacheHit records a title served from the cache
func (mc *MetricsCollector) RecordTitleCacheHit() {
	if mc == nil {
		return
	}
	mc.prometheus.RecordTitleCache("hit")
}

// RecordTitleCacheMiss records a title cache miss
func (mc *MetricsCollector) RecordTitleCacheMiss() {
	if mc == nil {
		return
	}
	mc.prometheus.RecordTitleCache("miss")
}

// RecordTitleCacheError records a failed title cache operation
func (mc *MetricsCollector) RecordTitleCacheError() {
	if mc == nil {
		return
	}
	mc.prometheus.RecordTitleCache("error")
}

// RecordFeedRequest records a feed render by format
func (mc *MetricsCollector) RecordFeedRequest(format string) {
	if mc == nil {
		return
	}
	mc.prometheus.RecordFeedRequest(format)
}

// UpdateArticlesStored updates the stored-article gauge
func (mc *MetricsCollector) UpdateArticlesStored(count int64) {
	if mc == nil {
		return
	}
	mc.prometheus.UpdateArticlesStored(float64(count))
}

// RecordHTTPRequest records an HTTP request
func (mc *MetricsCollector) RecordHTTPRequest(endpoint, status string) {
	if mc == nil {
		return
	}
	mc.prometheus.RecordHTTPRequest(endpoint, status)
}

// IncActiveRequests increments the in-flight request gauge
func (mc *MetricsCollector) IncActiveRequests() {
	if mc == nil {
		return
	}
	mc.prometheus.IncActiveRequests()
}

// DecActiveRequests decrements the in-flight request gauge
func (mc *MetricsCollector) DecActiveRequests() {
	if mc == nil {
		return
	}
	mc.prometheus.DecActiveRequests()
}

// ServeHTTP serves Prometheus metrics via HTTP
func (mc *MetricsCollector) ServeHTTP(ctx *fasthttp.RequestCtx) {
	mc.prometheus.ServeHTTP(ctx)
}
