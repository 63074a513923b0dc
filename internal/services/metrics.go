package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Cache metrics
	CacheHits      *prometheus.CounterVec
	CacheMisses    *prometheus.CounterVec
	CacheEvictions *prometheus.CounterVec

	// Admission metrics
	AdmissionRejections *prometheus.CounterVec

	// Ingestion metrics
	IngestedChunks *prometheus.CounterVec

	// Chat metrics
	ChatRequests       prometheus.Counter
	ChatRequestLatency prometheus.Histogram
	ChatErrors         *prometheus.CounterVec
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	metrics := &Metrics{
		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "support_cache_hits_total",
			Help: "Total number of cache hits by cache",
		}, []string{"cache"}), // cache: "embedding" or "response"

		CacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "support_cache_misses_total",
			Help: "Total number of cache misses by cache",
		}, []string{"cache"}),

		CacheEvictions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "support_cache_evictions_total",
			Help: "Total number of cache evictions by cache and reason",
		}, []string{"cache", "reason"}),

		AdmissionRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "support_admission_rejections_total",
			Help: "Total number of requests rejected by rate-limit tier",
		}, []string{"tier"}),

		IngestedChunks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "support_ingested_chunks_total",
			Help: "Knowledge chunks processed by outcome",
		}, []string{"outcome"}), // inserted, duplicate, failed

		ChatRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "support_chat_requests_total",
			Help: "Total number of chat requests processed",
		}),

		// up to 2 minutes for LLM responses
		ChatRequestLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "support_chat_request_duration_seconds",
			Help:    "Chat request latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),

		ChatErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "support_chat_errors_total",
			Help: "Total number of chat errors by type",
		}, []string{"error_type"}),
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordCacheHit records a cache hit
func (m *Metrics) RecordCacheHit(cache string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss records a cache miss
func (m *Metrics) RecordCacheMiss(cache string) {
	if m == nil {
		return
	}
	m.CacheMisses.WithLabelValues(cache).Inc()
}

// RecordCacheEviction records an evicted cache entry
func (m *Metrics) RecordCacheEviction(cache, reason string) {
	if m == nil {
		return
	}
	m.CacheEvictions.WithLabelValues(cache, reason).Inc()
}

// RecordAdmissionRejection records a request rejected by a rate-limit tier
func (m *Metrics) RecordAdmissionRejection(tier string) {
	if m == nil {
		return
	}
	m.AdmissionRejections.WithLabelValues(tier).Inc()
}

// RecordIngestion records ingestion outcomes
func (m *Metrics) RecordIngestion(outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.IngestedChunks.WithLabelValues(outcome).Add(float64(n))
}

// RecordChatRequest records a chat request
func (m *Metrics) RecordChatRequest() {
	if m == nil {
		return
	}
	m.ChatRequests.Inc()
}

// RecordChatLatency records chat request latency
func (m *Metrics) RecordChatLatency(seconds float64) {
	if m == nil {
		return
	}
	m.ChatRequestLatency.Observe(seconds)
}

// RecordChatError records a chat error
func (m *Metrics) RecordChatError(errorType string) {
	if m == nil {
		return
	}
	m.ChatErrors.WithLabelValues(errorType).Inc()
}
