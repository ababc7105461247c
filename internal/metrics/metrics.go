// Package metrics holds the Prometheus collectors for the recommender.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rerank fallback reasons.
const (
	FallbackUnconfigured = "unconfigured"
	FallbackLLMError     = "llm_error"
	FallbackParse        = "parse"
	FallbackNoValid      = "no_valid_indices"
	FallbackTopUp        = "top_up"
)

// Metrics groups the recommender collectors. A nil *Metrics is valid and
// records nothing.
//
// Metrics:
//   - recommender_retrieval_failures_total{reason}
//   - recommender_retrieval_cache_hits_total
//   - recommender_rerank_fallbacks_total{reason}
//   - recommender_request_duration_seconds
//   - recommender_result_size
type Metrics struct {
	RetrievalFailures *prometheus.CounterVec
	CacheHits         prometheus.Counter
	RerankFallbacks   *prometheus.CounterVec
	RequestDuration   prometheus.Histogram
	ResultSize        prometheus.Histogram
}

// New creates the collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer to expose them on /metrics.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RetrievalFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recommender_retrieval_failures_total",
				Help: "Retrieval calls that degraded to an empty result",
			},
			[]string{"reason"}, // "index_error", "timeout", "malformed_hit"
		),
		CacheHits: f.NewCounter(
			prometheus.CounterOpts{
				Name: "recommender_retrieval_cache_hits_total",
				Help: "Retrieval calls served from the result cache",
			},
		),
		RerankFallbacks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recommender_rerank_fallbacks_total",
				Help: "Rerank calls that fell back to retrieval order",
			},
			[]string{"reason"},
		),
		RequestDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recommender_request_duration_seconds",
				Help:    "End-to-end recommendation latency",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
			},
		),
		ResultSize: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recommender_result_size",
				Help:    "Number of assessments returned per request",
				Buckets: prometheus.LinearBuckets(0, 1, 11),
			},
		),
	}
}

// RetrievalFailed counts a degraded retrieval.
func (m *Metrics) RetrievalFailed(reason string) {
	if m == nil {
		return
	}
	m.RetrievalFailures.WithLabelValues(reason).Inc()
}

// CacheHit counts a cached retrieval.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

// RerankFellBack counts a rerank fallback.
func (m *Metrics) RerankFellBack(reason string) {
	if m == nil {
		return
	}
	m.RerankFallbacks.WithLabelValues(reason).Inc()
}

// ObserveRequest records one completed recommendation.
func (m *Metrics) ObserveRequest(elapsed time.Duration, size int) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(elapsed.Seconds())
	m.ResultSize.Observe(float64(size))
}
