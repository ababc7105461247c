// Package reranker reorders retrieved candidates for a query.
//
// The LLM-backed variant asks a model to pick the best candidates by index,
// applying a balance rule between technical and behavioral assessments.
// Every failure path degrades to retrieval order, so callers always get a
// usable list.
//
// # Trade-offs
//
//   - Latency: adds one LLM round trip per query (bounded by RerankTimeout)
//   - Quality: picks across skill types where pure vector order clusters on one
//   - Determinism: model output varies between runs; retrieval order does not
package reranker

import (
	"context"
	"log/slog"
	"time"

	"github.com/knoguchi/recommender/internal/catalog"
	"github.com/knoguchi/recommender/internal/llm"
	"github.com/knoguchi/recommender/internal/metrics"
)

const (
	// DefaultTargetSize is the number of recommendations requested by default.
	DefaultTargetSize = 10

	// MinResults is the size the LLM selection is topped up to.
	MinResults = 5
)

// Reranker reorders candidates for a query. Implementations never fail:
// the result holds at most targetSize candidates and is only shorter when
// candidates itself is shorter.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates catalog.RankedList, targetSize int) catalog.RankedList
}

// Passthrough keeps retrieval order.
type Passthrough struct {
	// Metrics, when set, counts every call as an unconfigured fallback.
	Metrics *metrics.Metrics
}

// Rerank returns the first targetSize candidates unchanged.
func (p Passthrough) Rerank(_ context.Context, _ string, candidates catalog.RankedList, targetSize int) catalog.RankedList {
	if len(candidates) > 0 {
		p.Metrics.RerankFellBack(metrics.FallbackUnconfigured)
	}
	return identity(candidates, targetSize)
}

// New returns an LLM-backed reranker, or Passthrough when client is nil.
func New(client llm.LLM, opts ...Option) Reranker {
	if client == nil {
		r := newLLMReranker(nil, opts...)
		r.logger.Warn("no LLM configured, reranking disabled (returning retrieval order)")
		return Passthrough{Metrics: r.metrics}
	}
	return newLLMReranker(client, opts...)
}

func identity(candidates catalog.RankedList, targetSize int) catalog.RankedList {
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}
	return append(catalog.RankedList{}, candidates.Head(targetSize)...)
}

var (
	_ Reranker = Passthrough{}
	_ Reranker = (*LLMReranker)(nil)
)

// Option is a functional option for configuring LLMReranker.
type Option func(*LLMReranker)

// WithModel overrides the client's default model.
func WithModel(model string) Option {
	return func(r *LLMReranker) {
		r.model = model
	}
}

// WithTimeout bounds the LLM call.
func WithTimeout(timeout time.Duration) Option {
	return func(r *LLMReranker) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithMetrics records fallbacks.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *LLMReranker) {
		r.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *LLMReranker) {
		if logger != nil {
			r.logger = logger
		}
	}
}
