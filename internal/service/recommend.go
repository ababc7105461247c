package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/knoguchi/recommender/internal/catalog"
	"github.com/knoguchi/recommender/internal/metrics"
	"github.com/knoguchi/recommender/internal/reranker"
	"github.com/knoguchi/recommender/internal/retriever"
)

// MaxLimit is the largest number of recommendations returned per request.
const MaxLimit = 10

// Searcher retrieves candidates for a query. It is satisfied by
// *retriever.Retriever.
type Searcher interface {
	Search(ctx context.Context, query string, n int) catalog.RankedList
}

// RecommendService runs the retrieve, filter, rerank, truncate pipeline.
type RecommendService struct {
	searcher Searcher
	reranker reranker.Reranker
	depth    int
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// RecommendServiceOption is a functional option for configuring RecommendService.
type RecommendServiceOption func(*RecommendService)

// WithDepth sets how many neighbors are retrieved before filtering.
func WithDepth(n int) RecommendServiceOption {
	return func(s *RecommendService) {
		if n > 0 {
			s.depth = n
		}
	}
}

// WithMetrics records latency and result size.
func WithMetrics(m *metrics.Metrics) RecommendServiceOption {
	return func(s *RecommendService) {
		s.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RecommendServiceOption {
	return func(s *RecommendService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewRecommendService creates a new RecommendService. A nil reranker keeps
// retrieval order.
func NewRecommendService(searcher Searcher, rr reranker.Reranker, opts ...RecommendServiceOption) *RecommendService {
	if rr == nil {
		rr = reranker.Passthrough{}
	}
	s := &RecommendService{
		searcher: searcher,
		reranker: rr,
		depth:    retriever.DefaultDepth,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Recommend returns at most ClampLimit(limit) assessments for query. An
// empty typeFilter or catalog.AllTypes disables filtering. It never fails;
// an empty list means no recommendation.
func (s *RecommendService) Recommend(ctx context.Context, query, typeFilter string, limit int) catalog.RankedList {
	start := time.Now()
	limit = ClampLimit(limit)

	result := s.recommend(ctx, strings.TrimSpace(query), strings.TrimSpace(typeFilter), limit)

	s.metrics.ObserveRequest(time.Since(start), len(result))
	s.logger.Info("recommendation served",
		"query_len", len(query),
		"type_filter", typeFilter,
		"limit", limit,
		"results", len(result),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result
}

func (s *RecommendService) recommend(ctx context.Context, query, typeFilter string, limit int) catalog.RankedList {
	if query == "" {
		return catalog.RankedList{}
	}

	candidates := s.searcher.Search(ctx, query, s.depth)
	if len(candidates) == 0 {
		return catalog.RankedList{}
	}

	filtered := candidates.FilterType(typeFilter)
	if len(filtered) == 0 {
		s.logger.Info("type filter removed all candidates", "type_filter", typeFilter, "retrieved", len(candidates))
		return catalog.RankedList{}
	}

	ranked := s.reranker.Rerank(ctx, query, filtered, MaxLimit)
	return ranked.Head(limit)
}

// ClampLimit maps a requested limit into [1, MaxLimit]. Zero means MaxLimit.
func ClampLimit(limit int) int {
	switch {
	case limit == 0, limit > MaxLimit:
		return MaxLimit
	case limit < 1:
		return 1
	default:
		return limit
	}
}
