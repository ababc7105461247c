// Package retriever turns a free-text query into a ranked candidate list by
// querying the vector index. It never fails: index problems degrade to an
// empty list.
package retriever

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/knoguchi/recommender/internal/catalog"
	"github.com/knoguchi/recommender/internal/metrics"
	"github.com/knoguchi/recommender/internal/vectorstore"
)

const (
	// DefaultDepth is the number of neighbors requested by the pipeline.
	DefaultDepth = 200

	// DefaultTimeout bounds a single index query.
	DefaultTimeout = 10 * time.Second
)

// Failure reasons recorded in metrics.
const (
	reasonIndexError   = "index_error"
	reasonTimeout      = "timeout"
	reasonMalformedHit = "malformed_hit"
)

// Querier is the part of vectorstore.Index the retriever needs.
type Querier interface {
	Query(ctx context.Context, text string, n int) ([]vectorstore.Hit, error)
}

// Cache holds retrieval results by query key. It is satisfied by
// *expirable.LRU[string, catalog.RankedList].
type Cache interface {
	Get(key string) (catalog.RankedList, bool)
	Add(key string, value catalog.RankedList) bool
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithTimeout bounds each index query.
func WithTimeout(d time.Duration) Option {
	return func(r *Retriever) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithCache serves repeated queries from store. Only non-empty results are
// cached.
func WithCache(c Cache) Option {
	return func(r *Retriever) {
		r.cache = c
	}
}

// WithMetrics records failures and cache hits.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Retriever) {
		r.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Retriever performs semantic search over the assessment index.
type Retriever struct {
	index   Querier
	timeout time.Duration
	cache   Cache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Retriever over index.
func New(index Querier, opts ...Option) *Retriever {
	r := &Retriever{
		index:   index,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Search returns up to n candidates ordered by ascending distance. Failures
// are logged and yield an empty list.
func (r *Retriever) Search(ctx context.Context, query string, n int) catalog.RankedList {
	query = strings.TrimSpace(query)
	if query == "" || n <= 0 {
		r.logger.Warn("retrieval skipped", "reason", "empty query or non-positive depth", "n", n)
		return catalog.RankedList{}
	}
	if r.index == nil {
		r.logger.Warn("retrieval skipped", "reason", "no index configured")
		r.metrics.RetrievalFailed(reasonIndexError)
		return catalog.RankedList{}
	}

	key := strconv.Itoa(n) + "\x00" + query
	if r.cache != nil {
		if cached, ok := r.cache.Get(key); ok {
			r.metrics.CacheHit()
			return append(catalog.RankedList(nil), cached...)
		}
	}

	qctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	hits, err := r.index.Query(qctx, query, n)
	if err != nil {
		reason := reasonIndexError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(qctx.Err(), context.DeadlineExceeded) {
			reason = reasonTimeout
		}
		r.logger.Warn("retrieval failed",
			"error", err,
			"reason", reason,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		r.metrics.RetrievalFailed(reason)
		return catalog.RankedList{}
	}

	results := r.toCandidates(hits)

	r.logger.Debug("retrieval complete",
		"hits", len(hits),
		"candidates", len(results),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if r.cache != nil && len(results) > 0 {
		r.cache.Add(key, append(catalog.RankedList(nil), results...))
	}
	return results
}

func (r *Retriever) toCandidates(hits []vectorstore.Hit) catalog.RankedList {
	list := make(catalog.RankedList, 0, len(hits))
	for _, h := range hits {
		a := catalog.FromMetadata(h.ID, h.Metadata)
		if a.Name == "" || a.URL == "" {
			r.logger.Warn("dropping malformed hit", "id", h.ID, "has_name", a.Name != "", "has_url", a.URL != "")
			r.metrics.RetrievalFailed(reasonMalformedHit)
			continue
		}
		list = append(list, catalog.Candidate{
			Assessment: a,
			Distance:   h.Distance,
			Document:   h.Document,
		})
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Distance < list[j].Distance
	})
	return list.Dedupe()
}
