// Package evaluation measures recall@K of a running recommend endpoint
// against a ground-truth dataset.
//
// A query is a hit when any of the first K returned URLs matches the
// expected URL under slug.Match. Records with no query or no usable
// expected slug, and records whose call fails, are excluded from the
// denominator.
package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/knoguchi/recommender/internal/slug"
)

// DefaultK is the recall cutoff.
const DefaultK = 10

// Status is the outcome of one record.
type Status string

const (
	StatusFound   Status = "found"
	StatusMissed  Status = "missed"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Result is the outcome for one record.
type Result struct {
	Row          int
	Query        string
	ExpectedSlug string
	Status       Status

	// TopSlug is the normalized slug of the first recommendation.
	TopSlug string

	// URLs holds up to K returned URLs in rank order.
	URLs []string

	// Error describes a failed call or the reason a record was skipped.
	Error string
}

// Report summarizes an evaluation run.
type Report struct {
	RunID     uuid.UUID
	StartedAt time.Time
	Duration  time.Duration
	K         int
	Recall    float64
	Hits      int
	Processed int
	Skipped   int
	Failed    int
	Results   []Result
}

// HasData reports whether any record produced a scoreable comparison.
// Recall is meaningless when it is false.
func (r Report) HasData() bool {
	return r.Processed > 0
}

// Summary renders the final recall line.
func (r Report) Summary() string {
	if !r.HasData() {
		return fmt.Sprintf("Recall@%d: no data (0 processed queries, %d skipped, %d failed)", r.K, r.Skipped, r.Failed)
	}
	return fmt.Sprintf("Final Mean Recall@%d: %.2f (%d%%) (based on %d processed queries, %d skipped, %d failed)",
		r.K, r.Recall, int(r.Recall*100), r.Processed, r.Skipped, r.Failed)
}

// Option configures a Harness.
type Option func(*Harness)

// WithK sets the recall cutoff.
func WithK(k int) Option {
	return func(h *Harness) {
		if k > 0 {
			h.k = k
		}
	}
}

// WithConcurrency evaluates up to n records at once.
func WithConcurrency(n int) Option {
	return func(h *Harness) {
		if n > 0 {
			h.concurrency = n
		}
	}
}

// WithRateLimit paces calls to rps requests per second. Zero disables pacing.
func WithRateLimit(rps float64) Option {
	return func(h *Harness) {
		if rps > 0 {
			h.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// Harness runs an evaluation against a Source.
type Harness struct {
	source      Source
	k           int
	concurrency int
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// NewHarness creates a harness over source.
func NewHarness(source Source, opts ...Option) *Harness {
	h := &Harness{
		source:      source,
		k:           DefaultK,
		concurrency: 1,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Evaluate scores records. Per-record failures are logged and counted; they
// never abort the run.
func (h *Harness) Evaluate(ctx context.Context, records []Record) Report {
	report := Report{
		RunID:     uuid.New(),
		StartedAt: time.Now(),
		K:         h.k,
		Results:   make([]Result, len(records)),
	}

	h.logger.Info("evaluation started",
		"run_id", report.RunID,
		"records", len(records),
		"k", h.k,
		"concurrency", h.concurrency,
	)

	if h.concurrency <= 1 {
		for i, rec := range records {
			report.Results[i] = h.evaluateOne(ctx, rec)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(h.concurrency)
		for i, rec := range records {
			g.Go(func() error {
				report.Results[i] = h.evaluateOne(ctx, rec)
				return nil
			})
		}
		// evaluateOne records its own failure in the slot and always returns nil
		_ = g.Wait()
	}

	for _, res := range report.Results {
		switch res.Status {
		case StatusFound:
			report.Hits++
			report.Processed++
		case StatusMissed:
			report.Processed++
		case StatusSkipped:
			report.Skipped++
		case StatusFailed:
			report.Failed++
		}
	}
	if report.Processed > 0 {
		report.Recall = float64(report.Hits) / float64(report.Processed)
	}
	report.Duration = time.Since(report.StartedAt)

	h.logger.Info("evaluation finished",
		"run_id", report.RunID,
		"has_data", report.HasData(),
		"recall", report.Recall,
		"hits", report.Hits,
		"processed", report.Processed,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report
}

func (h *Harness) evaluateOne(ctx context.Context, rec Record) Result {
	res := Result{
		Row:          rec.Row,
		Query:        rec.Query,
		ExpectedSlug: rec.ExpectedSlug,
	}

	if strings.TrimSpace(rec.Query) == "" || rec.ExpectedSlug == "" {
		res.Status = StatusSkipped
		res.Error = "missing query or target"
		h.logger.Warn("skipping row: missing query or target", "row", rec.Row)
		return res
	}

	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			res.Status = StatusFailed
			res.Error = err.Error()
			h.logger.Warn("recommend call not sent", "row", rec.Row, "error", err)
			return res
		}
	}

	urls, err := h.source.Recommend(ctx, rec.Query)
	if err != nil {
		res.Status = StatusFailed
		res.Error = err.Error()
		h.logger.Warn("recommend call failed", "row", rec.Row, "error", err)
		return res
	}

	if len(urls) > h.k {
		urls = urls[:h.k]
	}
	res.URLs = urls
	if len(urls) > 0 {
		res.TopSlug = slug.Normalize(urls[0])
	}

	res.Status = StatusMissed
	for _, u := range urls {
		if slug.Match(rec.ExpectedSlug, slug.Normalize(u)) {
			res.Status = StatusFound
			break
		}
	}

	if res.Status == StatusFound {
		h.logger.Info("query found", "row", rec.Row, "recs", len(urls))
	} else {
		top := res.TopSlug
		if top == "" {
			top = "none"
		}
		h.logger.Info("query missed",
			"row", rec.Row,
			"recs", len(urls),
			"expected_slug", rec.ExpectedSlug,
			"top_slug", top,
			"urls", urls,
		)
	}
	return res
}
