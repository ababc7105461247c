// Package ingestion builds the assessment index from the corpus CSV.
package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/knoguchi/recommender/internal/catalog"
	"github.com/knoguchi/recommender/internal/vectorstore"
)

const (
	// DescriptionPrefix is the number of description runes embedded per
	// assessment. The full description stays in metadata.
	DescriptionPrefix = 200

	// DefaultBatchSize is the number of documents upserted per call.
	DefaultBatchSize = 128
)

// PipelineConfig holds configuration for the ingestion pipeline
type PipelineConfig struct {
	// BatchSize is the number of documents per Upsert call.
	BatchSize int

	Logger *slog.Logger
}

// PipelineStats contains statistics about an index rebuild
type PipelineStats struct {
	// Assessments is the number of corpus rows read.
	Assessments int

	// Indexed is the collection size reported by the index afterwards.
	Indexed int

	// Batches is the number of Upsert calls made.
	Batches int

	// CorpusHash is the SHA-256 of the focused texts, in row order.
	CorpusHash string

	// ProcessingTime is how long the rebuild took
	ProcessingTime time.Duration
}

// Pipeline rebuilds an index from assessments.
type Pipeline struct {
	index     vectorstore.Index
	batchSize int
	logger    *slog.Logger
}

// NewPipeline creates a new ingestion pipeline
func NewPipeline(index vectorstore.Index, config PipelineConfig) *Pipeline {
	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		index:     index,
		batchSize: batchSize,
		logger:    logger,
	}
}

// FocusedText is the text embedded for an assessment: name and type first,
// then a short description prefix.
func FocusedText(a catalog.Assessment) string {
	return fmt.Sprintf("Name: %s. Type: %s. Description: %s", a.Name, a.TestType, prefix(a.Description, DescriptionPrefix))
}

// Documents converts assessments into index documents.
func Documents(assessments []catalog.Assessment) []vectorstore.Document {
	docs := make([]vectorstore.Document, 0, len(assessments))
	for _, a := range assessments {
		docs = append(docs, vectorstore.Document{
			ID:       a.ID,
			Content:  FocusedText(a),
			Metadata: a.Metadata(),
		})
	}
	return docs
}

// Rebuild drops the collection and indexes assessments from scratch.
func (p *Pipeline) Rebuild(ctx context.Context, assessments []catalog.Assessment) (*PipelineStats, error) {
	startTime := time.Now()

	if len(assessments) == 0 {
		return nil, fmt.Errorf("corpus cannot be empty")
	}

	docs := Documents(assessments)
	stats := &PipelineStats{
		Assessments: len(assessments),
		CorpusHash:  hashDocuments(docs),
	}

	p.logger.Info("rebuilding index", "assessments", len(docs), "corpus_hash", stats.CorpusHash)

	if err := p.index.Reset(ctx); err != nil {
		return nil, fmt.Errorf("reset index: %w", err)
	}

	for start := 0; start < len(docs); start += p.batchSize {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		end := min(start+p.batchSize, len(docs))
		if err := p.index.Upsert(ctx, docs[start:end]); err != nil {
			return nil, fmt.Errorf("upsert documents %d-%d: %w", start, end, err)
		}
		stats.Batches++
		p.logger.Debug("indexed batch", "from", start, "to", end)
	}

	count, err := p.index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count index: %w", err)
	}
	stats.Indexed = count
	stats.ProcessingTime = time.Since(startTime)

	p.logger.Info("index rebuilt",
		"indexed", stats.Indexed,
		"batches", stats.Batches,
		"duration_ms", stats.ProcessingTime.Milliseconds(),
	)
	return stats, nil
}

func prefix(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func hashDocuments(docs []vectorstore.Document) string {
	h := sha256.New()
	for _, d := range docs {
		h.Write([]byte(d.Content))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
