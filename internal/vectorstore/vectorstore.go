// Package vectorstore provides the nearest-neighbor index the retriever
// queries. Implementations embed the query text themselves, so callers only
// deal in text.
package vectorstore

import (
	"context"
	"errors"
)

// Sentinel errors for index operations.
var (
	// ErrCollectionNotFound is returned when the configured collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrUnavailable is returned when the index backend cannot be reached.
	ErrUnavailable = errors.New("index unavailable")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Payload keys reserved by the index adapters.
const (
	payloadDocument     = "document"
	payloadAssessmentID = "assessment_id"
)

// Embedder turns text into dense vectors. It is satisfied by
// embedder.Embedder.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Document is a unit of indexed text with its metadata.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// Hit is one nearest-neighbor match.
type Hit struct {
	ID string

	// Distance is the cosine distance to the query (1 - similarity).
	Distance float32

	Document string
	Metadata map[string]string
}

// Index is the nearest-neighbor service contract.
type Index interface {
	// Query returns up to n hits ordered by ascending distance.
	Query(ctx context.Context, text string, n int) ([]Hit, error)

	// Upsert inserts or replaces documents.
	Upsert(ctx context.Context, docs []Document) error

	// Reset drops and recreates the collection.
	Reset(ctx context.Context) error

	// Count returns the number of indexed documents.
	Count(ctx context.Context) (int, error)

	// Close releases the underlying connection.
	Close() error
}
