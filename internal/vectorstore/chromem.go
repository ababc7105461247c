package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// ChromemConfig configures the embedded chromem-go index.
type ChromemConfig struct {
	// Path is the persistence directory. Empty keeps the index in memory.
	Path string

	// Collection is the collection name (default: "shl_assessments").
	Collection string

	// Compress enables gzip compression of persisted files.
	Compress bool
}

// DefaultCollection is the collection used when none is configured.
const DefaultCollection = "shl_assessments"

// ChromemIndex implements Index on an embedded chromem-go database.
type ChromemIndex struct {
	db       *chromem.DB
	embedder Embedder
	name     string
	logger   *slog.Logger

	mu sync.RWMutex
}

// NewChromemIndex opens (or creates) a chromem-go database.
func NewChromemIndex(cfg ChromemConfig, embedder Embedder, logger *slog.Logger) (*ChromemIndex, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	name := cfg.Collection
	if name == "" {
		name = DefaultCollection
	}

	var db *chromem.DB
	if cfg.Path == "" {
		db = chromem.NewDB()
	} else {
		path, err := expandPath(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("expanding path: %w", err)
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", path, err)
		}
		db, err = chromem.NewPersistentDB(path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("opening chromem db: %w", err)
		}
		logger.Info("opened chromem index", "path", path, "collection", name)
	}

	return &ChromemIndex{db: db, embedder: embedder, name: name, logger: logger}, nil
}

func (s *ChromemIndex) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.Embed(ctx, text)
	}
}

// Query embeds text and returns the n nearest documents.
func (s *ChromemIndex) Query(ctx context.Context, text string, n int) ([]Hit, error) {
	if n <= 0 {
		return nil, fmt.Errorf("n must be positive, got %d", n)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	collection := s.db.GetCollection(s.name, s.embeddingFunc())
	if collection == nil {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, s.name)
	}

	// chromem requires nResults <= document count
	count := collection.Count()
	if count == 0 {
		return []Hit{}, nil
	}
	if n > count {
		n = count
	}

	results, err := collection.Query(ctx, text, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection %s: %w", s.name, err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		md := make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			md[k] = v
		}
		id := md[payloadAssessmentID]
		if id == "" {
			id = r.ID
		}
		delete(md, payloadAssessmentID)
		hits = append(hits, Hit{
			ID:       id,
			Distance: 1 - r.Similarity,
			Document: r.Content,
			Metadata: md,
		})
	}
	return hits, nil
}

// Upsert embeds and stores documents. Existing IDs are overwritten.
func (s *ChromemIndex) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	collection, err := s.db.GetOrCreateCollection(s.name, nil, s.embeddingFunc())
	if err != nil {
		return fmt.Errorf("getting collection %s: %w", s.name, err)
	}

	chromemDocs := make([]chromem.Document, len(docs))
	for i, d := range docs {
		md := make(map[string]string, len(d.Metadata)+1)
		for k, v := range d.Metadata {
			md[k] = v
		}
		md[payloadAssessmentID] = d.ID
		chromemDocs[i] = chromem.Document{
			ID:        d.ID,
			Content:   d.Content,
			Metadata:  md,
			Embedding: vectors[i],
		}
	}

	// embeddings are precomputed, so concurrency only affects normalization
	if err := collection.AddDocuments(ctx, chromemDocs, 1); err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}
	return nil
}

// Reset drops the collection and creates an empty one.
func (s *ChromemIndex) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db.GetCollection(s.name, s.embeddingFunc()) != nil {
		if err := s.db.DeleteCollection(s.name); err != nil {
			return fmt.Errorf("deleting collection %s: %w", s.name, err)
		}
		s.logger.Info("deleted old collection", "collection", s.name)
	}
	if _, err := s.db.CreateCollection(s.name, nil, s.embeddingFunc()); err != nil {
		return fmt.Errorf("creating collection %s: %w", s.name, err)
	}
	return nil
}

// Count returns the number of documents in the collection.
func (s *ChromemIndex) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	collection := s.db.GetCollection(s.name, s.embeddingFunc())
	if collection == nil {
		return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, s.name)
	}
	return collection.Count(), nil
}

// Close is a no-op; chromem persists on every write.
func (s *ChromemIndex) Close() error {
	return nil
}

func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

var _ Index = (*ChromemIndex)(nil)
