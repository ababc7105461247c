//go:build cgo

package embedder

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	fastembed "github.com/anush008/fastembed-go"
)

// DefaultFastEmbedModel matches the model the original corpus was embedded with.
const DefaultFastEmbedModel = "sentence-transformers/all-MiniLM-L6-v2"

// FastEmbedConfig holds configuration for the local ONNX embedder.
type FastEmbedConfig struct {
	// Model is one of the names in fastEmbedModels.
	Model string

	// CacheDir stores downloaded model files (default: ./local_cache).
	CacheDir string

	// MaxLength is the maximum input sequence length (default: 256).
	MaxLength int
}

var fastEmbedModels = map[string]fastembed.EmbeddingModel{
	"sentence-transformers/all-MiniLM-L6-v2": fastembed.AllMiniLML6V2,
	"BAAI/bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"BAAI/bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
}

// FastEmbed generates embeddings in-process with fastembed-go.
type FastEmbed struct {
	model     *fastembed.FlagEmbedding
	modelName string
	dimension int

	// the ONNX session is not safe for concurrent use
	mu sync.Mutex
}

// NewFastEmbed loads (downloading if needed) the configured model.
func NewFastEmbed(cfg FastEmbedConfig) (*FastEmbed, error) {
	name := cfg.Model
	if name == "" {
		name = DefaultFastEmbedModel
	}
	model, ok := fastEmbedModels[name]
	if !ok {
		return nil, fmt.Errorf("unsupported fastembed model %q", name)
	}

	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(".", "local_cache")
	}
	maxLength := cfg.MaxLength
	if maxLength <= 0 {
		maxLength = 256
	}

	showProgress := false
	flag, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                model,
		CacheDir:             cacheDir,
		MaxLength:            maxLength,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing fastembed: %w", err)
	}

	return &FastEmbed{
		model:     flag,
		modelName: name,
		dimension: DimensionFor(name, 384),
	}, nil
}

// Embed generates an embedding for a query.
func (f *FastEmbed) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	v, err := f.model.QueryEmbed(text)
	if err != nil {
		return nil, fmt.Errorf("fastembed query: %w", err)
	}
	return v, nil
}

// EmbedBatch generates embeddings for corpus documents.
func (f *FastEmbed) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	vectors, err := f.model.PassageEmbed(texts, 64)
	if err != nil {
		return nil, fmt.Errorf("fastembed passages: %w", err)
	}
	return vectors, nil
}

// Dimension returns the dimensionality of the embedding vectors.
func (f *FastEmbed) Dimension() int {
	return f.dimension
}

// ModelName returns the configured model name.
func (f *FastEmbed) ModelName() string {
	return f.modelName
}

// Close releases the ONNX session.
func (f *FastEmbed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.model.Destroy()
}

var _ Embedder = (*FastEmbed)(nil)
