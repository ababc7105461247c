// Package embedder provides interfaces and implementations for text embedding.
package embedder

import "context"

// Embedder defines the interface for text embedding services.
type Embedder interface {
	// Embed generates an embedding vector for a single text input.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embedding vectors for multiple text inputs.
	// Returns a slice of embeddings in the same order as the input texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the dimensionality of the embedding vectors.
	Dimension() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string
}

// KnownDimensions maps embedding model names to their output dimension.
var KnownDimensions = map[string]int{
	"all-minilm":                             384,
	"all-minilm:l6-v2":                       384,
	"sentence-transformers/all-MiniLM-L6-v2": 384,
	"BAAI/bge-small-en-v1.5":                 384,
	"BAAI/bge-base-en-v1.5":                  768,
	"nomic-embed-text":                       768,
	"mxbai-embed-large":                      1024,
	"snowflake-arctic-embed":                 1024,
}

// DimensionFor returns the known dimension for model, or fallback.
func DimensionFor(model string, fallback int) int {
	if d, ok := KnownDimensions[model]; ok {
		return d
	}
	return fallback
}
