//go:build !cgo

package embedder

import (
	"context"
	"errors"
)

// DefaultFastEmbedModel matches the model the original corpus was embedded with.
const DefaultFastEmbedModel = "sentence-transformers/all-MiniLM-L6-v2"

// ErrFastEmbedNotAvailable is returned when the binary was built without cgo.
var ErrFastEmbedNotAvailable = errors.New("fastembed: not available (built without cgo, use EMBEDDER=ollama)")

// FastEmbedConfig holds configuration for the local ONNX embedder.
type FastEmbedConfig struct {
	Model     string
	CacheDir  string
	MaxLength int
}

// FastEmbed is unavailable without cgo.
type FastEmbed struct{}

// NewFastEmbed always fails without cgo.
func NewFastEmbed(_ FastEmbedConfig) (*FastEmbed, error) {
	return nil, ErrFastEmbedNotAvailable
}

func (f *FastEmbed) Embed(context.Context, string) ([]float32, error) {
	return nil, ErrFastEmbedNotAvailable
}

func (f *FastEmbed) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, ErrFastEmbedNotAvailable
}

func (f *FastEmbed) Dimension() int    { return 0 }
func (f *FastEmbed) ModelName() string { return "" }
func (f *FastEmbed) Close() error      { return nil }

var _ Embedder = (*FastEmbed)(nil)
