package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8001, cfg.HTTPPort)
	assert.Equal(t, VectorStoreChromem, cfg.VectorStore)
	assert.Equal(t, "shl_assessments", cfg.CollectionName)
	assert.Equal(t, EmbedderFastEmbed, cfg.Embedder)
	assert.Equal(t, 200, cfg.RetrievalDepth)
	assert.Equal(t, 30*time.Second, cfg.RerankTimeout)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("VECTOR_STORE", "qdrant")
	t.Setenv("LLM_PROVIDER", "none")
	t.Setenv("RETRIEVAL_DEPTH", "50")
	t.Setenv("RETRIEVER_TIMEOUT", "2s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, VectorStoreQdrant, cfg.VectorStore)
	assert.Equal(t, LLMNone, cfg.LLMProvider)
	assert.Equal(t, 50, cfg.RetrievalDepth)
	assert.Equal(t, 2*time.Second, cfg.RetrieverTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"VECTOR_STORE", "pinecone"},
		{"EMBEDDER", "openai"},
		{"LLM_PROVIDER", "claude"},
		{"RETRIEVAL_DEPTH", "0"},
		{"RETRIEVAL_DEPTH", "many"},
		{"HTTP_PORT", "70000"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
