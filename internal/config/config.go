// Package config loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Backend names accepted by the selector variables.
const (
	VectorStoreChromem = "chromem"
	VectorStoreQdrant  = "qdrant"

	EmbedderFastEmbed = "fastembed"
	EmbedderOllama    = "ollama"

	LLMGemini = "gemini"
	LLMOllama = "ollama"
	LLMNone   = "none"
)

// Config holds all configuration for the recommendation service
type Config struct {
	// Server
	HTTPPort       int      `env:"HTTP_PORT" envDefault:"8001"`
	Environment    string   `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string   `env:"LOG_FORMAT" envDefault:"json"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	// Vector index
	VectorStore    string `env:"VECTOR_STORE" envDefault:"chromem"`
	ChromemPath    string `env:"CHROMEM_PATH" envDefault:"data/embeddings/chromem"`
	CollectionName string `env:"COLLECTION_NAME" envDefault:"shl_assessments"`
	QdrantGRPCURL  string `env:"QDRANT_GRPC_URL" envDefault:"localhost:6334"`
	QdrantAPIKey   string `env:"QDRANT_API_KEY"`

	// Embeddings
	Embedder             string `env:"EMBEDDER" envDefault:"fastembed"`
	EmbeddingModel       string `env:"EMBEDDING_MODEL" envDefault:"sentence-transformers/all-MiniLM-L6-v2"`
	FastEmbedCacheDir    string `env:"FASTEMBED_CACHE_DIR" envDefault:"local_cache"`
	OllamaURL            string `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`
	OllamaEmbeddingModel string `env:"OLLAMA_EMBEDDING_MODEL" envDefault:"all-minilm"`

	// LLM
	LLMProvider    string `env:"LLM_PROVIDER" envDefault:"gemini"`
	GeminiAPIKey   string `env:"GEMINI_API_KEY"`
	GeminiModel    string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	OllamaLLMModel string `env:"OLLAMA_LLM_MODEL" envDefault:"llama3.2"`

	// Pipeline
	RetrievalDepth    int           `env:"RETRIEVAL_DEPTH" envDefault:"200"`
	RetrieverTimeout  time.Duration `env:"RETRIEVER_TIMEOUT" envDefault:"10s"`
	RerankTimeout     time.Duration `env:"RERANK_TIMEOUT" envDefault:"30s"`
	RetrievalCacheTTL time.Duration `env:"RETRIEVAL_CACHE_TTL" envDefault:"10m"`

	// PostgreSQL, optional: evaluation runs are persisted only when set
	DatabaseURL string `env:"DATABASE_URL"`

	// Data files
	CorpusPath      string `env:"CORPUS_PATH" envDefault:"data/raw/shl_assessments.csv"`
	DatasetPath     string `env:"DATASET_PATH" envDefault:"data/given_datasets/train.csv"`
	RecommendAPIURL string `env:"RECOMMEND_API_URL" envDefault:"http://127.0.0.1:8001/recommend"`
}

// Load loads configuration from .env file (if present) and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks selector values and numeric bounds.
func (c *Config) Validate() error {
	switch c.VectorStore {
	case VectorStoreChromem, VectorStoreQdrant:
	default:
		return fmt.Errorf("VECTOR_STORE must be %q or %q, got %q", VectorStoreChromem, VectorStoreQdrant, c.VectorStore)
	}
	switch c.Embedder {
	case EmbedderFastEmbed, EmbedderOllama:
	default:
		return fmt.Errorf("EMBEDDER must be %q or %q, got %q", EmbedderFastEmbed, EmbedderOllama, c.Embedder)
	}
	switch c.LLMProvider {
	case LLMGemini, LLMOllama, LLMNone:
	default:
		return fmt.Errorf("LLM_PROVIDER must be %q, %q or %q, got %q", LLMGemini, LLMOllama, LLMNone, c.LLMProvider)
	}
	if c.RetrievalDepth <= 0 {
		return fmt.Errorf("RETRIEVAL_DEPTH must be positive, got %d", c.RetrievalDepth)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT out of range: %d", c.HTTPPort)
	}
	return nil
}
