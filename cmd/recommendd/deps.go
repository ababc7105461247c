package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/knoguchi/recommender/internal/catalog"
	"github.com/knoguchi/recommender/internal/config"
	"github.com/knoguchi/recommender/internal/embedder"
	"github.com/knoguchi/recommender/internal/llm"
	"github.com/knoguchi/recommender/internal/metrics"
	"github.com/knoguchi/recommender/internal/reranker"
	"github.com/knoguchi/recommender/internal/retriever"
	"github.com/knoguchi/recommender/internal/service"
	"github.com/knoguchi/recommender/internal/vectorstore"
)

const retrievalCacheSize = 1024

// components holds the clients built once per process.
type components struct {
	embedder embedder.Embedder
	index    vectorstore.Index
	llm      llm.LLM
	cache    *expirable.LRU[string, catalog.RankedList]
	closers  []func() error
}

func (c *components) Close() {
	if c.cache != nil {
		c.cache.Purge()
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			slog.Warn("error closing component", "error", err)
		}
	}
}

func newEmbedder(cfg *config.Config) (embedder.Embedder, func() error, error) {
	switch cfg.Embedder {
	case config.EmbedderOllama:
		e := embedder.NewOllamaEmbedder(embedder.OllamaConfig{
			BaseURL: cfg.OllamaURL,
			Model:   cfg.OllamaEmbeddingModel,
		})
		slog.Info("initialized Ollama embedder", "model", e.ModelName(), "dimension", e.Dimension())
		return e, func() error { return nil }, nil
	default:
		e, err := embedder.NewFastEmbed(embedder.FastEmbedConfig{
			Model:    cfg.EmbeddingModel,
			CacheDir: cfg.FastEmbedCacheDir,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize fastembed: %w", err)
		}
		slog.Info("initialized fastembed embedder", "model", e.ModelName(), "dimension", e.Dimension())
		return e, e.Close, nil
	}
}

func newIndex(cfg *config.Config, emb embedder.Embedder) (vectorstore.Index, error) {
	switch cfg.VectorStore {
	case config.VectorStoreQdrant:
		idx, err := vectorstore.NewQdrantIndex(vectorstore.QdrantConfig{
			URL:        cfg.QdrantGRPCURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.CollectionName,
		}, emb)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
		}
		slog.Info("connected to Qdrant", "url", cfg.QdrantGRPCURL, "collection", cfg.CollectionName)
		return idx, nil
	default:
		idx, err := vectorstore.NewChromemIndex(vectorstore.ChromemConfig{
			Path:       cfg.ChromemPath,
			Collection: cfg.CollectionName,
		}, emb, slog.Default())
		if err != nil {
			return nil, fmt.Errorf("failed to open chromem index: %w", err)
		}
		slog.Info("opened chromem index", "path", cfg.ChromemPath, "collection", cfg.CollectionName)
		return idx, nil
	}
}

// newLLM returns nil when no model is configured; the reranker then keeps
// retrieval order.
func newLLM(ctx context.Context, cfg *config.Config) (llm.LLM, error) {
	switch cfg.LLMProvider {
	case config.LLMGemini:
		if cfg.GeminiAPIKey == "" {
			slog.Warn("GEMINI_API_KEY not set")
			return nil, nil
		}
		client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Gemini: %w", err)
		}
		slog.Info("initialized Gemini LLM", "model", client.Model())
		return client, nil
	case config.LLMOllama:
		client := llm.NewOllamaClient(
			llm.WithBaseURL(cfg.OllamaURL),
			llm.WithModel(cfg.OllamaLLMModel),
		)
		slog.Info("initialized Ollama LLM", "model", client.Model())
		return client, nil
	default:
		return nil, nil
	}
}

// buildComponents opens the embedder and index, and the LLM when withLLM is set.
func buildComponents(ctx context.Context, cfg *config.Config, withLLM bool) (*components, error) {
	c := &components{}

	emb, closeEmb, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	c.embedder = emb
	c.closers = append(c.closers, closeEmb)

	idx, err := newIndex(cfg, emb)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.index = idx
	c.closers = append(c.closers, idx.Close)

	if withLLM {
		client, err := newLLM(ctx, cfg)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.llm = client
	}

	if cfg.RetrievalCacheTTL > 0 {
		c.cache = expirable.NewLRU[string, catalog.RankedList](retrievalCacheSize, nil, cfg.RetrievalCacheTTL)
	}
	return c, nil
}

// newRecommendService wires retriever, reranker and pipeline.
func newRecommendService(cfg *config.Config, c *components, m *metrics.Metrics) *service.RecommendService {
	logger := slog.Default()

	retrieverOpts := []retriever.Option{
		retriever.WithTimeout(cfg.RetrieverTimeout),
		retriever.WithMetrics(m),
		retriever.WithLogger(logger),
	}
	if c.cache != nil {
		retrieverOpts = append(retrieverOpts, retriever.WithCache(c.cache))
	}
	r := retriever.New(c.index, retrieverOpts...)

	rr := reranker.New(c.llm,
		reranker.WithTimeout(cfg.RerankTimeout),
		reranker.WithMetrics(m),
		reranker.WithLogger(logger),
	)

	return service.NewRecommendService(r, rr,
		service.WithDepth(cfg.RetrievalDepth),
		service.WithMetrics(m),
		service.WithLogger(logger),
	)
}

// indexReady probes the index with a one-result query.
func indexReady(index vectorstore.Index) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		hits, err := index.Query(ctx, "assessment", 1)
		if err != nil {
			return err
		}
		if len(hits) == 0 {
			return errors.New("index is empty")
		}
		return nil
	}
}
