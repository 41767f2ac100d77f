// Package app assembles the retrieval pipeline from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/knoguchi/freightquote/internal/collection"
	"github.com/knoguchi/freightquote/internal/config"
	"github.com/knoguchi/freightquote/internal/docstore"
	"github.com/knoguchi/freightquote/internal/docstore/postgres"
	"github.com/knoguchi/freightquote/internal/embedder"
	"github.com/knoguchi/freightquote/internal/normalize"
	"github.com/knoguchi/freightquote/internal/ranker"
	"github.com/knoguchi/freightquote/internal/service"
)

// Pipeline is a wired QuoteService plus the resources backing it.
type Pipeline struct {
	Service  *service.QuoteService
	Store    docstore.Store
	Embedder embedder.Embedder

	closers []func()
}

// Close releases the store connection.
func (p *Pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
}

// Build connects to the configured store and wires the service.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pipeline{}

	store, closeStore, err := NewStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	p.Store = store
	p.closers = append(p.closers, closeStore)
	logger.Info("connected to document store", "backend", cfg.StoreBackend)

	emb, err := NewEmbedder(cfg)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.Embedder = emb
	logger.Info("initialized embedder", "provider", cfg.EmbeddingProvider, "model", emb.ModelName())

	selector := collection.NewSelector(store, cfg.CurrentCollection, cfg.LegacyCollection, logger)
	rnk := ranker.New(
		ranker.WithThreshold(cfg.RelevanceThreshold),
		ranker.WithMaxResults(cfg.SemanticResultCap),
	)
	logger.Info("initialized ranker", "threshold", rnk.Threshold(), "max_results", cfg.SemanticResultCap)
	normalizer := normalize.New(normalize.Options{
		Breakdown:       normalize.DefaultBreakdown(),
		DefaultCurrency: cfg.DefaultCurrency,
	}, logger)

	p.Service = service.NewQuoteService(store, selector, emb, rnk, normalizer,
		service.WithLimits(cfg.DefaultLimit, cfg.MaxLimit),
		service.WithKeywordFallback(cfg.KeywordFallback),
		service.WithLogger(logger),
	)
	return p, nil
}

// NewStore opens the configured document store backend.
func NewStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (docstore.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendQdrant:
		store, err := docstore.NewQdrantStore(docstore.QdrantConfig{
			URL:     cfg.QdrantURL,
			APIKey:  cfg.QdrantAPIKey,
			UseTLS:  cfg.QdrantUseTLS,
			Timeout: cfg.StoreTimeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
		}
		return store, func() { _ = store.Close() }, nil

	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolConfig{})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return postgres.NewStore(pool, cfg.StoreTimeout, logger), pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// NewEmbedder builds the configured embedding provider.
func NewEmbedder(cfg *config.Config) (embedder.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case config.ProviderOllama:
		return embedder.NewOllamaEmbedder(embedder.OllamaConfig{
			BaseURL: cfg.OllamaURL,
			Model:   cfg.OllamaEmbeddingModel,
			Timeout: cfg.EmbeddingTimeout,
		}), nil
	case config.ProviderOpenAI:
		return embedder.NewOpenAIEmbedder(embedder.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIEmbeddingModel,
			Timeout: cfg.EmbeddingTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}
}
