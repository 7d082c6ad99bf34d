package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docqa/internal/adapters/driven/resilience"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/pgvector"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/qdrant"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docqa/internal/adapters/driving/cli"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/core/services"
	"github.com/custodia-labs/docqa/internal/extractors"
	"github.com/custodia-labs/docqa/internal/extractors/pdf"
	"github.com/custodia-labs/docqa/internal/extractors/plaintext"
	"github.com/custodia-labs/docqa/internal/logger"
	"github.com/custodia-labs/docqa/internal/postprocessors/chunker"
)

// pingTimeout bounds the backend reachability check.
const pingTimeout = 10 * time.Second

// newPipelineFactory assembles the ingest and query pipelines from the effective settings.
func newPipelineFactory(settingsService driving.SettingsService, configDir string) cli.PipelineFactory {
	return func(ctx context.Context) (*cli.Pipeline, error) {
		settings, err := settingsService.Get()
		if err != nil {
			return nil, fmt.Errorf("loading settings: %w", err)
		}
		if err := settings.Retrieval.Validate(); err != nil {
			return nil, err
		}

		guard := resilience.FromSettings(settings.Resilience)

		aiServices, err := ai.Init(ctx, settings, guard, false)
		if err != nil {
			return nil, err
		}

		store, err := openVectorStore(ctx, settings)
		if err != nil {
			aiServices.Close()
			return nil, err
		}
		vectors := resilience.WrapVectorStore(store, guard)

		registry := extractors.NewRegistry(plaintext.New(), pdf.New())
		chunks, err := chunker.New(
			chunker.WithChunkSize(settings.Retrieval.ChunkSize),
			chunker.WithOverlap(settings.Retrieval.ChunkOverlap),
		)
		if err != nil {
			aiServices.Close()
			_ = store.Close()
			return nil, err
		}

		ingest := services.NewIngestService(registry, chunks, aiServices.Embedding, vectors, services.IngestConfig{
			Collection:      settings.VectorStore.Collection,
			Metric:          settings.VectorStore.Metric,
			EmbedBatchSize:  settings.Retrieval.EmbedBatchSize,
			UpsertBatchSize: settings.Retrieval.UpsertBatchSize,
		})

		query := services.NewQueryService(aiServices.Embedding, vectors, aiServices.Generation, services.QueryConfig{
			Collection:  settings.VectorStore.Collection,
			TopK:        settings.Retrieval.TopK,
			MaxTokens:   settings.LLM.MaxTokens,
			Temperature: settings.LLM.Temperature,
		})
		if configDir != "" {
			prompts, err := file.NewPromptStore(filepath.Join(configDir, "prompts"),
				map[string]string{driven.PromptAnswer: services.DefaultAnswerPrompt})
			if err != nil {
				logger.Warn("Prompt templates unavailable, using built-in: %v", err)
			} else {
				query.SetPromptStore(prompts)
			}
		}

		logger.Debug("Pipeline ready: %s store, collection %q", settings.VectorStore.Kind, settings.VectorStore.Collection)

		return &cli.Pipeline{
			Ingest:  ingest,
			Query:   query,
			Checker: registry,
			Ping: func(ctx context.Context) error {
				return pingBackends(ctx, aiServices)
			},
			Close: func() {
				aiServices.Close()
				if err := store.Close(); err != nil {
					logger.Warn("Closing vector store: %v", err)
				}
			},
		}, nil
	}
}

// openVectorStore connects to the configured backend.
func openVectorStore(ctx context.Context, settings *domain.AppSettings) (driven.VectorStore, error) {
	vs := settings.VectorStore
	switch vs.Kind {
	case domain.VectorStoreMemory:
		return memory.NewVectorStore(), nil
	case domain.VectorStoreSQLite, "":
		return sqlite.NewStore(vs.DataDir)
	case domain.VectorStoreQdrant:
		return qdrant.NewStore(qdrant.Config{
			URL:     vs.QdrantURL,
			APIKey:  vs.QdrantAPIKey,
			Timeout: settings.Resilience.CallTimeout,
		})
	case domain.VectorStorePgvector:
		return pgvector.NewStore(ctx, vs.PgvectorDSN)
	default:
		return nil, fmt.Errorf("%w: unknown vector store %q", domain.ErrInvalidInput, vs.Kind)
	}
}

// pingBackends checks both AI services respond.
func pingBackends(ctx context.Context, s *ai.Services) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := s.Embedding.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	if err := s.Generation.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLLMUnavailable, err)
	}
	return nil
}
