package resilience

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure decorators implement the interfaces.
var (
	_ driven.EmbeddingService  = (*EmbeddingService)(nil)
	_ driven.GenerationService = (*GenerationService)(nil)
	_ driven.VectorStore       = (*VectorStore)(nil)
)

// EmbeddingService guards an embedding backend.
type EmbeddingService struct {
	next  driven.EmbeddingService
	guard *Guard
}

// WrapEmbedding decorates an embedding service with the guard.
func WrapEmbedding(next driven.EmbeddingService, guard *Guard) *EmbeddingService {
	return &EmbeddingService{next: next, guard: guard}
}

// Embed generates a vector embedding for the given text.
func (e *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := e.guard.Do(ctx, "embed", func(ctx context.Context) error {
		var err error
		out, err = e.next.Embed(ctx, text)
		return err
	})
	return out, err
}

// EmbedBatch generates embeddings for multiple texts.
func (e *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := e.guard.Do(ctx, "embed batch", func(ctx context.Context) error {
		var err error
		out, err = e.next.EmbedBatch(ctx, texts)
		return err
	})
	return out, err
}

// Dimensions returns the embedding vector size.
func (e *EmbeddingService) Dimensions() int { return e.next.Dimensions() }

// ModelName returns the embedding model name.
func (e *EmbeddingService) ModelName() string { return e.next.ModelName() }

// Ping validates the service is reachable.
func (e *EmbeddingService) Ping(ctx context.Context) error {
	return e.guard.Do(ctx, "embedding ping", e.next.Ping)
}

// Close releases resources.
func (e *EmbeddingService) Close() error { return e.next.Close() }

// GenerationService guards a generation backend.
type GenerationService struct {
	next  driven.GenerationService
	guard *Guard
}

// WrapGeneration decorates a generation service with the guard.
func WrapGeneration(next driven.GenerationService, guard *Guard) *GenerationService {
	return &GenerationService{next: next, guard: guard}
}

// Generate produces text completion from a prompt.
func (g *GenerationService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	var out string
	err := g.guard.Do(ctx, "generate", func(ctx context.Context) error {
		var err error
		out, err = g.next.Generate(ctx, prompt, opts)
		return err
	})
	return out, err
}

// ModelName returns the model name.
func (g *GenerationService) ModelName() string { return g.next.ModelName() }

// Ping validates the service is reachable.
func (g *GenerationService) Ping(ctx context.Context) error {
	return g.guard.Do(ctx, "generation ping", g.next.Ping)
}

// Close releases resources.
func (g *GenerationService) Close() error { return g.next.Close() }

// VectorStore guards a vector store backend.
type VectorStore struct {
	next  driven.VectorStore
	guard *Guard
}

// WrapVectorStore decorates a vector store with the guard.
func WrapVectorStore(next driven.VectorStore, guard *Guard) *VectorStore {
	return &VectorStore{next: next, guard: guard}
}

// EnsureCollection creates or verifies a collection.
func (v *VectorStore) EnsureCollection(ctx context.Context, spec domain.CollectionSpec) error {
	return v.guard.Do(ctx, "ensure collection", func(ctx context.Context) error {
		return v.next.EnsureCollection(ctx, spec)
	})
}

// Describe reads a collection's spec.
func (v *VectorStore) Describe(ctx context.Context, name string) (domain.CollectionSpec, error) {
	var out domain.CollectionSpec
	err := v.guard.Do(ctx, "describe", func(ctx context.Context) error {
		var err error
		out, err = v.next.Describe(ctx, name)
		return err
	})
	return out, err
}

// Upsert writes records. Record IDs are stable, so a retried upsert is idempotent.
func (v *VectorStore) Upsert(ctx context.Context, collection string, records []domain.IndexedRecord) error {
	return v.guard.Do(ctx, "upsert", func(ctx context.Context) error {
		return v.next.Upsert(ctx, collection, records)
	})
}

// Query returns the nearest records.
func (v *VectorStore) Query(ctx context.Context, collection string, vector []float32, topK int) ([]domain.Match, error) {
	var out []domain.Match
	err := v.guard.Do(ctx, "query", func(ctx context.Context) error {
		var err error
		out, err = v.next.Query(ctx, collection, vector, topK)
		return err
	})
	return out, err
}

// Close releases resources.
func (v *VectorStore) Close() error { return v.next.Close() }
