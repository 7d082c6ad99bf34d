// Package gemini provides an embedding service adapter using the Gemini API.
package gemini

import (
	"context"
	"fmt"
	"sync/atomic"

	"google.golang.org/api/generativelanguage/v1beta"

	"github.com/custodia-labs/docqa/internal/adapters/driven/googleai"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultModel is used when no model is configured.
const DefaultModel = "text-embedding-004"

// Config holds configuration for the Gemini embedding service.
type Config struct {
	// APIKey is the Google AI Studio key (required).
	APIKey string

	// BaseURL overrides the API endpoint.
	BaseURL string

	// Model is the embedding model (default: text-embedding-004).
	Model string
}

// EmbeddingService generates embeddings with the batchEmbedContents method.
type EmbeddingService struct {
	models     *generativelanguage.ModelsService
	model      string
	dimensions atomic.Int64
}

// NewEmbeddingService creates a new Gemini embedding service.
// Dimensions of unknown models are learned from the first response.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	svc, err := googleai.NewService(context.Background(), googleai.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
	})
	if err != nil {
		return nil, err
	}

	s := &EmbeddingService{
		models: svc.Models,
		model:  cfg.Model,
	}
	s.dimensions.Store(int64(domain.EmbeddingDimensions()[cfg.Model]))
	return s, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch embeds all texts in one request. The result is index-aligned with texts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	model := googleai.ModelPath(s.model)
	req := &generativelanguage.BatchEmbedContentsRequest{
		Requests: make([]*generativelanguage.EmbedContentRequest, len(texts)),
	}
	for i, text := range texts {
		req.Requests[i] = &generativelanguage.EmbedContentRequest{
			Model: model,
			Content: &generativelanguage.Content{
				Parts: []*generativelanguage.Part{{Text: text}},
			},
		}
	}

	resp, err := s.models.BatchEmbedContents(model, req).Context(ctx).Do()
	if err != nil {
		return nil, googleai.WrapError(err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%s: got %d embeddings for %d inputs", googleai.Provider, len(resp.Embeddings), len(texts))
	}

	embeddings := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("%s: empty embedding at index %d", googleai.Provider, i)
		}
		vector := make([]float32, len(e.Values))
		for j, v := range e.Values {
			vector[j] = float32(v)
		}
		embeddings[i] = vector
	}

	s.dimensions.CompareAndSwap(0, int64(len(embeddings[0])))
	return embeddings, nil
}

// Dimensions returns the embedding vector size, or 0 while still unknown.
func (s *EmbeddingService) Dimensions() int {
	return int(s.dimensions.Load())
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping reads the model's metadata, which validates the key and the model name.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	_, err := s.models.Get(googleai.ModelPath(s.model)).Context(ctx).Do()
	return googleai.WrapError(err)
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
