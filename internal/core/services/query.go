package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// QueryConfig holds the immutable query parameters.
type QueryConfig struct {
	// Collection is searched for context.
	Collection string

	// TopK is the number of chunks retrieved when the request does not override it.
	TopK int

	// MaxTokens caps the generated answer. Zero leaves the backend default.
	MaxTokens int

	// Temperature is passed to the generator.
	Temperature float64
}

// QueryService answers questions from the indexed documents.
type QueryService struct {
	embedder    driven.EmbeddingService
	store       driven.VectorStore
	generator   driven.GenerationService
	promptStore driven.PromptStore
	cfg         QueryConfig
}

// NewQueryService creates a new query service.
func NewQueryService(
	embedder driven.EmbeddingService,
	store driven.VectorStore,
	generator driven.GenerationService,
	cfg QueryConfig,
) *QueryService {
	if cfg.Collection == "" {
		cfg.Collection = domain.DefaultCollection
	}
	if cfg.TopK <= 0 {
		cfg.TopK = domain.DefaultTopK
	}

	return &QueryService{
		embedder:  embedder,
		store:     store,
		generator: generator,
		cfg:       cfg,
	}
}

// SetPromptStore sets the store the answer template is loaded from.
// Without one the built-in template is used.
func (s *QueryService) SetPromptStore(store driven.PromptStore) {
	s.promptStore = store
}

// Answer retrieves the most similar chunks and generates an answer grounded in them.
// When nothing is retrieved the canned answer is returned and the generator is not called.
func (s *QueryService) Answer(ctx context.Context, question string, opts domain.QueryOptions) (*domain.Answer, error) {
	logger.Section("Query")

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}

	topK := s.cfg.TopK
	if opts.TopK > 0 {
		topK = opts.TopK
	}
	logger.Debug("Question: %q, top_k: %d", question, topK)

	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		logger.Warn("Question embedding failed: %v", err)
		return nil, classify(domain.ErrRetrieval, err)
	}
	if dims := s.embedder.Dimensions(); dims > 0 && len(vector) != dims {
		return nil, fmt.Errorf("%w: %w: question vector has %d components, expected %d",
			domain.ErrRetrieval, domain.ErrDimensionMismatch, len(vector), dims)
	}

	spec, err := s.store.Describe(ctx, s.cfg.Collection)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Info("Collection %q does not exist yet, returning canned answer", s.cfg.Collection)
		return noContextAnswer(), nil
	}
	if err != nil {
		logger.Warn("Reading collection failed: %v", err)
		return nil, classify(domain.ErrRetrieval, err)
	}
	if err := s.checkCollection(spec, len(vector)); err != nil {
		logger.Warn("%v", err)
		return nil, err
	}

	matches, err := s.store.Query(ctx, s.cfg.Collection, vector, topK)
	if err != nil {
		logger.Warn("Vector store query failed: %v", err)
		return nil, classify(domain.ErrRetrieval, err)
	}
	logger.Debug("Retrieved %d chunks", len(matches))

	if len(matches) == 0 {
		logger.Info("No relevant context, returning canned answer")
		return noContextAnswer(), nil
	}

	contexts := make([]string, len(matches))
	sources := make([]string, len(matches))
	for i, m := range matches {
		contexts[i] = m.Record.Metadata.Text
		sources[i] = m.Record.Metadata.Source
		logger.Debug("  #%d score=%.4f source=%q offset=%d",
			i+1, m.Score, m.Record.Metadata.Source, m.Record.Metadata.Offset)
	}

	prompt := BuildPrompt(loadAnswerTemplate(s.promptStore), contexts, question)

	text, err := s.generator.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		logger.Warn("Generation failed: %v", err)
		return nil, classify(domain.ErrGeneration, err)
	}

	return &domain.Answer{
		Text:     strings.TrimSpace(text),
		Context:  contexts,
		Sources:  sources,
		Grounded: true,
	}, nil
}

// checkCollection rejects questions embedded in a different vector space than
// the collection. Collections without a model stamp only check the dimension.
func (s *QueryService) checkCollection(spec domain.CollectionSpec, dims int) error {
	if spec.Dimension > 0 && spec.Dimension != dims {
		return fmt.Errorf("%w: %w: collection %q has dimension %d, question vector has %d",
			domain.ErrRetrieval, domain.ErrDimensionMismatch, spec.Name, spec.Dimension, dims)
	}
	model := s.embedder.ModelName()
	if spec.Model != "" && model != "" && spec.Model != model {
		return fmt.Errorf("%w: %w: collection %q was built with %q, questions are embedded with %q",
			domain.ErrRetrieval, domain.ErrModelMismatch, spec.Name, spec.Model, model)
	}
	return nil
}

func noContextAnswer() *domain.Answer {
	return &domain.Answer{
		Text:    domain.NoRelevantInformationAnswer,
		Context: []string{},
		Sources: []string{},
	}
}
