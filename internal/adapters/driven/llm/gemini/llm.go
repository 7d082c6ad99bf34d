// Package gemini provides an answer generation adapter using the Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/generativelanguage/v1beta"

	"github.com/custodia-labs/docqa/internal/adapters/driven/googleai"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure GenerationService implements the interface.
var _ driven.GenerationService = (*GenerationService)(nil)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// Config holds configuration for the Gemini generation service.
type Config struct {
	// APIKey is the Google AI Studio key (required).
	APIKey string

	// BaseURL overrides the API endpoint.
	BaseURL string

	// Model is the generative model (default: gemini-2.0-flash).
	Model string
}

// GenerationService generates answers with the generateContent method.
type GenerationService struct {
	models *generativelanguage.ModelsService
	model  string
}

// NewGenerationService creates a new Gemini generation service.
func NewGenerationService(cfg Config) (*GenerationService, error) {
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

	return &GenerationService{
		models: svc.Models,
		model:  cfg.Model,
	}, nil
}

// Generate sends the prompt as a single user turn and returns the first candidate's text.
func (s *GenerationService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	config := &generativelanguage.GenerationConfig{
		MaxOutputTokens: int64(opts.MaxTokens),
		Temperature:     opts.Temperature,
		StopSequences:   opts.StopWords,
		ForceSendFields: []string{"Temperature"},
	}
	req := &generativelanguage.GenerateContentRequest{
		Contents: []*generativelanguage.Content{{
			Role:  "user",
			Parts: []*generativelanguage.Part{{Text: prompt}},
		}},
		GenerationConfig: config,
	}

	resp, err := s.models.GenerateContent(googleai.ModelPath(s.model), req).Context(ctx).Do()
	if err != nil {
		return "", googleai.WrapError(err)
	}

	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%s: prompt blocked: %s", googleai.Provider, resp.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("%s: no candidates returned", googleai.Provider)
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", fmt.Errorf("%s: empty candidate (finish reason %s)", googleai.Provider, candidate.FinishReason)
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String(), nil
}

// ModelName returns the name of the model being used.
func (s *GenerationService) ModelName() string {
	return s.model
}

// Ping reads the model's metadata, which validates the key and the model name.
func (s *GenerationService) Ping(ctx context.Context) error {
	_, err := s.models.Get(googleai.ModelPath(s.model)).Context(ctx).Do()
	return googleai.WrapError(err)
}

// Close releases resources.
func (s *GenerationService) Close() error {
	return nil
}
