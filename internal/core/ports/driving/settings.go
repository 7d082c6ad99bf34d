package driving

import "github.com/custodia-labs/docqa/internal/core/domain"

// SettingsService manages application settings.
// Settings come from the config file, overridden by environment variables.
type SettingsService interface {
	// Get returns the effective settings.
	Get() (*domain.AppSettings, error)

	// Save persists settings to the config file.
	// API keys are only written when non-empty.
	Save(settings *domain.AppSettings) error

	// SetEmbeddingProvider configures the embedding provider.
	// An empty model selects the provider default.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetLLMProvider configures the answer generation provider.
	// An empty model selects the provider default.
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// Validate checks the effective settings can build a working pipeline.
	Validate() error
}
