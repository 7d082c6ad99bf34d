package services

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedDims       = "embedding.dimensions"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyLLMMaxTokens    = "llm.max_tokens"
	keyLLMTemperature  = "llm.temperature"
	keyStoreKind       = "vector_store.kind"
	keyStoreCollection = "vector_store.collection"
	keyStoreMetric     = "vector_store.metric"
	keyStoreDataDir    = "vector_store.data_dir"
	keyQdrantURL       = "vector_store.qdrant_url"
	keyQdrantAPIKey    = "vector_store.qdrant_api_key"
	keyPgvectorDSN     = "vector_store.pgvector_dsn"
	keyTopK            = "retrieval.top_k"
	keyChunkSize       = "retrieval.chunk_size"
	keyChunkOverlap    = "retrieval.chunk_overlap"
	keyEmbedBatch      = "retrieval.embed_batch_size"
	keyUpsertBatch     = "retrieval.upsert_batch_size"
	keyCallTimeout     = "resilience.call_timeout"
	keyMaxRetries      = "resilience.max_retries"
	keyRateLimit       = "resilience.rate_limit"
	keyServerAddr      = "server.addr"
)

// Environment variables that override the config file.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	EnvOpenAIAPIKey      = "OPENAI_API_KEY"
	EnvAnthropicAPIKey   = "ANTHROPIC_API_KEY"
	EnvGoogleAPIKey      = "GOOGLE_API_KEY"
	EnvEmbeddingProvider = "DOCQA_EMBEDDING_PROVIDER"
	EnvEmbeddingModel    = "DOCQA_EMBEDDING_MODEL"
	EnvEmbeddingBaseURL  = "DOCQA_EMBEDDING_BASE_URL"
	EnvLLMProvider       = "DOCQA_LLM_PROVIDER"
	EnvLLMModel          = "DOCQA_LLM_MODEL"
	EnvLLMBaseURL        = "DOCQA_LLM_BASE_URL"
	EnvVectorStore       = "DOCQA_VECTOR_STORE"
	EnvCollection        = "DOCQA_COLLECTION"
	EnvMetric            = "DOCQA_METRIC"
	EnvQdrantURL         = "DOCQA_QDRANT_URL"
	EnvQdrantAPIKey      = "DOCQA_QDRANT_API_KEY"
	EnvPgvectorDSN       = "DOCQA_PGVECTOR_DSN"
	EnvDataDir           = "DOCQA_DATA_DIR"
	EnvTopK              = "DOCQA_TOP_K"
	EnvChunkSize         = "DOCQA_CHUNK_SIZE"
	EnvChunkOverlap      = "DOCQA_CHUNK_OVERLAP"
	EnvCallTimeout       = "DOCQA_CALL_TIMEOUT"
	EnvMaxRetries        = "DOCQA_MAX_RETRIES"
	EnvRateLimit         = "DOCQA_RATE_LIMIT"
	EnvAddr              = "DOCQA_ADDR"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
// The aiValidator parameter is optional (can be nil).
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		lookupEnv:   os.LookupEnv,
	}
}

// SetEnvLookup replaces the environment lookup. Tests use it to inject variables.
func (s *SettingsService) SetEnvLookup(lookup func(string) (string, bool)) {
	s.lookupEnv = lookup
}

// Get retrieves the effective application settings.
// Stored values override defaults and environment variables override both.
// Invalid values are ignored with a warning.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:      s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			Dimensions: s.getInt(keyEmbedDims, 0),
		},
		LLM: domain.LLMSettings{
			Provider:    s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:       s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:     s.configStore.GetString(keyLLMBaseURL), // No default - empty is valid for cloud providers
			APIKey:      s.configStore.GetString(keyLLMAPIKey),
			MaxTokens:   s.getInt(keyLLMMaxTokens, defaults.LLM.MaxTokens),
			Temperature: s.getFloat(keyLLMTemperature, defaults.LLM.Temperature),
		},
		VectorStore: domain.VectorStoreSettings{
			Kind:         s.getStoreKind(keyStoreKind, defaults.VectorStore.Kind),
			Collection:   s.getString(keyStoreCollection, defaults.VectorStore.Collection),
			Metric:       s.getMetric(keyStoreMetric, defaults.VectorStore.Metric),
			DataDir:      s.configStore.GetString(keyStoreDataDir),
			QdrantURL:    s.configStore.GetString(keyQdrantURL),
			QdrantAPIKey: s.configStore.GetString(keyQdrantAPIKey),
			PgvectorDSN:  s.configStore.GetString(keyPgvectorDSN),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:            s.getInt(keyTopK, defaults.Retrieval.TopK),
			ChunkSize:       s.getInt(keyChunkSize, defaults.Retrieval.ChunkSize),
			ChunkOverlap:    s.getInt(keyChunkOverlap, defaults.Retrieval.ChunkOverlap),
			EmbedBatchSize:  s.getInt(keyEmbedBatch, defaults.Retrieval.EmbedBatchSize),
			UpsertBatchSize: s.getInt(keyUpsertBatch, defaults.Retrieval.UpsertBatchSize),
		},
		Resilience: domain.ResilienceSettings{
			CallTimeout: s.getDuration(keyCallTimeout, defaults.Resilience.CallTimeout),
			MaxRetries:  s.getInt(keyMaxRetries, defaults.Resilience.MaxRetries),
			RateLimit:   s.getFloat(keyRateLimit, defaults.Resilience.RateLimit),
		},
		Server: domain.ServerSettings{
			Addr: s.getString(keyServerAddr, defaults.Server.Addr),
		},
	}

	s.applyEnv(settings)
	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMMaxTokens, settings.LLM.MaxTokens},
		{keyLLMTemperature, settings.LLM.Temperature},
		{keyStoreKind, settings.VectorStore.Kind.String()},
		{keyStoreCollection, settings.VectorStore.Collection},
		{keyStoreMetric, settings.VectorStore.Metric.String()},
		{keyTopK, settings.Retrieval.TopK},
		{keyChunkSize, settings.Retrieval.ChunkSize},
		{keyChunkOverlap, settings.Retrieval.ChunkOverlap},
		{keyEmbedBatch, settings.Retrieval.EmbedBatchSize},
		{keyUpsertBatch, settings.Retrieval.UpsertBatchSize},
		{keyCallTimeout, settings.Resilience.CallTimeout.String()},
		{keyMaxRetries, settings.Resilience.MaxRetries},
		{keyRateLimit, settings.Resilience.RateLimit},
		{keyServerAddr, settings.Server.Addr},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// Secrets and optional values are only written when set
	optional := []struct {
		key   string
		value string
	}{
		{keyEmbedAPIKey, settings.Embedding.APIKey},
		{keyLLMAPIKey, settings.LLM.APIKey},
		{keyStoreDataDir, settings.VectorStore.DataDir},
		{keyQdrantURL, settings.VectorStore.QdrantURL},
		{keyQdrantAPIKey, settings.VectorStore.QdrantAPIKey},
		{keyPgvectorDSN, settings.VectorStore.PgvectorDSN},
	}
	for _, v := range optional {
		if v.value == "" {
			continue
		}
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	if settings.Embedding.Dimensions > 0 {
		if err := s.configStore.Set(keyEmbedDims, settings.Embedding.Dimensions); err != nil {
			return fmt.Errorf("save %s: %w", keyEmbedDims, err)
		}
	}

	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if !provider.SupportsEmbeddings() {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else if defaultModel, ok := domain.DefaultEmbeddingModels()[provider]; ok {
		settings.Embedding.Model = defaultModel
	}

	// Set base URL based on provider type
	if provider.IsLocal() {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = domain.DefaultOllamaBaseURL
		}
	} else {
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey

	if s.aiValidator != nil {
		if err := s.aiValidator.ValidateEmbedding(&settings.Embedding); err != nil {
			return err
		}
	}

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.LLM.Model = model
	} else if defaultModel, ok := domain.DefaultLLMModels()[provider]; ok {
		settings.LLM.Model = defaultModel
	}

	// Set base URL based on provider type
	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = domain.DefaultOllamaBaseURL
		}
	} else {
		settings.LLM.BaseURL = ""
	}

	settings.LLM.APIKey = apiKey

	if s.aiValidator != nil {
		if err := s.aiValidator.ValidateLLM(&settings.LLM); err != nil {
			return err
		}
	}

	return s.Save(settings)
}

// Validate checks the effective settings can build a working pipeline.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %q is not configured",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("%w: LLM provider %q is not configured",
			domain.ErrLLMUnavailable, settings.LLM.Provider)
	}
	if err := settings.Retrieval.Validate(); err != nil {
		return err
	}

	switch settings.VectorStore.Kind {
	case domain.VectorStoreQdrant:
		if settings.VectorStore.QdrantURL == "" {
			return fmt.Errorf("%w: qdrant vector store requires %s", domain.ErrInvalidInput, EnvQdrantURL)
		}
	case domain.VectorStorePgvector:
		if settings.VectorStore.PgvectorDSN == "" {
			return fmt.Errorf("%w: pgvector vector store requires %s", domain.ErrInvalidInput, EnvPgvectorDSN)
		}
	}

	return nil
}

// applyEnv overlays environment variables on top of the stored settings.
func (s *SettingsService) applyEnv(settings *domain.AppSettings) {
	if v, ok := s.env(EnvEmbeddingProvider); ok {
		if p := domain.AIProvider(strings.ToLower(v)); p.IsValid() {
			settings.Embedding.Provider = p
			if _, set := s.env(EnvEmbeddingModel); !set && s.configStore.GetString(keyEmbedModel) == "" {
				settings.Embedding.Model = domain.DefaultEmbeddingModels()[p]
			}
		} else {
			logger.Warn("Ignoring %s=%q: unknown provider", EnvEmbeddingProvider, v)
		}
	}
	if v, ok := s.env(EnvLLMProvider); ok {
		if p := domain.AIProvider(strings.ToLower(v)); p.IsValid() {
			settings.LLM.Provider = p
			if _, set := s.env(EnvLLMModel); !set && s.configStore.GetString(keyLLMModel) == "" {
				settings.LLM.Model = domain.DefaultLLMModels()[p]
			}
		} else {
			logger.Warn("Ignoring %s=%q: unknown provider", EnvLLMProvider, v)
		}
	}
	s.envString(EnvEmbeddingModel, &settings.Embedding.Model)
	s.envString(EnvEmbeddingBaseURL, &settings.Embedding.BaseURL)
	s.envString(EnvLLMModel, &settings.LLM.Model)
	s.envString(EnvLLMBaseURL, &settings.LLM.BaseURL)

	// Provider credentials follow the provider they belong to
	if v, ok := s.env(EnvOpenAIAPIKey); ok {
		if settings.Embedding.Provider == domain.AIProviderOpenAI {
			settings.Embedding.APIKey = v
		}
		if settings.LLM.Provider == domain.AIProviderOpenAI {
			settings.LLM.APIKey = v
		}
	}
	if v, ok := s.env(EnvAnthropicAPIKey); ok && settings.LLM.Provider == domain.AIProviderAnthropic {
		settings.LLM.APIKey = v
	}
	if v, ok := s.env(EnvGoogleAPIKey); ok {
		if settings.Embedding.Provider == domain.AIProviderGemini {
			settings.Embedding.APIKey = v
		}
		if settings.LLM.Provider == domain.AIProviderGemini {
			settings.LLM.APIKey = v
		}
	}

	if v, ok := s.env(EnvVectorStore); ok {
		if k := domain.VectorStoreKind(strings.ToLower(v)); k.IsValid() {
			settings.VectorStore.Kind = k
		} else {
			logger.Warn("Ignoring %s=%q: unknown vector store", EnvVectorStore, v)
		}
	}
	if v, ok := s.env(EnvMetric); ok {
		if m, err := domain.ParseMetric(v); err == nil {
			settings.VectorStore.Metric = m
		} else {
			logger.Warn("Ignoring %s: %v", EnvMetric, err)
		}
	}
	s.envString(EnvCollection, &settings.VectorStore.Collection)
	s.envString(EnvDataDir, &settings.VectorStore.DataDir)
	s.envString(EnvQdrantURL, &settings.VectorStore.QdrantURL)
	s.envString(EnvQdrantAPIKey, &settings.VectorStore.QdrantAPIKey)
	s.envString(EnvPgvectorDSN, &settings.VectorStore.PgvectorDSN)

	s.envInt(EnvTopK, &settings.Retrieval.TopK)
	s.envInt(EnvChunkSize, &settings.Retrieval.ChunkSize)
	s.envInt(EnvChunkOverlap, &settings.Retrieval.ChunkOverlap)
	s.envInt(EnvMaxRetries, &settings.Resilience.MaxRetries)

	if v, ok := s.env(EnvCallTimeout); ok {
		if d, err := parseDuration(v); err == nil {
			settings.Resilience.CallTimeout = d
		} else {
			logger.Warn("Ignoring %s=%q: %v", EnvCallTimeout, v, err)
		}
	}
	if v, ok := s.env(EnvRateLimit); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			settings.Resilience.RateLimit = f
		} else {
			logger.Warn("Ignoring %s=%q: not a non-negative number", EnvRateLimit, v)
		}
	}

	s.envString(EnvAddr, &settings.Server.Addr)
}

// env returns a non-empty environment variable.
func (s *SettingsService) env(name string) (string, bool) {
	if s.lookupEnv == nil {
		return "", false
	}
	v, ok := s.lookupEnv(name)
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (s *SettingsService) envString(name string, dst *string) {
	if v, ok := s.env(name); ok {
		*dst = v
	}
}

func (s *SettingsService) envInt(name string, dst *int) {
	v, ok := s.env(name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		logger.Warn("Ignoring %s=%q: not a non-negative integer", name, v)
		return
	}
	*dst = n
}

// Helper methods for reading config with defaults

func (s *SettingsService) getString(key, defaultVal string) string {
	if v := s.configStore.GetString(key); v != "" {
		return v
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	v := s.configStore.GetInt(key)
	if v < 0 {
		logger.Warn("Ignoring %s=%d: must not be negative", key, v)
		return defaultVal
	}
	return v
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val, ok := s.configStore.Get(key)
	if !ok {
		return defaultVal
	}
	switch v := val.(type) {
	case string:
		d, err := parseDuration(v)
		if err != nil {
			logger.Warn("Ignoring %s=%q: %v", key, v, err)
			return defaultVal
		}
		return d
	default:
		// Bare numbers are seconds
		if secs := s.configStore.GetInt(key); secs > 0 {
			return time.Duration(secs) * time.Second
		}
		return defaultVal
	}
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	v := s.configStore.GetString(key)
	if v == "" {
		return defaultVal
	}
	provider := domain.AIProvider(v)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getStoreKind(key string, defaultVal domain.VectorStoreKind) domain.VectorStoreKind {
	kind := domain.VectorStoreKind(s.configStore.GetString(key))
	if !kind.IsValid() {
		return defaultVal
	}
	return kind
}

func (s *SettingsService) getMetric(key string, defaultVal domain.Metric) domain.Metric {
	v := s.configStore.GetString(key)
	if v == "" {
		return defaultVal
	}
	m, err := domain.ParseMetric(v)
	if err != nil {
		return defaultVal
	}
	return m
}

// parseDuration accepts Go durations ("45s", "2m") and bare seconds ("45").
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("duration must be positive")
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive")
	}
	return d, nil
}
