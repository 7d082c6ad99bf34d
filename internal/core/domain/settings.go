package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is the Google Gemini API.
	AIProviderGemini AIProvider = "gemini"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderGemini
}

// IsLocal returns true if the provider runs on the local machine.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// SupportsEmbeddings returns true if the provider can produce embeddings.
func (p AIProvider) SupportsEmbeddings() bool {
	return p != AIProviderAnthropic && p.IsValid()
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGemini:
		return "Google Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// AllEmbeddingProviders returns the providers that can produce embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI, AIProviderGemini}
}

// AllLLMProviders returns the providers that can generate answers.
func AllLLMProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini}
}

// VectorStoreKind selects the vector store backend.
type VectorStoreKind string

// Available vector store backends.
const (
	// VectorStoreMemory keeps vectors in process memory.
	VectorStoreMemory VectorStoreKind = "memory"

	// VectorStoreSQLite persists vectors in a local SQLite database.
	VectorStoreSQLite VectorStoreKind = "sqlite"

	// VectorStoreQdrant talks to a Qdrant server over REST.
	VectorStoreQdrant VectorStoreKind = "qdrant"

	// VectorStorePgvector uses PostgreSQL with the pgvector extension.
	VectorStorePgvector VectorStoreKind = "pgvector"
)

// IsValid returns true if the vector store kind is recognised.
func (k VectorStoreKind) IsValid() bool {
	switch k {
	case VectorStoreMemory, VectorStoreSQLite, VectorStoreQdrant, VectorStorePgvector:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (k VectorStoreKind) String() string {
	return string(k)
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI and Gemini).
	APIKey string

	// Dimensions overrides the model's known dimension when non-zero.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || !e.Provider.SupportsEmbeddings() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// MaxTokens caps the generated answer length.
	MaxTokens int

	// Temperature controls randomness of the answer.
	Temperature float64
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// VectorStoreSettings holds vector store connection configuration.
type VectorStoreSettings struct {
	// Kind selects the backend.
	Kind VectorStoreKind

	// Collection is the collection (index) name.
	Collection string

	// Metric is the similarity metric new collections are created with.
	Metric Metric

	// DataDir is where the sqlite backend keeps its database.
	DataDir string

	// QdrantURL is the Qdrant REST endpoint.
	QdrantURL string

	// QdrantAPIKey authenticates against Qdrant.
	QdrantAPIKey string

	// PgvectorDSN is the PostgreSQL connection string.
	PgvectorDSN string
}

// RetrievalSettings holds chunking and retrieval parameters.
type RetrievalSettings struct {
	// TopK is the default number of chunks retrieved per question.
	TopK int

	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int

	// ChunkOverlap is the overlap between consecutive chunks in characters.
	ChunkOverlap int

	// EmbedBatchSize bounds the texts sent per embedding call.
	EmbedBatchSize int

	// UpsertBatchSize bounds the records sent per upsert call.
	UpsertBatchSize int
}

// Validate checks the retrieval parameters are consistent.
func (r RetrievalSettings) Validate() error {
	if r.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidInput, r.TopK)
	}
	if r.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidInput, r.ChunkSize)
	}
	if r.ChunkOverlap < 0 || r.ChunkOverlap >= r.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be in [0, chunk_size), got %d",
			ErrInvalidInput, r.ChunkOverlap)
	}
	if r.EmbedBatchSize <= 0 || r.UpsertBatchSize <= 0 {
		return fmt.Errorf("%w: batch sizes must be positive", ErrInvalidInput)
	}
	return nil
}

// ResilienceSettings configures how backend calls are guarded.
type ResilienceSettings struct {
	// CallTimeout bounds every backend call.
	CallTimeout time.Duration

	// MaxRetries is the number of retries after a timeout. Zero disables retries.
	MaxRetries int

	// RateLimit is the sustained backend calls per second. Zero disables limiting.
	RateLimit float64
}

// ServerSettings configures the HTTP server.
type ServerSettings struct {
	// Addr is the listen address.
	Addr string
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds LLM provider settings.
	LLM LLMSettings

	// VectorStore holds vector store settings.
	VectorStore VectorStoreSettings

	// Retrieval holds chunking and retrieval settings.
	Retrieval RetrievalSettings

	// Resilience holds backend call guards.
	Resilience ResilienceSettings

	// Server holds HTTP server settings.
	Server ServerSettings
}

// Default values for AppSettings.
const (
	DefaultCollection      = "rag-index"
	DefaultTopK            = 3
	DefaultChunkSize       = 1000
	DefaultChunkOverlap    = 200
	DefaultEmbedBatchSize  = 64
	DefaultUpsertBatchSize = 100
	DefaultCallTimeout     = 60 * time.Second
	DefaultAddr            = ":8000"
	DefaultOllamaBaseURL   = "http://localhost:11434"
)

// DefaultAppSettings returns settings with sensible defaults.
// Both AI providers default to a local Ollama so no credentials are needed.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    DefaultEmbeddingModels()[AIProviderOllama],
		},
		LLM: LLMSettings{
			Provider:  AIProviderOllama,
			Model:     DefaultLLMModels()[AIProviderOllama],
			MaxTokens: 1024,
		},
		VectorStore: VectorStoreSettings{
			Kind:       VectorStoreSQLite,
			Collection: DefaultCollection,
			Metric:     MetricCosine,
		},
		Retrieval: RetrievalSettings{
			TopK:            DefaultTopK,
			ChunkSize:       DefaultChunkSize,
			ChunkOverlap:    DefaultChunkOverlap,
			EmbedBatchSize:  DefaultEmbedBatchSize,
			UpsertBatchSize: DefaultUpsertBatchSize,
		},
		Resilience: ResilienceSettings{
			CallTimeout: DefaultCallTimeout,
		},
		Server: ServerSettings{
			Addr: DefaultAddr,
		},
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderGemini: "text-embedding-004",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderGemini:    "gemini-2.0-flash",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Gemini models
		"text-embedding-004":   768,
		"gemini-embedding-001": 3072,
	}
}
