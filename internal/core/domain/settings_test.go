package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAIProvider_IsValid tests provider recognition
func TestAIProvider_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		provider AIProvider
		expected bool
	}{
		{"ollama is valid", AIProviderOllama, true},
		{"openai is valid", AIProviderOpenAI, true},
		{"anthropic is valid", AIProviderAnthropic, true},
		{"gemini is valid", AIProviderGemini, true},
		{"empty is invalid", AIProvider(""), false},
		{"unknown is invalid", AIProvider("watson"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.provider.IsValid())
		})
	}
}

func TestAIProvider_Description(t *testing.T) {
	assert.Equal(t, "Ollama (local)", AIProviderOllama.Description())
	assert.Equal(t, "Google Gemini (cloud)", AIProviderGemini.Description())
	assert.Equal(t, "Unknown", AIProvider("x").Description())
}

func TestAIProvider_IsLocal(t *testing.T) {
	assert.True(t, AIProviderOllama.IsLocal())
	assert.False(t, AIProviderOpenAI.IsLocal())
	assert.False(t, AIProviderAnthropic.IsLocal())
}

func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	assert.True(t, EmbeddingSettings{Provider: AIProviderOllama}.IsConfigured())
	assert.False(t, EmbeddingSettings{Provider: AIProviderOpenAI}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "k"}.IsConfigured())
	assert.False(t, EmbeddingSettings{Provider: AIProviderAnthropic, APIKey: "k"}.IsConfigured(),
		"anthropic has no embedding endpoint")
	assert.False(t, EmbeddingSettings{Provider: AIProviderGemini}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: AIProviderGemini, APIKey: "k"}.IsConfigured())
	assert.False(t, EmbeddingSettings{}.IsConfigured())
}

func TestLLMSettings_IsConfigured(t *testing.T) {
	assert.True(t, LLMSettings{Provider: AIProviderOllama}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderAnthropic}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderAnthropic, APIKey: "k"}.IsConfigured())
}

func TestVectorStoreKind_IsValid(t *testing.T) {
	for _, k := range []VectorStoreKind{VectorStoreMemory, VectorStoreSQLite, VectorStoreQdrant, VectorStorePgvector} {
		assert.True(t, k.IsValid(), k.String())
	}
	assert.False(t, VectorStoreKind("pinecone").IsValid())
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, DefaultCollection, s.VectorStore.Collection)
	assert.Equal(t, MetricCosine, s.VectorStore.Metric)
	assert.Equal(t, VectorStoreSQLite, s.VectorStore.Kind)
	assert.Equal(t, 3, s.Retrieval.TopK)
	assert.Equal(t, 1000, s.Retrieval.ChunkSize)
	assert.Equal(t, 200, s.Retrieval.ChunkOverlap)
	assert.Equal(t, 100, s.Retrieval.UpsertBatchSize)
	require.NoError(t, s.Retrieval.Validate())
	assert.True(t, s.Embedding.IsConfigured())
	assert.True(t, s.LLM.IsConfigured())
}

func TestRetrievalSettings_Validate(t *testing.T) {
	base := DefaultAppSettings().Retrieval

	tests := []struct {
		name   string
		mutate func(*RetrievalSettings)
	}{
		{"zero top_k", func(r *RetrievalSettings) { r.TopK = 0 }},
		{"zero chunk size", func(r *RetrievalSettings) { r.ChunkSize = 0 }},
		{"negative overlap", func(r *RetrievalSettings) { r.ChunkOverlap = -1 }},
		{"overlap equals size", func(r *RetrievalSettings) { r.ChunkOverlap = r.ChunkSize }},
		{"zero upsert batch", func(r *RetrievalSettings) { r.UpsertBatchSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := base
			tt.mutate(&r)
			assert.ErrorIs(t, r.Validate(), ErrInvalidInput)
		})
	}
}

func TestEmbeddingDimensions(t *testing.T) {
	dims := EmbeddingDimensions()
	assert.Equal(t, 384, dims["all-minilm"])
	assert.Equal(t, 768, dims["nomic-embed-text"])
	assert.Equal(t, 1536, dims["text-embedding-3-small"])
	assert.Equal(t, 768, dims["text-embedding-004"])
}

func TestProviderLists(t *testing.T) {
	for _, p := range AllEmbeddingProviders() {
		assert.True(t, p.SupportsEmbeddings(), p)
		assert.Contains(t, DefaultEmbeddingModels(), p)
	}
	for _, p := range AllLLMProviders() {
		assert.True(t, p.IsValid(), p)
		assert.Contains(t, DefaultLLMModels(), p)
	}
	assert.NotContains(t, AllEmbeddingProviders(), AIProviderAnthropic)
	assert.Contains(t, AllEmbeddingProviders(), AIProviderGemini)
	assert.Contains(t, AllLLMProviders(), AIProviderGemini)
}
