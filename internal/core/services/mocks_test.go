package services

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// --- Mock implementations ---

// bagOfWordsDims is the vector size of the bag-of-words embedder.
const bagOfWordsDims = 256

// bagOfWordsEmbedder implements driven.EmbeddingService deterministically.
// Each lower-cased word increments one hashed component, so texts sharing
// words are close under cosine similarity.
type bagOfWordsEmbedder struct {
	mu         sync.Mutex
	batchSizes []int
	embedErr   error
	batchErr   error
	dims       int
	model      string
}

func embedWords(text string) []float32 {
	v := make([]float32, bagOfWordsDims)
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		v[h.Sum32()%bagOfWordsDims]++
	}
	return v
}

func (m *bagOfWordsEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return embedWords(text), nil
}

func (m *bagOfWordsEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batchSizes = append(m.batchSizes, len(texts))
	m.mu.Unlock()

	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = embedWords(text)
	}
	return out, nil
}

func (m *bagOfWordsEmbedder) Dimensions() int {
	if m.dims > 0 {
		return m.dims
	}
	return bagOfWordsDims
}

func (m *bagOfWordsEmbedder) ModelName() string {
	if m.model != "" {
		return m.model
	}
	return "bag-of-words"
}

func (m *bagOfWordsEmbedder) Ping(_ context.Context) error {
	return nil
}

func (m *bagOfWordsEmbedder) Close() error {
	return nil
}

// mockGenerator implements driven.GenerationService for testing.
// It answers with the reply, or echoes "Paris" when the prompt mentions it.
type mockGenerator struct {
	reply   string
	err     error
	calls   int
	prompt  string
	options driven.GenerateOptions
}

func (m *mockGenerator) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.calls++
	m.prompt = prompt
	m.options = opts
	if m.err != nil {
		return "", m.err
	}
	if m.reply != "" {
		return m.reply, nil
	}
	if strings.Contains(prompt, "Paris") {
		return " Paris \n", nil
	}
	return "I don't know.", nil
}

func (m *mockGenerator) ModelName() string {
	return "mock-llm"
}

func (m *mockGenerator) Ping(_ context.Context) error {
	return nil
}

func (m *mockGenerator) Close() error {
	return nil
}

// mockVectorStore implements driven.VectorStore for testing.
type mockVectorStore struct {
	matches     []domain.Match
	described   domain.CollectionSpec
	ensureErr   error
	describeErr error
	upsertErr   error
	queryErr    error
	specs       []domain.CollectionSpec
	upserts     [][]domain.IndexedRecord
	queryTopK   int
	queryCalls  int
}

func (m *mockVectorStore) EnsureCollection(_ context.Context, spec domain.CollectionSpec) error {
	m.specs = append(m.specs, spec)
	return m.ensureErr
}

func (m *mockVectorStore) Describe(_ context.Context, name string) (domain.CollectionSpec, error) {
	if m.describeErr != nil {
		return domain.CollectionSpec{}, m.describeErr
	}
	spec := m.described
	spec.Name = name
	return spec, nil
}

func (m *mockVectorStore) Upsert(_ context.Context, _ string, records []domain.IndexedRecord) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts = append(m.upserts, records)
	return nil
}

func (m *mockVectorStore) Query(_ context.Context, _ string, _ []float32, topK int) ([]domain.Match, error) {
	m.queryCalls++
	m.queryTopK = topK
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if topK < len(m.matches) {
		return m.matches[:topK], nil
	}
	return m.matches, nil
}

func (m *mockVectorStore) Close() error {
	return nil
}

// mockPromptStore implements driven.PromptStore for testing.
type mockPromptStore struct {
	templates map[string]string
	err       error
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.templates[name], nil
}

func (m *mockPromptStore) Reload() {}

// Ensure mocks implement the interfaces.
var (
	_ driven.EmbeddingService  = (*bagOfWordsEmbedder)(nil)
	_ driven.GenerationService = (*mockGenerator)(nil)
	_ driven.VectorStore       = (*mockVectorStore)(nil)
	_ driven.PromptStore       = (*mockPromptStore)(nil)
)
