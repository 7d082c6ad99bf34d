package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/watcher"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

// MockIngestService implements driving.IngestService for CLI tests.
type MockIngestService struct {
	IngestFunc func(ctx context.Context, docs []domain.Document) (*domain.IngestReport, error)
	Received   []domain.Document
}

func (m *MockIngestService) Ingest(ctx context.Context, docs []domain.Document) (*domain.IngestReport, error) {
	m.Received = append(m.Received, docs...)
	if m.IngestFunc != nil {
		return m.IngestFunc(ctx, docs)
	}
	return &domain.IngestReport{BatchID: "batch-1", DocumentsIndexed: len(docs), ChunksIndexed: len(docs)}, nil
}

// MockQueryService implements driving.QueryService for CLI tests.
type MockQueryService struct {
	AnswerFunc func(ctx context.Context, question string, opts domain.QueryOptions) (*domain.Answer, error)
	Question   string
	Opts       domain.QueryOptions
}

func (m *MockQueryService) Answer(
	ctx context.Context, question string, opts domain.QueryOptions,
) (*domain.Answer, error) {
	m.Question = question
	m.Opts = opts
	if m.AnswerFunc != nil {
		return m.AnswerFunc(ctx, question, opts)
	}
	return &domain.Answer{Text: domain.NoRelevantInformationAnswer}, nil
}

// MockSettingsService implements driving.SettingsService for CLI tests.
type MockSettingsService struct {
	Settings    domain.AppSettings
	ValidateErr error
}

func newMockSettings() *MockSettingsService {
	return &MockSettingsService{Settings: domain.DefaultAppSettings()}
}

func (m *MockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.Settings
	return &s, nil
}

func (m *MockSettingsService) Save(settings *domain.AppSettings) error {
	m.Settings = *settings
	return nil
}

func (m *MockSettingsService) SetEmbeddingProvider(p domain.AIProvider, model, apiKey string) error {
	m.Settings.Embedding.Provider = p
	m.Settings.Embedding.Model = model
	m.Settings.Embedding.APIKey = apiKey
	return nil
}

func (m *MockSettingsService) SetLLMProvider(p domain.AIProvider, model, apiKey string) error {
	m.Settings.LLM.Provider = p
	m.Settings.LLM.Model = model
	m.Settings.LLM.APIKey = apiKey
	return nil
}

func (m *MockSettingsService) Validate() error {
	return m.ValidateErr
}

// withPipeline installs a factory returning the given services for the test.
func withPipeline(t *testing.T, ingest *MockIngestService, query *MockQueryService) {
	t.Helper()
	p := &Pipeline{}
	if ingest != nil {
		p.Ingest = ingest
	}
	if query != nil {
		p.Query = query
	}
	SetPipelineFactory(func(context.Context) (*Pipeline, error) { return p, nil })
	t.Cleanup(func() { SetPipelineFactory(nil) })
}

// withSettings installs a settings service for the test.
func withSettings(t *testing.T, s *MockSettingsService) {
	t.Helper()
	SetSettingsService(s)
	t.Cleanup(func() { SetSettingsService(nil) })
}

// executeCommand runs the root command with args and stdin, returning its output.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	return executeCommandContext(t, context.Background(), stdin, args...)
}

// executeCommandContext is executeCommand with a caller-supplied context.
func executeCommandContext(t *testing.T, ctx context.Context, stdin string, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
		resetFlags()
	})

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

// resetFlags restores flag variables, which cobra keeps between executions.
func resetFlags() {
	ingestJSON = false
	askTopK = 0
	askJSON = false
	askShowContext = false
	serveAddr = ""
	serveGops = false
	embeddingFlags = providerFlags{}
	llmFlags = providerFlags{}
	watchDebounce = watcher.DefaultDebounce
	watchScan = true
	verbose = false
	logger.SetTimestamps(false)
	_ = mcpServeCmd.Flags().Set("port", "0")
	resetHelp(rootCmd)
}

func resetHelp(cmd *cobra.Command) {
	if f := cmd.Flags().Lookup("help"); f != nil {
		_ = f.Value.Set("false")
	}
	for _, c := range cmd.Commands() {
		resetHelp(c)
	}
}

