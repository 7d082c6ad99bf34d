package httpapi

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// mockIngestService records the documents it was asked to ingest.
type mockIngestService struct {
	report *domain.IngestReport
	err    error
	docs   []domain.Document
	calls  int
}

func (m *mockIngestService) Ingest(_ context.Context, docs []domain.Document) (*domain.IngestReport, error) {
	m.calls++
	m.docs = docs
	return m.report, m.err
}

// mockQueryService records the question it was asked.
type mockQueryService struct {
	answer   *domain.Answer
	err      error
	question string
	opts     domain.QueryOptions
	calls    int
}

func (m *mockQueryService) Answer(_ context.Context, question string, opts domain.QueryOptions) (*domain.Answer, error) {
	m.calls++
	m.question = question
	m.opts = opts
	return m.answer, m.err
}

// mockChecker supports the listed base media types.
type mockChecker struct {
	supported map[string]bool
}

func (m *mockChecker) Supports(doc domain.Document) bool {
	return m.supported[doc.BaseMediaType()]
}
