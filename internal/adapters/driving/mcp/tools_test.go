package mcp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func newTestServer(t *testing.T, query *mockQueryService, ingest *mockIngestService) *Server {
	t.Helper()
	server, err := NewServer(&Ports{Query: query, Ingest: ingest})
	require.NoError(t, err)
	return server
}

func TestServer_handleAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("returns grounded answer", func(t *testing.T) {
		query := &mockQueryService{answer: &domain.Answer{
			Text:     "Paris",
			Context:  []string{"The capital of France is Paris."},
			Sources:  []string{"france.txt"},
			Grounded: true,
		}}
		server := newTestServer(t, query, &mockIngestService{})

		_, output, err := server.handleAsk(ctx, nil, AskInput{Question: "Capital of France?", TopK: 2})

		require.NoError(t, err)
		assert.Equal(t, "Paris", output.Answer)
		assert.Equal(t, []string{"The capital of France is Paris."}, output.Context)
		assert.Equal(t, []string{"france.txt"}, output.Sources)
		assert.True(t, output.Grounded)
		assert.Equal(t, "Capital of France?", query.question)
		assert.Equal(t, 2, query.opts.TopK)
	})

	t.Run("no context gives empty lists", func(t *testing.T) {
		query := &mockQueryService{answer: &domain.Answer{Text: domain.NoRelevantInformationAnswer}}
		server := newTestServer(t, query, &mockIngestService{})

		_, output, err := server.handleAsk(ctx, nil, AskInput{Question: "anything"})

		require.NoError(t, err)
		assert.Equal(t, domain.NoRelevantInformationAnswer, output.Answer)
		assert.NotNil(t, output.Context)
		assert.NotNil(t, output.Sources)
		assert.False(t, output.Grounded)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		server := newTestServer(t, &mockQueryService{}, &mockIngestService{})

		_, _, err := server.handleAsk(ctx, nil, AskInput{Question: "  "})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		_, _, err = server.handleAsk(ctx, nil, AskInput{Question: "q", TopK: -1})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("returns error on query failure", func(t *testing.T) {
		query := &mockQueryService{err: errors.New("generation failed")}
		server := newTestServer(t, query, &mockIngestService{})

		_, _, err := server.handleAsk(ctx, nil, AskInput{Question: "q"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "generation failed")
	})
}

func TestServer_handleIngestFile(t *testing.T) {
	ctx := context.Background()

	writeFile := func(t *testing.T, name, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
		return path
	}

	t.Run("ingests the file", func(t *testing.T) {
		ingest := &mockIngestService{report: &domain.IngestReport{
			BatchID: "batch-1", DocumentsIndexed: 1, ChunksIndexed: 2,
		}}
		server := newTestServer(t, &mockQueryService{}, ingest)
		path := writeFile(t, "france.txt", "The capital of France is Paris.")

		_, output, err := server.handleIngestFile(ctx, nil, IngestFileInput{Path: path})

		require.NoError(t, err)
		assert.Equal(t, "batch-1", output.BatchID)
		assert.Equal(t, "france.txt", output.Filename)
		assert.Equal(t, 2, output.ChunksIndexed)
		require.Len(t, ingest.docs, 1)
		assert.Equal(t, "france.txt", ingest.docs[0].Filename)
		assert.Equal(t, domain.MediaTypePlainText, ingest.docs[0].MediaType)
		assert.Equal(t, "The capital of France is Paris.", string(ingest.docs[0].Content))
	})

	t.Run("media type override", func(t *testing.T) {
		ingest := &mockIngestService{report: &domain.IngestReport{DocumentsIndexed: 1, ChunksIndexed: 1}}
		server := newTestServer(t, &mockQueryService{}, ingest)
		path := writeFile(t, "notes", "caf\xe9")

		_, _, err := server.handleIngestFile(ctx, nil, IngestFileInput{Path: path, MediaType: "text/plain; charset=latin1"})

		require.NoError(t, err)
		assert.Equal(t, "text/plain; charset=latin1", ingest.docs[0].MediaType)
	})

	t.Run("missing path", func(t *testing.T) {
		server := newTestServer(t, &mockQueryService{}, &mockIngestService{})

		_, _, err := server.handleIngestFile(ctx, nil, IngestFileInput{})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unreadable file", func(t *testing.T) {
		ingest := &mockIngestService{}
		server := newTestServer(t, &mockQueryService{}, ingest)

		_, _, err := server.handleIngestFile(ctx, nil, IngestFileInput{Path: filepath.Join(t.TempDir(), "missing.txt")})

		assert.Error(t, err)
		assert.Nil(t, ingest.docs)
	})

	t.Run("empty batch includes the skip reason", func(t *testing.T) {
		ingest := &mockIngestService{
			report: &domain.IngestReport{Skipped: []domain.SkippedDocument{{Filename: "empty.txt", Reason: "no extractable text"}}},
			err:    domain.ErrEmptyBatch,
		}
		server := newTestServer(t, &mockQueryService{}, ingest)
		path := writeFile(t, "empty.txt", "")

		_, _, err := server.handleIngestFile(ctx, nil, IngestFileInput{Path: path})

		assert.ErrorIs(t, err, domain.ErrEmptyBatch)
		assert.Contains(t, err.Error(), "no extractable text")
	})
}
