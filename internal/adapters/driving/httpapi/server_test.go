package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.SetOutput(&bytes.Buffer{})
	os.Exit(m.Run())
}

type uploadFile struct {
	name        string
	contentType string
	content     string
}

func newUploadRequest(t *testing.T, files ...uploadFile) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, uploadField, f.name))
		if f.contentType != "" {
			h.Set("Content-Type", f.contentType)
		}
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload-documents/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func newQueryRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/query/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func newTestServer(t *testing.T, ingest *mockIngestService, query *mockQueryService, opts ...Option) *Server {
	t.Helper()
	s, err := NewServer(ingest, query, opts...)
	require.NoError(t, err)
	return s
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestNewServer_RequiresServices(t *testing.T) {
	_, err := NewServer(nil, &mockQueryService{})
	assert.ErrorIs(t, err, ErrMissingService)

	_, err = NewServer(&mockIngestService{}, nil)
	assert.ErrorIs(t, err, ErrMissingService)
}

func TestRoot(t *testing.T) {
	s := newTestServer(t, &mockIngestService{}, &mockQueryService{})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Welcome to the RAG API"}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &mockIngestService{}, &mockQueryService{})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestUpload_Success(t *testing.T) {
	ingest := &mockIngestService{report: &domain.IngestReport{
		BatchID:          "batch-1",
		DocumentsIndexed: 2,
		ChunksIndexed:    5,
		Skipped:          []domain.SkippedDocument{{Filename: "broken.pdf", Reason: "text extraction failed"}},
	}}
	s := newTestServer(t, ingest, &mockQueryService{})

	rec := serve(s, newUploadRequest(t,
		uploadFile{"a.txt", "text/plain", "France is a country."},
		uploadFile{"b.txt", "text/plain; charset=utf-8", "Paris is the capital."},
		uploadFile{"broken.pdf", "application/pdf", "not a pdf"},
	))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[UploadResponse](t, rec)
	assert.Equal(t, "batch-1", resp.BatchID)
	assert.Equal(t, 2, resp.DocumentsIndexed)
	assert.Equal(t, 5, resp.ChunksIndexed)
	assert.Equal(t, []SkippedResponse{{Filename: "broken.pdf", Reason: "text extraction failed"}}, resp.Skipped)
	assert.Contains(t, resp.Message, "2 documents")

	require.Len(t, ingest.docs, 3)
	assert.Equal(t, "a.txt", ingest.docs[0].Filename)
	assert.Equal(t, "text/plain", ingest.docs[0].MediaType)
	assert.Equal(t, "France is a country.", string(ingest.docs[0].Content))
	assert.Equal(t, "text/plain; charset=utf-8", ingest.docs[1].MediaType)
}

func TestUpload_SuccessHasEmptySkippedList(t *testing.T) {
	ingest := &mockIngestService{report: &domain.IngestReport{DocumentsIndexed: 1, ChunksIndexed: 1}}
	s := newTestServer(t, ingest, &mockQueryService{})

	rec := serve(s, newUploadRequest(t, uploadFile{"a.txt", "text/plain", "x"}))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"skipped":[]`)
}

func TestUpload_UnsupportedMediaTypeIsSkipped(t *testing.T) {
	ingest := &mockIngestService{report: &domain.IngestReport{DocumentsIndexed: 1, ChunksIndexed: 2}}
	checker := &mockChecker{supported: map[string]bool{"text/plain": true, "application/pdf": true}}
	s := newTestServer(t, ingest, &mockQueryService{}, WithMediaTypeChecker(checker))

	rec := serve(s, newUploadRequest(t,
		uploadFile{"a.txt", "text/plain", "ok"},
		uploadFile{"photo.png", "image/png", "\x89PNG"},
	))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, ingest.docs, 1)
	assert.Equal(t, "a.txt", ingest.docs[0].Filename)

	resp := decode[UploadResponse](t, rec)
	require.Len(t, resp.Skipped, 1)
	assert.Equal(t, "photo.png", resp.Skipped[0].Filename)
	assert.Contains(t, resp.Skipped[0].Reason, "image/png")
}

func TestUpload_OnlyUnsupportedMediaTypes(t *testing.T) {
	ingest := &mockIngestService{}
	checker := &mockChecker{supported: map[string]bool{"text/plain": true}}
	s := newTestServer(t, ingest, &mockQueryService{}, WithMediaTypeChecker(checker))

	rec := serve(s, newUploadRequest(t, uploadFile{"photo.png", "image/png", "\x89PNG"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Contains(t, resp.Message, "image/png")
	assert.Len(t, resp.Skipped, 1)
	assert.Zero(t, ingest.calls)
}

func TestUpload_BadRequests(t *testing.T) {
	s := newTestServer(t, &mockIngestService{}, &mockQueryService{})

	t.Run("not multipart", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/upload-documents/", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		rec := serve(s, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no files", func(t *testing.T) {
		rec := serve(s, newUploadRequest(t))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "no files uploaded", decode[ErrorResponse](t, rec).Message)
	})
}

func TestUpload_TooLarge(t *testing.T) {
	ingest := &mockIngestService{report: &domain.IngestReport{}}
	s := newTestServer(t, ingest, &mockQueryService{}, WithMaxUploadBytes(512))

	rec := serve(s, newUploadRequest(t, uploadFile{"big.txt", "text/plain", strings.Repeat("x", 4096)}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, ingest.calls)
}

func TestUpload_Failures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "empty batch",
			err:        domain.ErrEmptyBatch,
			wantStatus: http.StatusUnprocessableEntity,
			wantMsg:    msgNothingIndexed,
		},
		{
			name:       "backend timeout",
			err:        fmt.Errorf("%w: %w", domain.ErrEmbeddingBackend, domain.ErrBackendTimeout),
			wantStatus: http.StatusGatewayTimeout,
			wantMsg:    msgBackendTimeout,
		},
		{
			name:       "vector store failure",
			err:        fmt.Errorf("%w: connection refused to 10.0.0.1", domain.ErrVectorStore),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    msgIndexFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ingest := &mockIngestService{
				report: &domain.IngestReport{Skipped: []domain.SkippedDocument{{Filename: "empty.txt", Reason: "no extractable text"}}},
				err:    tt.err,
			}
			s := newTestServer(t, ingest, &mockQueryService{})

			rec := serve(s, newUploadRequest(t, uploadFile{"empty.txt", "text/plain", ""}))

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.wantMsg, resp.Message)
			assert.Len(t, resp.Skipped, 1)
			assert.NotContains(t, rec.Body.String(), "10.0.0.1")
		})
	}
}

func TestQuery_Success(t *testing.T) {
	query := &mockQueryService{answer: &domain.Answer{
		Text:     "Paris",
		Context:  []string{"The capital of France is Paris."},
		Sources:  []string{"france.txt"},
		Grounded: true,
	}}
	s := newTestServer(t, &mockIngestService{}, query)

	rec := serve(s, newQueryRequest(`{"query":"What is the capital of France?","top_k":1}`))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[QueryResponse](t, rec)
	assert.Equal(t, "Paris", resp.Answer)
	assert.Equal(t, []string{"The capital of France is Paris."}, resp.Context)
	assert.Equal(t, []string{"france.txt"}, resp.Sources)
	assert.Equal(t, "What is the capital of France?", query.question)
	assert.Equal(t, 1, query.opts.TopK)
}

func TestQuery_TextAlias(t *testing.T) {
	query := &mockQueryService{answer: &domain.Answer{Text: "ok"}}
	s := newTestServer(t, &mockIngestService{}, query)

	rec := serve(s, newQueryRequest(`{"text":"hello?"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello?", query.question)
	assert.Zero(t, query.opts.TopK)
}

func TestQuery_NoContext(t *testing.T) {
	query := &mockQueryService{answer: &domain.Answer{Text: domain.NoRelevantInformationAnswer}}
	s := newTestServer(t, &mockIngestService{}, query)

	rec := serve(s, newQueryRequest(`{"query":"anything"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		fmt.Sprintf(`{"answer":%q,"context":[],"sources":[]}`, domain.NoRelevantInformationAnswer),
		rec.Body.String())
}

func TestQuery_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"query":`},
		{"missing query", `{}`},
		{"blank query", `{"query":"   "}`},
		{"negative top_k", `{"query":"q","top_k":-1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := &mockQueryService{}
			s := newTestServer(t, &mockIngestService{}, query)

			rec := serve(s, newQueryRequest(tt.body))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Zero(t, query.calls)
		})
	}
}

func TestQuery_Failures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "retrieval failure",
			err:        fmt.Errorf("%w: %w", domain.ErrRetrieval, errors.New("secret upstream detail")),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    msgAnswerFailed,
		},
		{
			name:       "generation failure",
			err:        fmt.Errorf("%w: %w", domain.ErrGeneration, errors.New("secret upstream detail")),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    msgAnswerFailed,
		},
		{
			name:       "generation timeout",
			err:        fmt.Errorf("%w: %w: %w", domain.ErrGeneration, domain.ErrBackendTimeout, context.DeadlineExceeded),
			wantStatus: http.StatusGatewayTimeout,
			wantMsg:    msgBackendTimeout,
		},
		{
			name:       "invalid input",
			err:        fmt.Errorf("%w: empty question", domain.ErrInvalidInput),
			wantStatus: http.StatusBadRequest,
			wantMsg:    "invalid query",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &mockIngestService{}, &mockQueryService{err: tt.err})

			rec := serve(s, newQueryRequest(`{"query":"q"}`))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantMsg, decode[ErrorResponse](t, rec).Message)
			assert.NotContains(t, rec.Body.String(), "secret")
		})
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	s := newTestServer(t, &mockIngestService{}, &mockQueryService{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "127.0.0.1:0") }()
	cancel()

	assert.NoError(t, <-done)
}
