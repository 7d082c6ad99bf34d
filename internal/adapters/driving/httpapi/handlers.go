package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

// uploadField is the multipart field carrying the documents.
const uploadField = "files"

// Response messages.
const (
	msgWelcome        = "Welcome to the RAG API"
	msgIndexFailed    = "could not index documents"
	msgAnswerFailed   = "could not answer the question"
	msgBackendTimeout = "backend timed out, try again"
	msgNothingIndexed = "none of the uploaded documents contained extractable text"
)

// SkippedResponse describes a document left out of an upload.
type SkippedResponse struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// UploadResponse is the body of a successful upload.
type UploadResponse struct {
	Message          string            `json:"message"`
	BatchID          string            `json:"batch_id"`
	DocumentsIndexed int               `json:"documents_indexed"`
	ChunksIndexed    int               `json:"chunks_indexed"`
	Skipped          []SkippedResponse `json:"skipped"`
}

// QueryRequest is the body of a query. Text is accepted as an alias of Query.
type QueryRequest struct {
	Query string `json:"query"`
	Text  string `json:"text"`
	TopK  int    `json:"top_k"`
}

// QueryResponse is the body of an answered query.
type QueryResponse struct {
	Answer  string   `json:"answer"`
	Context []string `json:"context"`
	Sources []string `json:"sources"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string            `json:"message"`
	Skipped []SkippedResponse `json:"skipped,omitempty"`
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": msgWelcome})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadBytes)

	form, err := c.MultipartForm()
	if err != nil {
		logger.Debug("Upload rejected: %v", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: fmt.Sprintf("expected a multipart form with field %q", uploadField),
		})
		return
	}

	files := form.File[uploadField]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "no files uploaded"})
		return
	}

	docs := make([]domain.Document, 0, len(files))
	var (
		unsupported      []SkippedResponse
		unsupportedTypes []string
	)
	for _, fh := range files {
		doc, err := readUpload(fh)
		if err != nil {
			logger.Warn("Reading upload %q: %v", fh.Filename, err)
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: fmt.Sprintf("could not read file %q", fh.Filename),
			})
			return
		}
		if s.media != nil && !s.media.Supports(doc) {
			logger.Warn("Skipping %s: unsupported file type %s", doc.Filename, doc.MediaType)
			unsupportedTypes = append(unsupportedTypes, doc.MediaType)
			unsupported = append(unsupported, SkippedResponse{
				Filename: doc.Filename,
				Reason:   fmt.Sprintf("unsupported file type: %s", doc.MediaType),
			})
			continue
		}
		docs = append(docs, doc)
	}

	if len(docs) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: fmt.Sprintf("Unsupported file type: %s", strings.Join(unsupportedTypes, ", ")),
			Skipped: unsupported,
		})
		return
	}

	report, err := s.ingest.Ingest(c.Request.Context(), docs)
	if err != nil {
		status, msg := ingestStatus(err)
		logger.Error("Upload of %d documents failed: %v", len(docs), err)
		resp := ErrorResponse{Message: msg, Skipped: unsupported}
		if report != nil {
			resp.Skipped = mergeSkipped(unsupported, report.Skipped)
		}
		c.JSON(status, resp)
		return
	}

	c.JSON(http.StatusCreated, UploadResponse{
		Message:          fmt.Sprintf("Successfully processed and indexed %d documents.", report.DocumentsIndexed),
		BatchID:          report.BatchID,
		DocumentsIndexed: report.DocumentsIndexed,
		ChunksIndexed:    report.ChunksIndexed,
		Skipped:          mergeSkipped(unsupported, report.Skipped),
	})
}

func (s *Server) handleQuery(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request body"})
		return
	}

	question := req.Query
	if strings.TrimSpace(question) == "" {
		question = req.Text
	}
	if strings.TrimSpace(question) == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "query is required"})
		return
	}
	if req.TopK < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "top_k must not be negative"})
		return
	}

	answer, err := s.query.Answer(c.Request.Context(), question, domain.QueryOptions{TopK: req.TopK})
	if err != nil {
		status, msg := queryStatus(err)
		logger.Error("Query failed: %v", err)
		c.JSON(status, ErrorResponse{Message: msg})
		return
	}

	c.JSON(http.StatusOK, QueryResponse{
		Answer:  answer.Text,
		Context: nonNil(answer.Context),
		Sources: nonNil(answer.Sources),
	})
}

// readUpload loads a multipart file into a document.
func readUpload(fh *multipart.FileHeader) (domain.Document, error) {
	f, err := fh.Open()
	if err != nil {
		return domain.Document{}, err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return domain.Document{}, err
	}

	return domain.Document{
		Filename:  fh.Filename,
		MediaType: fh.Header.Get("Content-Type"),
		Content:   content,
	}, nil
}

// ingestStatus maps an ingestion error to a status code and a safe message.
func ingestStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrEmptyBatch):
		return http.StatusUnprocessableEntity, msgNothingIndexed
	case errors.Is(err, domain.ErrUnsupportedMediaType), errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid upload"
	case domain.IsRetryable(err):
		return http.StatusGatewayTimeout, msgBackendTimeout
	default:
		return http.StatusInternalServerError, msgIndexFailed
	}
}

// queryStatus maps a query error to a status code and a safe message.
func queryStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid query"
	case domain.IsRetryable(err):
		return http.StatusGatewayTimeout, msgBackendTimeout
	default:
		return http.StatusInternalServerError, msgAnswerFailed
	}
}

func skippedResponses(skipped []domain.SkippedDocument) []SkippedResponse {
	out := make([]SkippedResponse, len(skipped))
	for i, sk := range skipped {
		out[i] = SkippedResponse{Filename: sk.Filename, Reason: sk.Reason}
	}
	return out
}

// mergeSkipped lists files rejected before ingestion ahead of those the pipeline skipped.
func mergeSkipped(rejected []SkippedResponse, skipped []domain.SkippedDocument) []SkippedResponse {
	out := make([]SkippedResponse, 0, len(rejected)+len(skipped))
	out = append(out, rejected...)
	return append(out, skippedResponses(skipped)...)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
