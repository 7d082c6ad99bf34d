// Package httpapi exposes the ingestion and query pipelines over HTTP using gin.
//
// Routes:
//
//	GET  /                  liveness message
//	GET  /healthz           health check
//	POST /upload-documents/ multipart upload, field "files"
//	POST /query/            JSON {"query": "...", "top_k": 3}
//
// Handlers never return internal error text. Causes are logged instead.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// DefaultMaxUploadBytes bounds the size of one upload request.
const DefaultMaxUploadBytes int64 = 64 << 20

// shutdownTimeout bounds how long in-flight requests may run after Run returns.
const shutdownTimeout = 10 * time.Second

// ErrMissingService is returned when a required service is not provided.
var ErrMissingService = errors.New("httpapi: ingest and query services are required")

// MediaTypeChecker reports whether a document can be extracted.
// driven.ExtractorRegistry satisfies it.
type MediaTypeChecker interface {
	Supports(doc domain.Document) bool
}

// Option configures a Server.
type Option func(*Server)

// WithMediaTypeChecker sets the checker for uploaded files. Unsupported files are
// left out of the batch and reported as skipped; an upload with no supported
// file is rejected with 400.
func WithMediaTypeChecker(checker MediaTypeChecker) Option {
	return func(s *Server) {
		s.media = checker
	}
}

// WithMaxUploadBytes overrides DefaultMaxUploadBytes.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// Server is the HTTP adapter over the driving ports.
type Server struct {
	ingest         driving.IngestService
	query          driving.QueryService
	media          MediaTypeChecker
	maxUploadBytes int64
	engine         *gin.Engine
}

// NewServer creates the HTTP server and registers its routes.
func NewServer(ingest driving.IngestService, query driving.QueryService, opts ...Option) (*Server, error) {
	if ingest == nil || query == nil {
		return nil, ErrMissingService
	}

	s := &Server{
		ingest:         ingest,
		query:          query,
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(s)
	}

	engine := gin.New()
	engine.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	engine.MaxMultipartMemory = s.maxUploadBytes
	s.engine = engine
	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.engine.GET("/", s.handleRoot)
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.POST("/upload-documents/", s.handleUpload)
	s.engine.POST("/query/", s.handleQuery)
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on addr until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
		return nil
	}
}
