package domain

import "errors"

// Domain errors represent business logic failures.
// Adapters wrap infrastructure errors with these so callers can branch with errors.Is.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Extraction Errors.

	// ErrUnsupportedMediaType indicates a document is neither PDF nor plain text.
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// ErrExtractionFailed indicates a document could not be turned into text.
	// Encrypted or corrupt PDFs and undecodable text produce this error.
	// Ingestion skips the document and continues.
	ErrExtractionFailed = errors.New("text extraction failed")

	// ErrEmptyBatch indicates no chunk survived extraction across an upload.
	ErrEmptyBatch = errors.New("nothing to index")

	// Backend Errors.

	// ErrEmbeddingBackend indicates the embedding service failed.
	ErrEmbeddingBackend = errors.New("embedding backend failure")

	// ErrVectorStore indicates the vector store failed.
	ErrVectorStore = errors.New("vector store failure")

	// ErrGenerationBackend indicates the generation service failed.
	ErrGenerationBackend = errors.New("generation backend failure")

	// ErrBackendTimeout indicates a backend call exceeded its deadline.
	// It is retryable, unlike other backend failures.
	ErrBackendTimeout = errors.New("backend timeout")

	// Query Errors.

	// ErrRetrieval indicates the query could not retrieve context.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrGeneration indicates context was retrieved but no answer could be generated.
	ErrGeneration = errors.New("generation failed")

	// Collection Errors.

	// ErrDimensionMismatch indicates a vector or collection has the wrong dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrMetricMismatch indicates an existing collection uses a different metric.
	ErrMetricMismatch = errors.New("metric mismatch")

	// ErrModelMismatch indicates an existing collection was built with a different embedding model.
	ErrModelMismatch = errors.New("embedding model mismatch")

	// Service Errors.

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the generation service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")
)

// IsRetryable reports whether err is worth retrying by the caller.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrBackendTimeout)
}
