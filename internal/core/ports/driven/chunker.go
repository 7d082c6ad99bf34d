package driven

import "github.com/custodia-labs/docqa/internal/core/domain"

// Chunker splits extracted document text into overlapping windows.
// Implementations must be deterministic: the same text always yields the same chunks.
type Chunker interface {
	// Process returns the chunks of text in document order.
	// Empty text yields no chunks.
	Process(text string) []domain.Chunk
}
