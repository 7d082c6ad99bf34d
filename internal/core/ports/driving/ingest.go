package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// IngestService indexes uploaded documents.
type IngestService interface {
	// Ingest extracts, chunks, embeds and stores a batch of documents.
	// Documents that cannot be extracted are skipped and listed in the report.
	// Returns domain.ErrEmptyBatch (with the report) when nothing could be indexed.
	Ingest(ctx context.Context, docs []domain.Document) (*domain.IngestReport, error)
}
