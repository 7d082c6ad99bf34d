package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// VectorStore persists indexed records and answers nearest-neighbour queries.
// It exclusively owns the lifecycle of records; pipelines never cache them.
type VectorStore interface {
	// EnsureCollection creates the collection if absent.
	// If it exists, its dimension, metric and model stamp must match spec,
	// otherwise ErrDimensionMismatch, ErrMetricMismatch or ErrModelMismatch is returned.
	EnsureCollection(ctx context.Context, spec domain.CollectionSpec) error

	// Describe returns the stored spec of a collection, including its model stamp.
	// A missing collection returns ErrNotFound.
	Describe(ctx context.Context, name string) (domain.CollectionSpec, error)

	// Upsert writes records. Existing IDs are overwritten.
	Upsert(ctx context.Context, collection string, records []domain.IndexedRecord) error

	// Query returns at most topK matches in descending similarity order.
	// A missing collection yields no matches.
	Query(ctx context.Context, collection string, vector []float32, topK int) ([]domain.Match, error)

	// Close releases resources.
	Close() error
}
