package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/similarity"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is an in-memory implementation of driven.VectorStore.
// Queries scan every record of the collection. Contents are lost on exit.
type VectorStore struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	spec    domain.CollectionSpec
	records map[string]domain.IndexedRecord
}

// NewVectorStore creates a new in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{
		collections: make(map[string]*collection),
	}
}

// EnsureCollection creates the collection or checks the existing one matches spec.
func (s *VectorStore) EnsureCollection(_ context.Context, spec domain.CollectionSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.collections[spec.Name]; ok {
		return existing.spec.CheckCompatible(spec)
	}

	s.collections[spec.Name] = &collection{
		spec:    spec,
		records: make(map[string]domain.IndexedRecord),
	}
	return nil
}

// Describe returns the spec the collection was created with.
func (s *VectorStore) Describe(_ context.Context, name string) (domain.CollectionSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return domain.CollectionSpec{}, fmt.Errorf("collection %q: %w", name, domain.ErrNotFound)
	}
	return c.spec, nil
}

// Upsert writes records, overwriting existing IDs.
// The whole batch is rejected if any vector has the wrong dimension.
func (s *VectorStore) Upsert(_ context.Context, name string, records []domain.IndexedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return fmt.Errorf("collection %q: %w", name, domain.ErrNotFound)
	}

	for _, r := range records {
		if len(r.Vector) != c.spec.Dimension {
			return fmt.Errorf("%w: record %s has %d components, collection %q expects %d",
				domain.ErrDimensionMismatch, r.ID, len(r.Vector), name, c.spec.Dimension)
		}
	}

	for _, r := range records {
		r.Vector = slices.Clone(r.Vector)
		c.records[r.ID] = r
	}
	return nil
}

// Query returns the topK most similar records.
func (s *VectorStore) Query(_ context.Context, name string, vector []float32, topK int) ([]domain.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, nil
	}
	if len(vector) != c.spec.Dimension {
		return nil, fmt.Errorf("%w: query has %d components, collection %q expects %d",
			domain.ErrDimensionMismatch, len(vector), name, c.spec.Dimension)
	}

	scorer := similarity.NewScorer(c.spec.Metric, vector)
	matches := make([]domain.Match, 0, len(c.records))
	for _, r := range c.records {
		matches = append(matches, domain.Match{Record: r, Score: scorer.Score(r.Vector)})
	}
	return similarity.Rank(matches, topK), nil
}

// Count returns the number of records in a collection.
func (s *VectorStore) Count(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.collections[name]; ok {
		return len(c.records)
	}
	return 0
}

// Close releases resources (no-op for memory store).
func (s *VectorStore) Close() error {
	return nil
}
