package domain

import (
	"fmt"
	"strings"
)

// Metric is the similarity measure a collection is created with.
// It is fixed for the lifetime of a collection.
type Metric string

// Available similarity metrics.
const (
	// MetricCosine ranks by cosine similarity.
	MetricCosine Metric = "cosine"

	// MetricDot ranks by raw dot product.
	MetricDot Metric = "dot"

	// MetricEuclidean ranks by negated euclidean distance.
	MetricEuclidean Metric = "euclidean"
)

// IsValid returns true if the metric is recognised.
func (m Metric) IsValid() bool {
	switch m {
	case MetricCosine, MetricDot, MetricEuclidean:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (m Metric) String() string {
	return string(m)
}

// ParseMetric parses a metric name case-insensitively.
// An empty name yields MetricCosine.
func ParseMetric(s string) (Metric, error) {
	if strings.TrimSpace(s) == "" {
		return MetricCosine, nil
	}
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("%w: unknown metric %q", ErrInvalidInput, s)
	}
	return m, nil
}

// CollectionSpec describes the invariants of a vector collection.
// Every vector in a collection has Dimension components and was produced by Model.
type CollectionSpec struct {
	// Name identifies the collection in the vector store.
	Name string

	// Dimension is the embedding vector size.
	Dimension int

	// Metric is the similarity measure used for queries.
	Metric Metric

	// Model is the embedding model identifier the collection is stamped with.
	Model string
}

// Validate checks the spec is usable for creating a collection.
func (s CollectionSpec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: collection name is required", ErrInvalidInput)
	}
	if s.Dimension <= 0 {
		return fmt.Errorf("%w: collection dimension must be positive, got %d", ErrInvalidInput, s.Dimension)
	}
	if !s.Metric.IsValid() {
		return fmt.Errorf("%w: unknown metric %q", ErrInvalidInput, s.Metric)
	}
	return nil
}

// CheckCompatible compares an existing collection with the requested spec.
// It returns ErrDimensionMismatch, ErrMetricMismatch or ErrModelMismatch.
// An existing collection without a model stamp accepts any model.
func (s CollectionSpec) CheckCompatible(requested CollectionSpec) error {
	if s.Dimension != requested.Dimension {
		return fmt.Errorf("%w: collection %q has dimension %d, requested %d",
			ErrDimensionMismatch, s.Name, s.Dimension, requested.Dimension)
	}
	if s.Metric != requested.Metric {
		return fmt.Errorf("%w: collection %q uses %s, requested %s",
			ErrMetricMismatch, s.Name, s.Metric, requested.Metric)
	}
	if s.Model != "" && requested.Model != "" && s.Model != requested.Model {
		return fmt.Errorf("%w: collection %q was built with %q, requested %q",
			ErrModelMismatch, s.Name, s.Model, requested.Model)
	}
	return nil
}

// RecordMetadata is the payload stored next to each vector.
type RecordMetadata struct {
	// Text is the chunk text, needed to materialise retrieved context.
	Text string `json:"text"`

	// Source is the filename the chunk came from.
	Source string `json:"source,omitempty"`

	// Offset is the chunk's character offset within its document.
	Offset int `json:"offset"`

	// Position is the chunk's ordinal within its document.
	Position int `json:"position"`

	// BatchID identifies the ingestion call that wrote the record.
	BatchID string `json:"batch_id,omitempty"`
}

// IndexedRecord is a vector persisted in a collection.
// Records are created at ingestion and never mutated in place.
type IndexedRecord struct {
	// ID is unique within the collection. Upserting an existing ID overwrites it.
	ID string

	// Vector is the chunk embedding.
	Vector []float32

	// Metadata carries the chunk text and provenance.
	Metadata RecordMetadata
}

// Match is a retrieved record with its similarity score.
// Higher scores are more similar for every metric.
type Match struct {
	// Record is the matched record. Vector may be nil when the store does not return it.
	Record IndexedRecord

	// Score is the similarity under the collection metric.
	Score float64
}
