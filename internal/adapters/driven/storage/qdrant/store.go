// Package qdrant provides a driven.VectorStore backed by a Qdrant server.
//
// It talks to the Qdrant REST API. Collections are created with the requested
// vector size and distance; existing collections are checked against them.
// Qdrant has no place to stamp the embedding model, so model mismatches are
// not detected by this backend.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// DefaultTimeout bounds each REST call when the caller's context has no deadline.
const DefaultTimeout = 15 * time.Second

var (
	// errCollectionMissing is returned by the client when Qdrant answers 404.
	errCollectionMissing = errors.New("collection does not exist")

	// errConflict is returned by the client when Qdrant answers 409.
	errConflict = errors.New("conflict")
)

// Config holds Qdrant connection settings.
type Config struct {
	// URL is the REST endpoint, e.g. http://localhost:6333.
	URL string

	// APIKey is sent in the api-key header when set.
	APIKey string

	// Timeout bounds each request. Zero uses DefaultTimeout.
	Timeout time.Duration
}

// Store is a Qdrant REST client implementing driven.VectorStore.
type Store struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewStore creates a new Qdrant store.
func NewStore(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("%w: qdrant url is required", domain.ErrInvalidInput)
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("%w: qdrant url: %v", domain.ErrInvalidInput, err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Store{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// distanceNames maps metrics to Qdrant distance names.
var distanceNames = map[domain.Metric]string{
	domain.MetricCosine:    "Cosine",
	domain.MetricDot:       "Dot",
	domain.MetricEuclidean: "Euclid",
}

func metricFromDistance(distance string) domain.Metric {
	for m, d := range distanceNames {
		if strings.EqualFold(d, distance) {
			return m
		}
	}
	return domain.Metric(strings.ToLower(distance))
}

type vectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

type collectionInfo struct {
	Result struct {
		Config struct {
			Params struct {
				Vectors vectorParams `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

// EnsureCollection creates the collection or checks the existing one matches spec.
func (s *Store) EnsureCollection(ctx context.Context, spec domain.CollectionSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	existing, err := s.describe(ctx, spec.Name)
	if err == nil {
		return existing.CheckCompatible(unstamped(spec))
	}
	if !errors.Is(err, errCollectionMissing) {
		return err
	}

	body := map[string]any{
		"vectors": vectorParams{Size: spec.Dimension, Distance: distanceNames[spec.Metric]},
	}
	err = s.do(ctx, http.MethodPut, s.collectionPath(spec.Name), body, nil)
	if errors.Is(err, errConflict) {
		// Another writer created it first; compare against what won
		existing, err = s.describe(ctx, spec.Name)
		if err != nil {
			return err
		}
		return existing.CheckCompatible(unstamped(spec))
	}
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}
	return nil
}

// unstamped drops the model, which Qdrant cannot store.
func unstamped(spec domain.CollectionSpec) domain.CollectionSpec {
	spec.Model = ""
	return spec
}

type point struct {
	ID      string                `json:"id"`
	Vector  []float32             `json:"vector"`
	Payload domain.RecordMetadata `json:"payload"`
}

// Upsert writes records as points, overwriting existing IDs.
func (s *Store) Upsert(ctx context.Context, name string, records []domain.IndexedRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]point, len(records))
	for i, r := range records {
		points[i] = point{ID: r.ID, Vector: r.Vector, Payload: r.Metadata}
	}

	err := s.do(ctx, http.MethodPut, s.collectionPath(name)+"/points?wait=true",
		map[string]any{"points": points}, nil)
	if errors.Is(err, errCollectionMissing) {
		return fmt.Errorf("collection %q: %w", name, domain.ErrNotFound)
	}
	return err
}

type searchResponse struct {
	Result []struct {
		ID      any                   `json:"id"`
		Score   float64               `json:"score"`
		Payload domain.RecordMetadata `json:"payload"`
	} `json:"result"`
}

// Query searches the collection. Euclidean distances are negated so higher is more similar.
func (s *Store) Query(ctx context.Context, name string, vector []float32, topK int) ([]domain.Match, error) {
	spec, err := s.describe(ctx, name)
	if errors.Is(err, errCollectionMissing) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(vector) != spec.Dimension {
		return nil, fmt.Errorf("%w: query has %d components, collection %q expects %d",
			domain.ErrDimensionMismatch, len(vector), name, spec.Dimension)
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp searchResponse
	if err := s.do(ctx, http.MethodPost, s.collectionPath(name)+"/points/search", req, &resp); err != nil {
		if errors.Is(err, errCollectionMissing) {
			return nil, nil
		}
		return nil, err
	}

	matches := make([]domain.Match, 0, len(resp.Result))
	for _, r := range resp.Result {
		score := r.Score
		if spec.Metric == domain.MetricEuclidean {
			score = -score
		}
		matches = append(matches, domain.Match{
			Record: domain.IndexedRecord{ID: fmt.Sprint(r.ID), Metadata: r.Payload},
			Score:  score,
		})
	}
	return matches, nil
}

// Close releases idle connections.
func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// Describe returns the vector size and metric of a collection. The model is always empty.
func (s *Store) Describe(ctx context.Context, name string) (domain.CollectionSpec, error) {
	spec, err := s.describe(ctx, name)
	if errors.Is(err, errCollectionMissing) {
		return domain.CollectionSpec{}, fmt.Errorf("collection %q: %w", name, domain.ErrNotFound)
	}
	return spec, err
}

// describe reads the vector parameters of a collection.
func (s *Store) describe(ctx context.Context, name string) (domain.CollectionSpec, error) {
	var info collectionInfo
	if err := s.do(ctx, http.MethodGet, s.collectionPath(name), nil, &info); err != nil {
		return domain.CollectionSpec{}, err
	}
	params := info.Result.Config.Params.Vectors
	return domain.CollectionSpec{
		Name:      name,
		Dimension: params.Size,
		Metric:    metricFromDistance(params.Distance),
	}, nil
}

func (s *Store) collectionPath(name string) string {
	return "/collections/" + url.PathEscape(name)
}

// do sends a JSON request and decodes the JSON response into out when non-nil.
func (s *Store) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errCollectionMissing
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("qdrant %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
		if resp.StatusCode == http.StatusConflict {
			return fmt.Errorf("%w: %w", errConflict, err)
		}
		return err
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
