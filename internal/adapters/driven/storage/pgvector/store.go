// Package pgvector provides a driven.VectorStore backed by PostgreSQL with the
// pgvector extension.
//
// Collections are stamped in the docqa_collections table. Each collection's
// records live in their own table with a typed vector(n) column, so PostgreSQL
// rejects vectors of the wrong dimension on its own.
package pgvector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"
	"github.com/minio/highwayhash"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

const (
	// tablePrefix namespaces record tables.
	tablePrefix = "docqa_records_"

	// maxReadableName bounds the readable part of a table name so that
	// prefix, name and hash fit PostgreSQL's 63-byte identifier limit.
	maxReadableName = 32
)

// tableNameKey is the fixed HighwayHash key for table names. Changing it
// orphans every existing record table.
var tableNameKey = []byte("docqa/pgvector/table-name/v1....")

var unsafeIdent = regexp.MustCompile(`[^a-z0-9_]+`)

// Store is a PostgreSQL/pgvector vector store.
type Store struct {
	db *sql.DB
}

// NewStore connects to PostgreSQL and prepares the extension and stamp table.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%w: pgvector dsn is required", domain.ErrInvalidInput)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{db: db}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("enabling vector extension: %w", err)
	}
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS docqa_collections (
			name       TEXT PRIMARY KEY,
			dimension  INTEGER NOT NULL CHECK (dimension > 0),
			metric     TEXT NOT NULL,
			model      TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("creating collections table: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureCollection creates the collection or checks the existing one matches spec.
func (s *Store) EnsureCollection(ctx context.Context, spec domain.CollectionSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO docqa_collections (name, dimension, metric, model)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO NOTHING
	`, spec.Name, spec.Dimension, spec.Metric.String(), spec.Model)
	if err != nil {
		return fmt.Errorf("stamping collection: %w", err)
	}

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id           TEXT PRIMARY KEY,
			embedding    vector(%d) NOT NULL,
			text         TEXT NOT NULL,
			source       TEXT NOT NULL DEFAULT '',
			chunk_offset INTEGER NOT NULL DEFAULT 0,
			position     INTEGER NOT NULL DEFAULT 0,
			batch_id     TEXT NOT NULL DEFAULT '',
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`, tableName(spec.Name), spec.Dimension)
	existing, err := s.collection(ctx, tx, spec.Name)
	if err != nil {
		return err
	}
	if err := existing.CheckCompatible(spec); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating records table: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing collection: %w", err)
	}
	return nil
}

// Describe returns the stamp of a collection.
func (s *Store) Describe(ctx context.Context, name string) (domain.CollectionSpec, error) {
	return s.collection(ctx, s.db, name)
}

// Upsert writes records in one transaction, overwriting existing IDs.
func (s *Store) Upsert(ctx context.Context, name string, records []domain.IndexedRecord) error {
	spec, err := s.collection(ctx, s.db, name)
	if err != nil {
		return err
	}
	for _, r := range records {
		if len(r.Vector) != spec.Dimension {
			return fmt.Errorf("%w: record %s has %d components, collection %q expects %d",
				domain.ErrDimensionMismatch, r.ID, len(r.Vector), name, spec.Dimension)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, embedding, text, source, chunk_offset, position, batch_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			text = EXCLUDED.text,
			source = EXCLUDED.source,
			chunk_offset = EXCLUDED.chunk_offset,
			position = EXCLUDED.position,
			batch_id = EXCLUDED.batch_id,
			updated_at = now()
	`, tableName(name)))
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.ExecContext(ctx, r.ID, pgvector.NewVector(r.Vector), r.Metadata.Text,
			r.Metadata.Source, r.Metadata.Offset, r.Metadata.Position, r.Metadata.BatchID)
		if err != nil {
			return fmt.Errorf("upserting record %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing upsert: %w", err)
	}
	return nil
}

// Query returns the topK nearest records using the collection's distance operator.
func (s *Store) Query(ctx context.Context, name string, vector []float32, topK int) ([]domain.Match, error) {
	spec, err := s.collection(ctx, s.db, name)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(vector) != spec.Dimension {
		return nil, fmt.Errorf("%w: query has %d components, collection %q expects %d",
			domain.ErrDimensionMismatch, len(vector), name, spec.Dimension)
	}

	query := fmt.Sprintf(`
		SELECT id, embedding, text, source, chunk_offset, position, batch_id, embedding %s $1 AS distance
		FROM %s
		ORDER BY distance, id
		LIMIT $2
	`, distanceOperator(spec.Metric), tableName(name))

	rows, err := s.db.QueryContext(ctx, query, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var matches []domain.Match
	for rows.Next() {
		var r domain.IndexedRecord
		var embedding pgvector.Vector
		var distance float64
		if err := rows.Scan(&r.ID, &embedding, &r.Metadata.Text, &r.Metadata.Source,
			&r.Metadata.Offset, &r.Metadata.Position, &r.Metadata.BatchID, &distance); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		r.Vector = embedding.Slice()
		matches = append(matches, domain.Match{Record: r, Score: scoreFromDistance(spec.Metric, distance)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return matches, nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) collection(ctx context.Context, q queryer, name string) (domain.CollectionSpec, error) {
	spec := domain.CollectionSpec{Name: name}
	var metric string
	err := q.QueryRowContext(ctx,
		"SELECT dimension, metric, model FROM docqa_collections WHERE name = $1", name,
	).Scan(&spec.Dimension, &metric, &spec.Model)
	if errors.Is(err, sql.ErrNoRows) {
		return spec, fmt.Errorf("collection %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return spec, fmt.Errorf("reading collection: %w", err)
	}
	spec.Metric = domain.Metric(metric)
	return spec, nil
}

// tableName maps a collection name to a quoted table identifier.
// The readable part is lossy, so a hash of the exact name keeps collections
// such as "rag-index" and "RAG_Index" in separate tables.
func tableName(collection string) string {
	safe := unsafeIdent.ReplaceAllString(strings.ToLower(collection), "_")
	if len(safe) > maxReadableName {
		safe = safe[:maxReadableName]
	}
	sum := highwayhash.Sum64([]byte(collection), tableNameKey)
	return pq.QuoteIdentifier(fmt.Sprintf("%s%s_%016x", tablePrefix, safe, sum))
}

// distanceOperator returns the pgvector operator ordering nearest first.
func distanceOperator(metric domain.Metric) string {
	switch metric {
	case domain.MetricDot:
		return "<#>" // negative inner product
	case domain.MetricEuclidean:
		return "<->"
	default:
		return "<=>" // cosine distance
	}
}

// scoreFromDistance converts an operator result to a similarity where higher is better.
func scoreFromDistance(metric domain.Metric, distance float64) float64 {
	switch metric {
	case domain.MetricDot, domain.MetricEuclidean:
		return -distance
	default:
		return 1 - distance
	}
}
