package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/similarity"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// databaseFile is the file name inside the data directory.
const databaseFile = "vectors.db"

// Store is a SQLite-backed vector store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.docqa/data/vectors.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docqa", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, databaseFile)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_vectors.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// applyMigration runs one migration and records its version atomically.
func (s *Store) applyMigration(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// EnsureCollection creates the collection or checks the existing one matches spec.
func (s *Store) EnsureCollection(ctx context.Context, spec domain.CollectionSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	existing, err := s.collection(ctx, spec.Name)
	if err == nil {
		return existing.CheckCompatible(spec)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	// A concurrent creator may win the race; re-read and compare in that case
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO collections (name, dimension, metric, model)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, spec.Name, spec.Dimension, spec.Metric.String(), spec.Model)
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	existing, err = s.collection(ctx, spec.Name)
	if err != nil {
		return err
	}
	return existing.CheckCompatible(spec)
}

// Describe returns the stamp of a collection.
func (s *Store) Describe(ctx context.Context, name string) (domain.CollectionSpec, error) {
	return s.collection(ctx, name)
}

// Upsert writes records in one transaction, overwriting existing IDs.
func (s *Store) Upsert(ctx context.Context, name string, records []domain.IndexedRecord) error {
	spec, err := s.collection(ctx, name)
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

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (collection, id, vector, text, source, chunk_offset, position, batch_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			vector = excluded.vector,
			text = excluded.text,
			source = excluded.source,
			chunk_offset = excluded.chunk_offset,
			position = excluded.position,
			batch_id = excluded.batch_id,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.ExecContext(ctx, name, r.ID, float32SliceToBytes(r.Vector),
			r.Metadata.Text, r.Metadata.Source, r.Metadata.Offset, r.Metadata.Position, r.Metadata.BatchID)
		if err != nil {
			return fmt.Errorf("upserting record %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing upsert: %w", err)
	}
	return nil
}

// Query scans the collection and returns the topK most similar records.
func (s *Store) Query(ctx context.Context, name string, vector []float32, topK int) ([]domain.Match, error) {
	spec, err := s.collection(ctx, name)
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

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, vector, text, source, chunk_offset, position, batch_id
		FROM records WHERE collection = ?
	`, name)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	scorer := similarity.NewScorer(spec.Metric, vector)
	var matches []domain.Match
	for rows.Next() {
		var r domain.IndexedRecord
		var blob []byte
		if err := rows.Scan(&r.ID, &blob, &r.Metadata.Text, &r.Metadata.Source,
			&r.Metadata.Offset, &r.Metadata.Position, &r.Metadata.BatchID); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		r.Vector = bytesToFloat32Slice(blob)
		if len(r.Vector) != spec.Dimension {
			continue // Corrupt row
		}
		matches = append(matches, domain.Match{Record: r, Score: scorer.Score(r.Vector)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}

	return similarity.Rank(matches, topK), nil
}

// Count returns the number of records in a collection.
func (s *Store) Count(ctx context.Context, name string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records WHERE collection = ?", name).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// collection loads the stamp of a collection.
func (s *Store) collection(ctx context.Context, name string) (domain.CollectionSpec, error) {
	spec := domain.CollectionSpec{Name: name}
	var metric string
	err := s.db.QueryRowContext(ctx,
		"SELECT dimension, metric, model FROM collections WHERE name = ?", name,
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

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
