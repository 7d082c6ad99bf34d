package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// reasonNoText is recorded for documents whose extracted text is empty.
const reasonNoText = "no extractable text"

// IngestConfig holds the immutable ingestion parameters.
type IngestConfig struct {
	// Collection receives the records.
	Collection string

	// Metric is used when the collection has to be created.
	Metric domain.Metric

	// EmbedBatchSize bounds the texts per embedding call.
	EmbedBatchSize int

	// UpsertBatchSize bounds the records per upsert call.
	UpsertBatchSize int
}

// IngestService extracts, chunks, embeds and stores uploaded documents.
type IngestService struct {
	extractors driven.ExtractorRegistry
	chunker    driven.Chunker
	embedder   driven.EmbeddingService
	store      driven.VectorStore
	cfg        IngestConfig
	newBatchID func() string
}

// NewIngestService creates a new ingestion service.
// Zero batch sizes fall back to the defaults.
func NewIngestService(
	extractors driven.ExtractorRegistry,
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	store driven.VectorStore,
	cfg IngestConfig,
) *IngestService {
	if cfg.Collection == "" {
		cfg.Collection = domain.DefaultCollection
	}
	if cfg.Metric == "" {
		cfg.Metric = domain.MetricCosine
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = domain.DefaultEmbedBatchSize
	}
	if cfg.UpsertBatchSize <= 0 {
		cfg.UpsertBatchSize = domain.DefaultUpsertBatchSize
	}

	return &IngestService{
		extractors: extractors,
		chunker:    chunker,
		embedder:   embedder,
		store:      store,
		cfg:        cfg,
		newBatchID: uuid.NewString,
	}
}

// pendingChunk is a chunk waiting for its embedding.
type pendingChunk struct {
	source string
	chunk  domain.Chunk
}

// Ingest indexes a batch of documents.
//
// Documents that fail extraction are skipped and reported; they never fail the call.
// If no document yields a chunk the call fails with ErrEmptyBatch and nothing is stored.
func (s *IngestService) Ingest(ctx context.Context, docs []domain.Document) (*domain.IngestReport, error) {
	logger.Section("Ingestion")

	report := &domain.IngestReport{BatchID: s.newBatchID()}
	logger.Debug("Batch %s: %d documents", report.BatchID, len(docs))

	var pending []pendingChunk
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			report.DocumentsIndexed = 0
			return report, err
		}

		chunks, err := s.chunkDocument(ctx, doc)
		if err != nil {
			if !errors.Is(err, domain.ErrExtractionFailed) && !errors.Is(err, domain.ErrUnsupportedMediaType) {
				report.DocumentsIndexed = 0
				return report, err
			}
			logger.Warn("Skipping %q: %v", doc.Filename, err)
			report.Skipped = append(report.Skipped, domain.SkippedDocument{
				Filename: doc.Filename,
				Reason:   err.Error(),
			})
			continue
		}
		if len(chunks) == 0 {
			logger.Warn("Skipping %q: %s", doc.Filename, reasonNoText)
			report.Skipped = append(report.Skipped, domain.SkippedDocument{
				Filename: doc.Filename,
				Reason:   reasonNoText,
			})
			continue
		}

		logger.Debug("%q: %d chunks", doc.Filename, len(chunks))
		for _, c := range chunks {
			pending = append(pending, pendingChunk{source: doc.Filename, chunk: c})
		}
		report.DocumentsIndexed++
	}

	if len(pending) == 0 {
		report.DocumentsIndexed = 0
		return report, fmt.Errorf("%w: %d documents, all skipped", domain.ErrEmptyBatch, len(docs))
	}

	vectors, err := s.embed(ctx, pending)
	if err != nil {
		report.DocumentsIndexed = 0
		return report, err
	}

	spec := domain.CollectionSpec{
		Name:      s.cfg.Collection,
		Dimension: len(vectors[0]),
		Metric:    s.cfg.Metric,
		Model:     s.embedder.ModelName(),
	}
	if err := s.store.EnsureCollection(ctx, spec); err != nil {
		report.DocumentsIndexed = 0
		return report, classify(domain.ErrVectorStore, err)
	}

	records := make([]domain.IndexedRecord, len(pending))
	for i, p := range pending {
		if len(vectors[i]) != spec.Dimension {
			report.DocumentsIndexed = 0
			return report, fmt.Errorf("%w: %w: chunk %d has %d components, expected %d",
				domain.ErrEmbeddingBackend, domain.ErrDimensionMismatch, i, len(vectors[i]), spec.Dimension)
		}
		records[i] = domain.IndexedRecord{
			ID:     RecordID(p.source, p.chunk.Offset, p.chunk.Text),
			Vector: vectors[i],
			Metadata: domain.RecordMetadata{
				Text:     p.chunk.Text,
				Source:   p.source,
				Offset:   p.chunk.Offset,
				Position: p.chunk.Position,
				BatchID:  report.BatchID,
			},
		}
	}

	for start := 0; start < len(records); start += s.cfg.UpsertBatchSize {
		end := min(start+s.cfg.UpsertBatchSize, len(records))
		if err := s.store.Upsert(ctx, s.cfg.Collection, records[start:end]); err != nil {
			report.DocumentsIndexed = 0
			return report, classify(domain.ErrVectorStore, err)
		}
	}

	report.ChunksIndexed = len(records)
	logger.Info("Batch %s: indexed %d chunks from %d documents, skipped %d",
		report.BatchID, report.ChunksIndexed, report.DocumentsIndexed, report.DocumentsSkipped())
	return report, nil
}

// chunkDocument extracts and chunks a single document.
func (s *IngestService) chunkDocument(ctx context.Context, doc domain.Document) ([]domain.Chunk, error) {
	text, err := s.extractors.Extract(ctx, doc)
	if err != nil {
		return nil, err
	}
	return s.chunker.Process(text), nil
}

// embed computes vectors for all pending chunks, index-aligned with pending.
func (s *IngestService) embed(ctx context.Context, pending []pendingChunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(pending))
	for start := 0; start < len(pending); start += s.cfg.EmbedBatchSize {
		end := min(start+s.cfg.EmbedBatchSize, len(pending))

		texts := make([]string, 0, end-start)
		for _, p := range pending[start:end] {
			texts = append(texts, p.chunk.Text)
		}

		batch, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, classify(domain.ErrEmbeddingBackend, err)
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("%w: got %d vectors for %d texts",
				domain.ErrEmbeddingBackend, len(batch), len(texts))
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}
