// Package chunker provides a fixed-size sliding-window text chunker.
package chunker

import (
	"fmt"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// Processor splits document text into overlapping fixed-size chunks.
// Sizes are measured in characters (Unicode code points), never bytes,
// so multi-byte text is never cut mid-rune.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		p.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// New creates a new chunker processor with the given options.
// Returns ErrInvalidInput unless chunkSize > overlap >= 0.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	if err := validate(p.chunkSize, p.overlap); err != nil {
		return nil, err
	}
	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured chunk size.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Process splits text into chunks carrying their position and offset.
func (p *Processor) Process(text string) []domain.Chunk {
	runes := []rune(text)
	windows := slide(len(runes), p.chunkSize, p.overlap)

	chunks := make([]domain.Chunk, 0, len(windows))
	for i, w := range windows {
		chunks = append(chunks, domain.Chunk{
			Text:     string(runes[w.start:w.end]),
			Position: i,
			Offset:   w.start,
		})
	}
	return chunks
}

// Split is the pure form of the chunker: identical inputs always yield identical chunks.
// Empty text yields an empty result.
func Split(text string, chunkSize, overlap int) ([]string, error) {
	if err := validate(chunkSize, overlap); err != nil {
		return nil, err
	}

	runes := []rune(text)
	windows := slide(len(runes), chunkSize, overlap)

	out := make([]string, 0, len(windows))
	for _, w := range windows {
		out = append(out, string(runes[w.start:w.end]))
	}
	return out, nil
}

type window struct {
	start, end int
}

// slide computes the greedy windows: [0, size), then advances by size-overlap
// until the window start reaches n. The final window may be shorter.
func slide(n, chunkSize, overlap int) []window {
	if n == 0 {
		return nil
	}

	step := chunkSize - overlap
	windows := make([]window, 0, n/step+1)
	for start := 0; start < n; start += step {
		end := start + chunkSize
		if end > n {
			end = n
		}
		windows = append(windows, window{start: start, end: end})
	}
	return windows
}

func validate(chunkSize, overlap int) error {
	if chunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidInput, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return fmt.Errorf("%w: overlap must be in [0, %d), got %d", domain.ErrInvalidInput, chunkSize, overlap)
	}
	return nil
}
