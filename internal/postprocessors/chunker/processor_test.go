package chunker

import (
	"errors"
	"strings"
	"testing"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestNew_Defaults(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.ChunkSize() != DefaultChunkSize {
		t.Errorf("expected chunk size %d, got %d", DefaultChunkSize, p.ChunkSize())
	}
	if p.Overlap() != DefaultChunkOverlap {
		t.Errorf("expected overlap %d, got %d", DefaultChunkOverlap, p.Overlap())
	}
	if p.Name() != "chunker" {
		t.Errorf("expected name 'chunker', got '%s'", p.Name())
	}
}

func TestNew_InvalidParameters(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -5, 0},
		{"negative overlap", 10, -1},
		{"overlap equals size", 10, 10},
		{"overlap exceeds size", 10, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(WithChunkSize(tt.size), WithOverlap(tt.overlap))
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}

			_, err = Split("some text", tt.size, tt.overlap)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("Split: expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestSplit_EmptyText(t *testing.T) {
	chunks, err := Split("", 100, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

func TestSplit_ShortText(t *testing.T) {
	chunks, err := Split("Short text", 1000, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "Short text" {
		t.Errorf("expected 'Short text', got '%s'", chunks[0])
	}
}

func TestSplit_Windows(t *testing.T) {
	text := "Paris is the capital of France. Berlin is capital of Germany."
	if len(text) != 61 {
		t.Fatalf("fixture length changed: %d", len(text))
	}

	chunks, err := Split(text, 40, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{text[0:40], text[30:61], text[60:61]}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %q", len(want), len(chunks), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d: expected %q, got %q", i, want[i], chunks[i])
		}
	}
}

func TestSplit_ExactChunkSize(t *testing.T) {
	chunks, err := Split(strings.Repeat("a", 100), 50, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Errorf("expected 2 chunks, got %d", len(chunks))
	}
}

func TestSplit_OverlapContent(t *testing.T) {
	chunks, err := Split("0123456789ABCDEFGHIJ", 10, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// step 7: windows start at 0, 7, 14
	want := []string{"0123456789", "789ABCDEFG", "EFGHIJ"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d: expected %q, got %q", i, want[i], chunks[i])
		}
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 50)

	a, err := Split(text, 120, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Split(text, 120, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestSplit_MultiByteRunes(t *testing.T) {
	text := strings.Repeat("日本語テキスト", 10) // 70 characters, 210 bytes

	chunks, err := Split(text, 20, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, c := range chunks {
		if n := len([]rune(c)); n > 20 {
			t.Errorf("chunk %d has %d characters, limit 20", i, n)
		}
		if !strings.Contains(text, c) {
			t.Errorf("chunk %d is not a substring of the input", i)
		}
	}
}

func TestProcessor_Process_CoverageAndBounds(t *testing.T) {
	p, err := New(WithChunkSize(100), WithOverlap(25))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text := strings.Repeat("lorem ipsum dolor sit amet ", 40)
	runes := []rune(text)
	chunks := p.Process(text)

	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}

	covered := make([]bool, len(runes))
	for i, c := range chunks {
		if c.Position != i {
			t.Errorf("expected position %d, got %d", i, c.Position)
		}
		n := len([]rune(c.Text))
		if n > 100 {
			t.Errorf("chunk %d exceeds chunk size: %d", i, n)
		}
		if string(runes[c.Offset:c.Offset+n]) != c.Text {
			t.Errorf("chunk %d does not match input at offset %d", i, c.Offset)
		}
		for j := c.Offset; j < c.Offset+n; j++ {
			covered[j] = true
		}
	}

	for i, ok := range covered {
		if !ok {
			t.Fatalf("character %d not covered by any chunk", i)
		}
	}

	// consecutive windows share exactly the overlap
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Offset-chunks[i-1].Offset != 75 {
			t.Errorf("chunk %d offset step is %d, expected 75", i, chunks[i].Offset-chunks[i-1].Offset)
		}
	}
}

func TestProcessor_Process_Empty(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chunks := p.Process(""); len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}
