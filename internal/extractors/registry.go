package extractors

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// mediaTypeOctetStream is what browsers and curl send when they do not know the type.
const mediaTypeOctetStream = "application/octet-stream"

// Registry dispatches documents to extractors by base media type.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]driven.Extractor
}

// NewRegistry creates a registry holding the given extractors.
func NewRegistry(extractors ...driven.Extractor) *Registry {
	r := &Registry{extractors: make(map[string]driven.Extractor)}
	for _, e := range extractors {
		r.Register(e)
	}
	return r
}

// Register adds an extractor. A later registration replaces an earlier one
// for the same media type.
func (r *Registry) Register(extractor driven.Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, mt := range extractor.SupportedMediaTypes() {
		r.extractors[domain.BaseMediaType(mt)] = extractor
	}
}

// SupportedMediaTypes returns all registered media types, sorted.
func (r *Registry) SupportedMediaTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.extractors))
	for mt := range r.extractors {
		types = append(types, mt)
	}
	sort.Strings(types)
	return types
}

// Supports reports whether the document can be routed to an extractor.
func (r *Registry) Supports(doc domain.Document) bool {
	_, _, err := r.resolve(doc)
	return err == nil
}

// Extract returns the text of the document.
func (r *Registry) Extract(ctx context.Context, doc domain.Document) (string, error) {
	extractor, mediaType, err := r.resolve(doc)
	if err != nil {
		return "", err
	}
	return extractor.Extract(ctx, doc.Content, mediaType)
}

// resolve picks the extractor for a document. The declared type wins;
// a missing or generic declaration falls back to content sniffing.
func (r *Registry) resolve(doc domain.Document) (driven.Extractor, string, error) {
	mediaType := doc.MediaType
	base := domain.BaseMediaType(mediaType)
	if base == "" || base == mediaTypeOctetStream {
		mediaType = mimetype.Detect(doc.Content).String()
		base = domain.BaseMediaType(mediaType)
	}

	r.mu.RLock()
	extractor, ok := r.extractors[base]
	r.mu.RUnlock()

	if !ok {
		return nil, "", fmt.Errorf("%w: %q", domain.ErrUnsupportedMediaType, base)
	}
	return extractor, mediaType, nil
}
