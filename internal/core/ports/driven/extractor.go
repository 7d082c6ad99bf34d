package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Extractor turns uploaded bytes into plain text.
// Each extractor handles specific media types.
type Extractor interface {
	// SupportedMediaTypes returns the base media types this extractor handles.
	SupportedMediaTypes() []string

	// Extract returns the document text.
	// Unreadable input returns an error wrapping domain.ErrExtractionFailed.
	Extract(ctx context.Context, content []byte, mediaType string) (string, error)
}

// ExtractorRegistry selects the extractor for a document.
// Documents without a usable declared type are sniffed from their content.
type ExtractorRegistry interface {
	// Register adds an extractor for each of its supported media types.
	Register(extractor Extractor)

	// SupportedMediaTypes returns all media types that can be extracted.
	SupportedMediaTypes() []string

	// Supports reports whether the document's media type can be extracted.
	Supports(doc domain.Document) bool

	// Extract returns the document text using the matching extractor.
	// Unknown types return domain.ErrUnsupportedMediaType.
	Extract(ctx context.Context, doc domain.Document) (string, error)
}
