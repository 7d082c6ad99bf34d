// Package plaintext extracts text from text/plain uploads.
package plaintext

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Extractor decodes plain text documents.
// The charset parameter of the media type selects the decoder; without one
// the content must be valid UTF-8.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMediaTypes returns the media types this extractor handles.
func (e *Extractor) SupportedMediaTypes() []string {
	return []string{domain.MediaTypePlainText}
}

// Extract decodes the content to a UTF-8 string.
func (e *Extractor) Extract(_ context.Context, content []byte, mediaType string) (string, error) {
	charset := charsetOf(mediaType)

	if charset != "" && !isUTF8(charset) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return "", fmt.Errorf("%w: unknown charset %q", domain.ErrExtractionFailed, charset)
		}
		decoded, err := enc.NewDecoder().Bytes(content)
		if err != nil {
			return "", fmt.Errorf("%w: decode %s: %v", domain.ErrExtractionFailed, charset, err)
		}
		content = decoded
	}

	content = bytes.TrimPrefix(content, utf8BOM)
	if !utf8.Valid(content) {
		return "", fmt.Errorf("%w: content is not valid UTF-8", domain.ErrExtractionFailed)
	}
	return string(content), nil
}

func charsetOf(mediaType string) string {
	_, params, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(params["charset"]))
}

func isUTF8(charset string) bool {
	return charset == "utf-8" || charset == "utf8" || charset == "us-ascii"
}
