package domain

import (
	"mime"
	"strings"
)

// Supported media types for uploaded documents.
const (
	// MediaTypePDF is a Portable Document Format file.
	MediaTypePDF = "application/pdf"

	// MediaTypePlainText is a plain text file, optionally with a charset parameter.
	MediaTypePlainText = "text/plain"
)

// Document is an uploaded file submitted for indexing.
// It only lives for the duration of one ingestion call.
type Document struct {
	// Filename is the name the file was uploaded under.
	// It becomes the source recorded against every chunk.
	Filename string

	// MediaType is the declared content type, e.g. "text/plain; charset=utf-8".
	MediaType string

	// Content is the raw uploaded bytes.
	Content []byte
}

// BaseMediaType returns the declared media type without parameters, lower-cased.
// An unparsable media type is returned trimmed and lower-cased as-is.
func (d Document) BaseMediaType() string {
	return BaseMediaType(d.MediaType)
}

// BaseMediaType strips parameters from a media type.
func BaseMediaType(mediaType string) string {
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		if i := strings.IndexByte(mediaType, ';'); i >= 0 {
			mediaType = mediaType[:i]
		}
		return strings.ToLower(strings.TrimSpace(mediaType))
	}
	return mt
}

// IsSupportedMediaType reports whether the media type can be extracted.
func IsSupportedMediaType(mediaType string) bool {
	switch BaseMediaType(mediaType) {
	case MediaTypePDF, MediaTypePlainText:
		return true
	default:
		return false
	}
}

// Chunk is a contiguous window of a document's extracted text.
// Chunks overlap their predecessor by the configured overlap.
type Chunk struct {
	// Text is the chunk content.
	Text string

	// Position is the ordinal position within the document.
	Position int

	// Offset is the character (rune) offset of the chunk start in the document text.
	Offset int
}
