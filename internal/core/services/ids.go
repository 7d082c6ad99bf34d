package services

import (
	"encoding/binary"

	"github.com/google/uuid"
	"github.com/minio/highwayhash"
)

// recordIDKey is the fixed HighwayHash key. Changing it changes every record ID.
var recordIDKey = []byte("docqa/record-id/highwayhash/v1..")

// RecordID derives the identifier of a chunk record from its source, offset and text.
// Identical chunks of identical sources map to the same ID, so re-ingesting a
// document replaces its records instead of duplicating them. Different content
// never shares an ID short of a 128-bit hash collision.
//
// The ID is formatted as a UUID so every vector store backend accepts it.
func RecordID(source string, offset int, text string) string {
	buf := make([]byte, 0, 2*binary.MaxVarintLen64+len(source)+len(text))
	buf = binary.AppendUvarint(buf, uint64(len(source)))
	buf = append(buf, source...)
	buf = binary.AppendUvarint(buf, uint64(offset))
	buf = append(buf, text...)

	sum := highwayhash.Sum128(buf, recordIDKey)
	return uuid.UUID(sum).String()
}
