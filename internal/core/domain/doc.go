// Package domain defines the core business entities for docqa.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An uploaded file awaiting extraction and chunking
//   - Chunk: A window of extracted text, the unit of embedding
//   - IndexedRecord: A chunk's vector and metadata as persisted in a collection
//   - CollectionSpec: The dimension, metric and model a collection is stamped with
//   - Answer: A generated answer with the context it was grounded on
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
