// Package sqlite provides a SQLite-backed implementation of driven.VectorStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Collections and their records live in a
// single database file:
//
//   - collections: one row per collection, stamped with dimension, metric and model
//   - records: vectors as little-endian float32 blobs, with chunk text and provenance
//
// Queries scan the records of a collection and rank them in Go, which suits the
// corpus sizes of a single-user document store.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.docqa/data/vectors.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
