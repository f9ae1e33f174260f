// Package sqlite provides the persistent vector store and ingest ledger.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. A single database holds:
//
//   - records: indexed chunks per collection with their embeddings, unique
//     on (collection, content_hash)
//   - ingested_files: which PDFs have been turned into chunk files
//
// Similarity search loads a collection's embeddings and ranks them by cosine
// similarity in process; knowledge bases here are thousands of chunks, not millions.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.finlit/data/knowledge.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
