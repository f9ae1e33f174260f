// Package domain defines the core business entities for finlit.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Page, Document: extracted PDF content
//   - Chunk: an overlapping window of cleaned text, the unit of retrieval
//   - IndexedRecord: a chunk as stored in the vector store
//   - RetrievalResult, Hit, Citation: query-time evidence
//   - Classification, CalculationResult: calculation routing and results
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
