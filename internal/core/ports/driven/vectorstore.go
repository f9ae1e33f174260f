package driven

import (
	"context"

	"github.com/custodia-labs/finlit/internal/core/domain"
)

// VectorStore holds the indexed records of one collection.
// A collection never holds two records with the same content hash.
// Implementations are safe for concurrent use.
type VectorStore interface {
	// InsertIfAbsent atomically inserts each record whose content hash is
	// not already present and returns the number inserted. Records
	// repeating a hash within the batch are inserted once.
	InsertIfAbsent(ctx context.Context, records []domain.IndexedRecord) (int, error)

	// ScanMetadata returns the metadata of every record in the collection.
	ScanMetadata(ctx context.Context) ([]map[string]any, error)

	// Search returns up to k records nearest to the query vector,
	// most similar first. Hits carry their embeddings.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// DeleteCollection removes every record in the collection.
	DeleteCollection(ctx context.Context) error

	// Count returns the number of records in the collection.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// Record is the matched record, including its embedding.
	Record domain.IndexedRecord

	// Similarity is the cosine similarity to the query.
	Similarity float64
}
