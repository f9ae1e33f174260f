package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfiguration indicates invalid settings, such as a chunk
	// overlap that is not smaller than the chunk size.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrExtraction indicates a document yielded no usable text.
	// It is fatal for that document only.
	ErrExtraction = errors.New("extraction failed")

	// ErrRetrieval indicates the knowledge base could not be queried.
	// Callers treat it as zero evidence.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrToolNotFound indicates a required external program is not on PATH.
	ErrToolNotFound = errors.New("external tool not found")

	// ErrLLMUnavailable indicates the generation service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Indexing and retrieval are disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrStoreUnavailable indicates the vector store is not configured.
	ErrStoreUnavailable = errors.New("vector store unavailable")
)
