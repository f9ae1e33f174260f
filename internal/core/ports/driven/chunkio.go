package driven

import "github.com/custodia-labs/finlit/internal/core/domain"

// ChunkWriter persists chunks as one JSON record per line.
type ChunkWriter interface {
	// WriteFile replaces path with the given chunks.
	WriteFile(path string, chunks []domain.Chunk) error
}

// ChunkReader loads chunk files, skipping records that cannot be used.
type ChunkReader interface {
	// ReadFile returns the usable chunks in path and the number of lines skipped.
	ReadFile(path string) ([]domain.Chunk, int, error)
}

// ChunkFiles reads and writes chunk files.
type ChunkFiles interface {
	ChunkReader
	ChunkWriter
}
