package driving

import (
	"context"

	"github.com/custodia-labs/finlit/internal/core/domain"
)

// FileLoad reports how many records of one chunk file were usable.
type FileLoad struct {
	Path    string
	Loaded  int
	Skipped int
}

// IndexReport summarises an indexing run.
type IndexReport struct {
	// Mode is the indexing mode used.
	Mode domain.IndexMode

	// Files are per-file load counts.
	Files []FileLoad

	// Candidates is the number of records considered for insertion.
	Candidates int

	// Added is the number of records inserted.
	Added int

	// Total is the collection size after the run.
	Total int
}

// IndexService loads chunk files into the vector store.
type IndexService interface {
	// Index loads the given chunk files. In reset mode the collection is
	// rebuilt; in incremental mode only unseen content is added.
	Index(ctx context.Context, paths []string, mode domain.IndexMode) (*IndexReport, error)
}
