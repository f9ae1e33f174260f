package driven

import (
	"context"

	"github.com/custodia-labs/finlit/internal/core/domain"
)

// IngestLedger remembers which PDFs have been ingested so unchanged
// files can be skipped on later runs.
type IngestLedger interface {
	// Get returns the entry for path, or domain.ErrNotFound.
	Get(ctx context.Context, path string) (*domain.IngestedFile, error)

	// Put records or replaces the entry for f.Path.
	Put(ctx context.Context, f domain.IngestedFile) error

	// List returns all entries ordered by path.
	List(ctx context.Context) ([]domain.IngestedFile, error)
}
