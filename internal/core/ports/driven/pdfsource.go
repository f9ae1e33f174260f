package driven

import (
	"context"

	"github.com/custodia-labs/finlit/internal/core/domain"
)

// PDFSource finds the PDFs to ingest.
type PDFSource interface {
	// List returns the PDFs directly inside dir, sorted by path.
	// Hidden files are ignored.
	List(ctx context.Context, dir string) ([]domain.PDFFile, error)

	// Stat describes a single PDF.
	Stat(path string) (domain.PDFFile, error)
}
