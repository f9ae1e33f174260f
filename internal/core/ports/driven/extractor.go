package driven

import (
	"context"

	"github.com/custodia-labs/finlit/internal/core/domain"
)

// Extractor recovers the text of every page of a PDF.
// Failures on a single page degrade that page to empty text;
// a document without readable pages fails with domain.ErrExtraction.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]domain.Page, error)
}
