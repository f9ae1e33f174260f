package cleaner

import (
	"context"

	"github.com/custodia-labs/finlit/internal/core/domain"
	"github.com/custodia-labs/finlit/internal/logger"
)

// Processor cleans every page of a document and stitches the surviving
// pages into the document content. It implements the PostProcessor interface.
type Processor struct{}

// New creates a new cleaner processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "cleaner"
}

// Process rewrites doc.Content and passes chunks through unchanged.
// When the document has no pages, its existing content is cleaned instead.
func (p *Processor) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if len(doc.Pages) == 0 {
		doc.Content = Clean(doc.Content)
		return chunks, nil
	}

	texts := make([]string, 0, len(doc.Pages))
	for _, page := range doc.Pages {
		cleaned := Clean(page.Text)
		if cleaned == "" {
			logger.Debug("cleaner: page %d of %s has no usable text", page.Number, doc.SourceFile())
			continue
		}
		texts = append(texts, cleaned)
	}

	doc.Content = StitchPages(texts)
	return chunks, nil
}
