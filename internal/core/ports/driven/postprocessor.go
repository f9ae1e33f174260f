package driven

import (
	"context"

	"github.com/custodia-labs/finlit/internal/core/domain"
)

// PostProcessor is one stage between extraction and chunk files.
type PostProcessor interface {
	// Name is the key used in PipelineConfig.
	Name() string

	// Process may rewrite doc (the cleaner sets doc.Content) and returns
	// the chunks so far. The chunker ignores its input and returns fresh chunks.
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline turns an extracted document into chunks.
type PostProcessorPipeline interface {
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
