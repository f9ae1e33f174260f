package driving

import (
	"context"

	"github.com/custodia-labs/finlit/internal/core/domain"
)

// SearchService retrieves evidence from the knowledge base.
type SearchService interface {
	// Search returns diverse passages relevant to the query. It never
	// returns an error: failures are reported through the result, which
	// then has no hits.
	Search(ctx context.Context, query string, opts domain.RetrievalOptions) domain.RetrievalResult
}
