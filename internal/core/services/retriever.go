package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/finlit/internal/core/domain"
	"github.com/custodia-labs/finlit/internal/core/ports/driven"
	"github.com/custodia-labs/finlit/internal/core/ports/driving"
	"github.com/custodia-labs/finlit/internal/logger"
	"github.com/custodia-labs/finlit/internal/vector"
)

// Ensure Retriever implements the interface.
var _ driving.SearchService = (*Retriever)(nil)

// Retriever finds diverse evidence for a query: it expands the query
// with synonyms, fetches nearest neighbours and re-ranks them with MMR.
// It is safe for concurrent use.
type Retriever struct {
	store      driven.VectorStore
	embedder   driven.EmbeddingService
	expansions map[string]string
	keywords   []string
}

// NewRetriever creates a retriever. store and embedder may be nil, in
// which case every search fails with domain.ErrRetrieval.
func NewRetriever(store driven.VectorStore, embedder driven.EmbeddingService, expansions map[string]string) *Retriever {
	keywords := make([]string, 0, len(expansions))
	lowered := make(map[string]string, len(expansions))
	for kw, text := range expansions {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || text == "" {
			continue
		}
		lowered[kw] = text
		keywords = append(keywords, kw)
	}
	sort.Strings(keywords)

	return &Retriever{
		store:      store,
		embedder:   embedder,
		expansions: lowered,
		keywords:   keywords,
	}
}

// ExpandQuery appends the expansion of every keyword found in query.
// The original text is always kept as is.
func (r *Retriever) ExpandQuery(query string) string {
	lower := strings.ToLower(query)
	var sb strings.Builder
	sb.WriteString(query)
	for _, kw := range r.keywords {
		if strings.Contains(lower, kw) {
			sb.WriteByte(' ')
			sb.WriteString(r.expansions[kw])
		}
	}
	return sb.String()
}

// Search returns up to opts.K passages. Failures are reported through
// the result's Err, wrapping domain.ErrRetrieval, and leave it without hits.
func (r *Retriever) Search(ctx context.Context, query string, opts domain.RetrievalOptions) domain.RetrievalResult {
	result := domain.RetrievalResult{Query: query}

	hits, err := r.search(ctx, query, opts)
	if err != nil {
		logger.Warn("retrieval failed: %v", err)
		result.Err = fmt.Errorf("%w: %w", domain.ErrRetrieval, err)
		return result
	}
	result.Hits = hits
	return result
}

func (r *Retriever) search(ctx context.Context, query string, opts domain.RetrievalOptions) ([]domain.Hit, error) {
	if r.store == nil {
		return nil, domain.ErrStoreUnavailable
	}
	if r.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if opts.K <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, opts.K)
	}
	if opts.FetchK < opts.K {
		opts.FetchK = opts.K
	}
	if opts.Diversity < 0 || opts.Diversity > 1 {
		return nil, fmt.Errorf("%w: diversity must be in [0, 1], got %g", domain.ErrInvalidInput, opts.Diversity)
	}

	expanded := r.ExpandQuery(query)
	logger.Debug("retriever: expanded query %q", expanded)

	vec, err := r.embedder.Embed(ctx, expanded)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	candidates, err := r.store.Search(ctx, vec, opts.FetchK)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	embeddings := make([][]float32, len(candidates))
	for i, c := range candidates {
		embeddings[i] = c.Record.Embedding
	}
	selected := vector.MMR(vec, embeddings, opts.K, opts.Diversity)

	hits := make([]domain.Hit, 0, len(selected))
	for _, idx := range selected {
		c := candidates[idx]
		hits = append(hits, domain.Hit{
			Text:     c.Record.Text,
			Metadata: c.Record.Metadata,
			Score:    c.Similarity,
		})
	}
	logger.Debug("retriever: %d candidates, %d selected", len(candidates), len(hits))
	return hits, nil
}
