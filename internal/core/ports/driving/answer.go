package driving

import (
	"context"

	"github.com/custodia-labs/finlit/internal/core/domain"
)

// AnswerService answers user questions from verified evidence only.
type AnswerService interface {
	// Answer classifies the query, runs any calculation, retrieves
	// evidence and starts generation. The returned answer streams text.
	Answer(ctx context.Context, query string) (*domain.Answer, error)
}

// QueryRouter decides whether a query needs a calculation.
type QueryRouter interface {
	// Classify extracts the calculation kind and its parameters.
	Classify(query string) domain.Classification
}
