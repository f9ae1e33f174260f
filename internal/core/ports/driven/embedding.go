package driven

import "context"

// EmbeddingService maps text to vectors. A collection must be queried
// with the model it was indexed with; Dimensions and ModelName let
// callers detect a mismatch.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	Dimensions() int
	ModelName() string

	// Ping makes a lightweight request to check the provider is reachable.
	Ping(ctx context.Context) error

	Close() error
}
