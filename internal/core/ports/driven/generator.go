package driven

import (
	"context"
	"iter"
)

// Generator produces answer text from a grounded prompt.
// This is an optional service - when nil, answers cannot be generated.
//
// Implementations:
//   - Ollama (local models)
//   - OpenAI and compatible endpoints
type Generator interface {
	// Stream sends the prompt and yields text fragments as they arrive.
	// A non-nil error ends the sequence. Breaking out of the range
	// loop cancels the underlying request.
	Stream(ctx context.Context, prompt string, opts GenerateOptions) iter.Seq2[string, error]

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}
