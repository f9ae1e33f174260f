package driven

import "github.com/custodia-labs/finlit/internal/core/domain"

// AIConfigValidator reaches the configured model providers.
// Errors wrap domain.ErrConfiguration when the settings are incomplete,
// and ErrEmbeddingUnavailable or ErrLLMUnavailable when the provider
// cannot be reached.
type AIConfigValidator interface {
	ValidateEmbedding(config *domain.EmbeddingSettings) error
	ValidateLLM(config *domain.LLMSettings) error
}
