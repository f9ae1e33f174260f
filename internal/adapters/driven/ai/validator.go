package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/finlit/internal/core/domain"
	"github.com/custodia-labs/finlit/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator checks provider settings by reaching the provider.
// Unlike Initialise, an unconfigured provider is reported as an error.
type ConfigValidator struct {
	timeout time.Duration
}

// NewConfigValidator creates a validator that waits up to the ping timeout.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{timeout: pingTimeout}
}

// ValidateEmbedding creates the embedding service described by config and pings it.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	if config == nil {
		return fmt.Errorf("%w: no embedding settings", domain.ErrConfiguration)
	}
	if err := checkProvider("embedding", config.Provider, config.APIKey); err != nil {
		return err
	}

	svc, err := CreateEmbeddingService(config)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %s model %s: %w", domain.ErrEmbeddingUnavailable, config.Provider, config.Model, err)
	}
	return nil
}

// ValidateLLM creates the generator described by config and pings it.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	if config == nil {
		return fmt.Errorf("%w: no LLM settings", domain.ErrConfiguration)
	}
	if err := checkProvider("LLM", config.Provider, config.APIKey); err != nil {
		return err
	}

	gen, err := CreateGenerator(config)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	defer gen.Close()

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()
	if err := gen.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %s model %s: %w", domain.ErrLLMUnavailable, config.Provider, config.Model, err)
	}
	return nil
}

func checkProvider(kind string, provider domain.AIProvider, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: unknown %s provider %q", domain.ErrConfiguration, kind, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: %s provider %s needs an API key (config key or OPENAI_API_KEY)",
			domain.ErrConfiguration, kind, provider)
	}
	return nil
}
