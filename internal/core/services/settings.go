package services

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/finlit/internal/core/domain"
	"github.com/custodia-labs/finlit/internal/core/ports/driven"
	"github.com/custodia-labs/finlit/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// EnvOpenAIKey supplies the OpenAI API key when none is configured.
const EnvOpenAIKey = "OPENAI_API_KEY"

const defaultOllamaURL = "http://localhost:11434"

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider  = "embedding.provider"
	keyEmbedModel     = "embedding.model"
	keyEmbedBaseURL   = "embedding.base_url"
	keyEmbedAPIKey    = "embedding.api_key"
	keyEmbedBatchSize = "embedding.batch_size"
	keyEmbedRPS       = "embedding.requests_per_second"

	keyLLMProvider    = "llm.provider"
	keyLLMModel       = "llm.model"
	keyLLMBaseURL     = "llm.base_url"
	keyLLMAPIKey      = "llm.api_key"
	keyLLMTemperature = "llm.temperature"
	keyLLMMaxTokens   = "llm.max_tokens"

	keyExtractDPI          = "extraction.dpi"
	keyExtractOCRThreshold = "extraction.ocr_threshold"
	keyExtractImages       = "extraction.extract_images"
	keyExtractMinImageSize = "extraction.min_image_size"
	keyExtractMinImageArea = "extraction.min_image_area"
	keyExtractMinImageText = "extraction.min_image_text_chars"
	keyExtractLanguage     = "extraction.language"
	keyExtractWorkers      = "extraction.workers"

	keyChunkSize    = "chunking.size"
	keyChunkOverlap = "chunking.overlap"

	keyRetrievalK          = "retrieval.k"
	keyRetrievalFetchK     = "retrieval.fetch_k"
	keyRetrievalDiversity  = "retrieval.diversity"
	keyRetrievalExpansions = "retrieval.expansions"

	keyRouterCompound  = "router.compound_triggers"
	keyRouterBudget    = "router.budget_triggers"
	keyRouterDebt      = "router.debt_triggers"
	keyRouterAmount    = "router.amount_pattern"
	keyRouterPrincipal = "router.default_principal"
	keyRouterRate      = "router.default_rate"
	keyRouterYears     = "router.default_years"

	keyStoreBackend    = "store.backend"
	keyStoreDataDir    = "store.data_dir"
	keyStoreCollection = "store.collection"
)

// SettingsService maps the flat config store onto typed application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings. Missing or invalid values
// fall back to defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:             s.getString(keyEmbedModel, ""),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL),
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			BatchSize:         s.getInt(keyEmbedBatchSize, d.Embedding.BatchSize),
			RequestsPerSecond: s.getFloat(keyEmbedRPS, d.Embedding.RequestsPerSecond),
		},
		LLM: domain.LLMSettings{
			Provider:    s.getProvider(keyLLMProvider, d.LLM.Provider),
			Model:       s.getString(keyLLMModel, ""),
			BaseURL:     s.configStore.GetString(keyLLMBaseURL),
			APIKey:      s.configStore.GetString(keyLLMAPIKey),
			Temperature: s.getFloat(keyLLMTemperature, d.LLM.Temperature),
			MaxTokens:   s.getInt(keyLLMMaxTokens, d.LLM.MaxTokens),
		},
		Extraction: domain.ExtractionSettings{
			DPI:               s.getInt(keyExtractDPI, d.Extraction.DPI),
			OCRThreshold:      s.getInt(keyExtractOCRThreshold, d.Extraction.OCRThreshold),
			ExtractImages:     s.getBool(keyExtractImages, d.Extraction.ExtractImages),
			MinImageSize:      s.getInt(keyExtractMinImageSize, d.Extraction.MinImageSize),
			MinImageArea:      s.getInt(keyExtractMinImageArea, d.Extraction.MinImageArea),
			MinImageTextChars: s.getInt(keyExtractMinImageText, d.Extraction.MinImageTextChars),
			Language:          s.getString(keyExtractLanguage, d.Extraction.Language),
			Workers:           s.getInt(keyExtractWorkers, d.Extraction.Workers),
		},
		Chunking: domain.ChunkSettings{
			Size:    s.getInt(keyChunkSize, d.Chunking.Size),
			Overlap: s.getInt(keyChunkOverlap, d.Chunking.Overlap),
		},
		Retrieval: domain.RetrievalSettings{
			K:          s.getInt(keyRetrievalK, d.Retrieval.K),
			FetchK:     s.getInt(keyRetrievalFetchK, d.Retrieval.FetchK),
			Diversity:  s.getFloat(keyRetrievalDiversity, d.Retrieval.Diversity),
			Expansions: s.getExpansions(d.Retrieval.Expansions),
		},
		Router: domain.RouterRules{
			CompoundTriggers: s.getSlice(keyRouterCompound, d.Router.CompoundTriggers),
			BudgetTriggers:   s.getSlice(keyRouterBudget, d.Router.BudgetTriggers),
			DebtTriggers:     s.getSlice(keyRouterDebt, d.Router.DebtTriggers),
			AmountPattern:    s.getString(keyRouterAmount, d.Router.AmountPattern),
			DefaultPrincipal: s.getFloat(keyRouterPrincipal, d.Router.DefaultPrincipal),
			DefaultRate:      s.getFloat(keyRouterRate, d.Router.DefaultRate),
			DefaultYears:     s.getInt(keyRouterYears, d.Router.DefaultYears),
		},
		Store: domain.StoreSettings{
			Backend:    s.getBackend(d.Store.Backend),
			DataDir:    s.configStore.GetString(keyStoreDataDir),
			Collection: s.getString(keyStoreCollection, d.Store.Collection),
		},
	}

	s.applyProviderDefaults(settings)
	return settings, nil
}

// applyProviderDefaults fills in per-provider models, local endpoints
// and environment API keys.
func (s *SettingsService) applyProviderDefaults(settings *domain.AppSettings) {
	e := &settings.Embedding
	if e.Model == "" {
		e.Model = domain.DefaultEmbeddingModels()[e.Provider]
	}
	if e.Provider.IsLocal() && e.BaseURL == "" {
		e.BaseURL = defaultOllamaURL
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		e.APIKey = s.getenv(EnvOpenAIKey)
	}

	l := &settings.LLM
	if l.Model == "" {
		l.Model = domain.DefaultLLMModels()[l.Provider]
	}
	if l.Provider.IsLocal() && l.BaseURL == "" {
		l.BaseURL = defaultOllamaURL
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		l.APIKey = s.getenv(EnvOpenAIKey)
	}
}

type setting struct {
	key   string
	value any
}

// Save persists application settings. API keys are written only when set.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []setting{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedBatchSize, settings.Embedding.BatchSize},
		{keyEmbedRPS, settings.Embedding.RequestsPerSecond},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMTemperature, settings.LLM.Temperature},
		{keyLLMMaxTokens, settings.LLM.MaxTokens},
		{keyExtractDPI, settings.Extraction.DPI},
		{keyExtractOCRThreshold, settings.Extraction.OCRThreshold},
		{keyExtractImages, settings.Extraction.ExtractImages},
		{keyExtractMinImageSize, settings.Extraction.MinImageSize},
		{keyExtractMinImageArea, settings.Extraction.MinImageArea},
		{keyExtractMinImageText, settings.Extraction.MinImageTextChars},
		{keyExtractLanguage, settings.Extraction.Language},
		{keyExtractWorkers, settings.Extraction.Workers},
		{keyChunkSize, settings.Chunking.Size},
		{keyChunkOverlap, settings.Chunking.Overlap},
		{keyRetrievalK, settings.Retrieval.K},
		{keyRetrievalFetchK, settings.Retrieval.FetchK},
		{keyRetrievalDiversity, settings.Retrieval.Diversity},
		{keyRouterCompound, settings.Router.CompoundTriggers},
		{keyRouterBudget, settings.Router.BudgetTriggers},
		{keyRouterDebt, settings.Router.DebtTriggers},
		{keyRouterAmount, settings.Router.AmountPattern},
		{keyRouterPrincipal, settings.Router.DefaultPrincipal},
		{keyRouterRate, settings.Router.DefaultRate},
		{keyRouterYears, settings.Router.DefaultYears},
		{keyStoreBackend, string(settings.Store.Backend)},
		{keyStoreDataDir, settings.Store.DataDir},
		{keyStoreCollection, settings.Store.Collection},
	}
	if settings.Embedding.APIKey != "" {
		values = append(values, setting{keyEmbedAPIKey, settings.Embedding.APIKey})
	}
	if settings.LLM.APIKey != "" {
		values = append(values, setting{keyLLMAPIKey, settings.LLM.APIKey})
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	for kw, text := range settings.Retrieval.Expansions {
		if err := s.configStore.Set(keyRetrievalExpansions+"."+kw, text); err != nil {
			return fmt.Errorf("save expansion %q: %w", kw, err)
		}
	}
	return nil
}

// SetValue parses raw into the type of the named setting and stores it.
// The previous value is restored if the result fails validation.
func (s *SettingsService) SetValue(key, raw string) error {
	value, err := parseValue(key, raw)
	if err != nil {
		return err
	}

	prev, existed := s.configStore.Get(key)
	if err := s.configStore.Set(key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	if err := s.Validate(); err != nil {
		if existed {
			_ = s.configStore.Set(key, prev)
		} else {
			_ = s.configStore.Delete(key)
		}
		return err
	}
	return nil
}

// parseValue converts a command-line value to the type stored under key.
func parseValue(key, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch key {
	case keyEmbedBatchSize, keyLLMMaxTokens, keyExtractDPI, keyExtractOCRThreshold,
		keyExtractMinImageSize, keyExtractMinImageArea, keyExtractMinImageText, keyExtractWorkers,
		keyChunkSize, keyChunkOverlap, keyRetrievalK, keyRetrievalFetchK, keyRouterYears:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be an integer, got %q", domain.ErrInvalidInput, key, raw)
		}
		return n, nil
	case keyEmbedRPS, keyLLMTemperature, keyRetrievalDiversity,
		keyRouterPrincipal, keyRouterRate:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be a number, got %q", domain.ErrInvalidInput, key, raw)
		}
		return f, nil
	case keyExtractImages:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be true or false, got %q", domain.ErrInvalidInput, key, raw)
		}
		return b, nil
	case keyRouterCompound, keyRouterBudget, keyRouterDebt:
		var items []string
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items, nil
	case keyEmbedProvider, keyEmbedModel, keyEmbedBaseURL, keyEmbedAPIKey,
		keyLLMProvider, keyLLMModel, keyLLMBaseURL, keyLLMAPIKey,
		keyExtractLanguage, keyRouterAmount,
		keyStoreBackend, keyStoreDataDir, keyStoreCollection:
		return raw, nil
	default:
		if strings.HasPrefix(key, keyRetrievalExpansions+".") {
			return raw, nil
		}
		return nil, fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" && s.getenv(EnvOpenAIKey) == "" {
		return fmt.Errorf("%w: API key required for %s (or set %s)", domain.ErrInvalidInput, provider, EnvOpenAIKey)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = model
	if model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}
	if provider.IsLocal() {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = defaultOllamaURL
		}
	} else {
		settings.Embedding.BaseURL = ""
	}
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" && s.getenv(EnvOpenAIKey) == "" {
		return fmt.Errorf("%w: API key required for %s (or set %s)", domain.ErrInvalidInput, provider, EnvOpenAIKey)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = model
	if model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}
	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = defaultOllamaURL
		}
	} else {
		settings.LLM.BaseURL = ""
	}
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks that the current settings are usable and reports
// every problem found.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var errs []error
	if err := settings.Chunking.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := settings.Retrieval.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := regexp.Compile(settings.Router.AmountPattern); err != nil {
		errs = append(errs, fmt.Errorf("%w: router amount pattern: %v", domain.ErrConfiguration, err))
	}
	if settings.Embedding.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: embedding batch size must be positive, got %d",
			domain.ErrConfiguration, settings.Embedding.BatchSize))
	}
	if settings.Extraction.Workers <= 0 {
		errs = append(errs, fmt.Errorf("%w: extraction workers must be positive, got %d",
			domain.ErrConfiguration, settings.Extraction.Workers))
	}
	if !settings.Store.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("%w: unknown store backend %q", domain.ErrConfiguration, settings.Store.Backend))
	}
	if settings.Store.Collection == "" {
		errs = append(errs, fmt.Errorf("%w: store collection must not be empty", domain.ErrConfiguration))
	}
	return errors.Join(errs...)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getInt and getFloat treat an explicit zero as a value, not as unset.
func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getSlice(key string, defaultVal []string) []string {
	if val := s.configStore.GetStringSlice(key); len(val) > 0 {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(key))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.StoreBackend) domain.StoreBackend {
	val := s.configStore.GetString(keyStoreBackend)
	if val == "" {
		return defaultVal
	}
	// Unknown backends are kept so Validate can report them.
	return domain.StoreBackend(val)
}

// getExpansions overlays configured expansions on the defaults.
// An empty configured value removes the keyword.
func (s *SettingsService) getExpansions(defaults map[string]string) map[string]string {
	out := make(map[string]string, len(defaults))
	for kw, text := range defaults {
		out[kw] = text
	}
	prefix := keyRetrievalExpansions + "."
	for _, key := range s.configStore.Keys(keyRetrievalExpansions) {
		kw := strings.TrimPrefix(key, prefix)
		text := s.configStore.GetString(key)
		if text == "" {
			delete(out, kw)
			continue
		}
		out[kw] = text
	}
	return out
}

// PipelineConfig returns the cleaner then chunker pipeline for the current chunk settings.
func (s *SettingsService) PipelineConfig() domain.PipelineConfig {
	settings, _ := s.Get()
	return domain.PipelineConfigFor(settings.Chunking)
}
