package domain

import "fmt"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API or a compatible endpoint.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// BatchSize is the number of texts embedded per request while indexing.
	BatchSize int

	// RequestsPerSecond limits cloud embedding calls. Zero disables limiting.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds generation provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Temperature controls randomness of generated answers.
	Temperature float64

	// MaxTokens caps the length of a generated answer.
	MaxTokens int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ExtractionSettings tunes PDF text recovery.
type ExtractionSettings struct {
	// DPI is the render resolution for full-page OCR.
	DPI int

	// OCRThreshold is the minimum number of characters of page text
	// below which the page is re-read with full-page OCR.
	OCRThreshold int

	// ExtractImages enables OCR of embedded images.
	ExtractImages bool

	// MinImageSize is the minimum width and height, in pixels, of an image worth OCR.
	MinImageSize int

	// MinImageArea is the minimum pixel area of an image worth OCR.
	MinImageArea int

	// MinImageTextChars is the minimum length of image text that is kept.
	MinImageTextChars int

	// Language is the tesseract language code.
	Language string

	// Workers is the number of pages processed concurrently.
	Workers int
}

// ChunkSettings controls how cleaned text is split.
type ChunkSettings struct {
	// Size is the window length in characters.
	Size int

	// Overlap is the number of characters shared by consecutive chunks.
	Overlap int
}

// Validate checks that the window advances.
func (c ChunkSettings) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrConfiguration, c.Size)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", ErrConfiguration, c.Overlap)
	}
	if c.Overlap >= c.Size {
		return fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d",
			ErrConfiguration, c.Overlap, c.Size)
	}
	return nil
}

// RetrievalSettings controls evidence retrieval.
type RetrievalSettings struct {
	// K is the number of passages returned.
	K int

	// FetchK is the MMR candidate pool size.
	FetchK int

	// Diversity is the MMR redundancy weight in [0, 1].
	Diversity float64

	// Expansions maps a trigger keyword to the text appended to
	// queries that contain it.
	Expansions map[string]string
}

// Options returns the per-query retrieval options.
func (r RetrievalSettings) Options() RetrievalOptions {
	return RetrievalOptions{K: r.K, FetchK: r.FetchK, Diversity: r.Diversity}
}

// Validate checks the retrieval parameters.
func (r RetrievalSettings) Validate() error {
	if r.K <= 0 {
		return fmt.Errorf("%w: k must be positive, got %d", ErrConfiguration, r.K)
	}
	if r.FetchK < r.K {
		return fmt.Errorf("%w: fetch_k %d must be at least k %d", ErrConfiguration, r.FetchK, r.K)
	}
	if r.Diversity < 0 || r.Diversity > 1 {
		return fmt.Errorf("%w: diversity must be in [0, 1], got %g", ErrConfiguration, r.Diversity)
	}
	return nil
}

// RouterRules are the lexical rules used to route queries to calculators.
type RouterRules struct {
	// CompoundTriggers route a query to the compound interest calculator.
	CompoundTriggers []string

	// BudgetTriggers route a query to the 50/30/20 budget calculator.
	BudgetTriggers []string

	// DebtTriggers route a query to the debt ratio calculator.
	DebtTriggers []string

	// AmountPattern is a regular expression whose first group captures
	// a currency amount, with optional thousands separators.
	AmountPattern string

	// DefaultPrincipal, DefaultRate and DefaultYears fill in
	// compound interest parameters missing from the query.
	DefaultPrincipal float64
	DefaultRate      float64
	DefaultYears     int
}

// StoreBackend selects the vector store implementation.
type StoreBackend string

// Available store backends.
const (
	StoreBackendSQLite StoreBackend = "sqlite"
	StoreBackendMemory StoreBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StoreBackend) IsValid() bool {
	return b == StoreBackendSQLite || b == StoreBackendMemory
}

// StoreSettings configures the vector store.
type StoreSettings struct {
	// Backend selects the store implementation.
	Backend StoreBackend

	// DataDir is where the SQLite database lives. Empty means ~/.finlit/data.
	DataDir string

	// Collection names the record collection.
	Collection string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding  EmbeddingSettings
	LLM        LLMSettings
	Extraction ExtractionSettings
	Chunking   ChunkSettings
	Retrieval  RetrievalSettings
	Router     RouterRules
	Store      StoreSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// Embeddings and generation default to a local Ollama instance.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:  AIProviderOllama,
			Model:     DefaultEmbeddingModels()[AIProviderOllama],
			BaseURL:   "http://localhost:11434",
			BatchSize: 32,
		},
		LLM: LLMSettings{
			Provider:    AIProviderOllama,
			Model:       DefaultLLMModels()[AIProviderOllama],
			BaseURL:     "http://localhost:11434",
			Temperature: 0.3,
			MaxTokens:   450,
		},
		Extraction: DefaultExtractionSettings(),
		Chunking: ChunkSettings{
			Size:    1500,
			Overlap: 200,
		},
		Retrieval: RetrievalSettings{
			K:          3,
			FetchK:     6,
			Diversity:  0.5,
			Expansions: DefaultExpansions(),
		},
		Router: DefaultRouterRules(),
		Store: StoreSettings{
			Backend:    StoreBackendSQLite,
			Collection: "finance_knowledge",
		},
	}
}

// DefaultExtractionSettings returns the PDF extraction defaults.
func DefaultExtractionSettings() ExtractionSettings {
	return ExtractionSettings{
		DPI:               300,
		OCRThreshold:      60,
		ExtractImages:     true,
		MinImageSize:      100,
		MinImageArea:      10000,
		MinImageTextChars: 20,
		Language:          "eng",
		Workers:           4,
	}
}

// DefaultExpansions returns the default query expansion table.
func DefaultExpansions() map[string]string {
	return map[string]string{
		"budget":    "budgeting 50/30/20 rule expenses spending plan",
		"save":      "saving emergency fund money management",
		"saving":    "savings emergency fund money management",
		"debt":      "loan repayment credit card debt management AKPK",
		"loan":      "borrowing interest repayment debt",
		"invest":    "investment returns risk unit trust ASB",
		"retire":    "retirement EPF KWSP pension",
		"tax":       "income tax LHDN filing relief",
		"insurance": "insurance takaful coverage protection",
		"emergency": "emergency fund savings buffer",
		"credit":    "credit score CCRIS CTOS credit card",
		"inflation": "inflation purchasing power cost of living",
		"compound":  "compound interest growth returns",
	}
}

// DefaultRouterRules returns the default calculation routing rules.
func DefaultRouterRules() RouterRules {
	return RouterRules{
		CompoundTriggers: []string{"compound interest", "grow", "investment return", "savings grow"},
		BudgetTriggers:   []string{"50/30/20", "50 30 20", "budget for", "allocate"},
		DebtTriggers:     []string{"debt ratio", "debt to income", "can i afford"},
		AmountPattern:    `(?:rm|myr|usd|\$)\s*(\d+(?:,\d{3})*(?:\.\d+)?)`,
		DefaultPrincipal: 1000,
		DefaultRate:      5,
		DefaultYears:     10,
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "llama3.2",
		AIProviderOpenAI: "gpt-4o-mini",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config for extensibility - new processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	// Key is processor name, value is processor-specific config.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// PipelineConfigFor returns the cleaner then chunker pipeline for the given chunk settings.
func PipelineConfigFor(chunking ChunkSettings) PipelineConfig {
	return PipelineConfig{
		Processors: []string{"cleaner", "chunker"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": chunking.Size,
				"overlap":    chunking.Overlap,
			},
		},
	}
}
