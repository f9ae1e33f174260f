package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/finlit/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage application settings",
	Long: `View and change finlit settings, stored in ~/.finlit/config.toml.

The OpenAI API key may also be supplied through the OPENAI_API_KEY
environment variable or a .env file in the working directory.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Long: `Sets a single setting by its dotted key, for example:

  finlit config set chunking.size 1200
  finlit config set retrieval.diversity 0.3
  finlit config set router.debt_triggers "debt ratio,can i afford"
  finlit config set retrieval.expansions.zakat "zakat alms religious giving"

Lists are comma separated. An empty expansion removes that keyword.
The change is rejected if it leaves the settings invalid.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate settings and reach the model providers",
	Args:  cobra.NoArgs,
	RunE:  runConfigCheck,
}

var configEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure the embedding provider interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return configureProvider(cmd, bufio.NewReader(cmd.InOrStdin()), embeddingTarget)
	},
}

var configLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure the answer model provider interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return configureProvider(cmd, bufio.NewReader(cmd.InOrStdin()), llmTarget)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configCheckCmd)
	configCmd.AddCommand(configEmbeddingCmd)
	configCmd.AddCommand(configLLMCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Embedding]")
	printProvider(cmd, settings.Embedding.Provider, settings.Embedding.Model,
		settings.Embedding.BaseURL, settings.Embedding.APIKey, settings.Embedding.IsConfigured())
	cmd.Printf("  Batch size: %d\n", settings.Embedding.BatchSize)
	if settings.Embedding.RequestsPerSecond > 0 {
		cmd.Printf("  Requests/second: %g\n", settings.Embedding.RequestsPerSecond)
	}
	cmd.Println()

	cmd.Println("[LLM]")
	printProvider(cmd, settings.LLM.Provider, settings.LLM.Model,
		settings.LLM.BaseURL, settings.LLM.APIKey, settings.LLM.IsConfigured())
	cmd.Printf("  Temperature: %g\n", settings.LLM.Temperature)
	cmd.Printf("  Max tokens: %d\n", settings.LLM.MaxTokens)
	cmd.Println()

	ex := settings.Extraction
	cmd.Println("[Extraction]")
	cmd.Printf("  OCR threshold: %d characters\n", ex.OCRThreshold)
	cmd.Printf("  OCR resolution: %d dpi, language %s\n", ex.DPI, ex.Language)
	cmd.Printf("  Image OCR: %t (min %dpx, min area %d, min text %d)\n",
		ex.ExtractImages, ex.MinImageSize, ex.MinImageArea, ex.MinImageTextChars)
	cmd.Printf("  Workers: %d\n", ex.Workers)
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Size: %d\n", settings.Chunking.Size)
	cmd.Printf("  Overlap: %d\n", settings.Chunking.Overlap)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  k: %d, fetch_k: %d, diversity: %g\n",
		settings.Retrieval.K, settings.Retrieval.FetchK, settings.Retrieval.Diversity)
	keywords := make([]string, 0, len(settings.Retrieval.Expansions))
	for kw := range settings.Retrieval.Expansions {
		keywords = append(keywords, kw)
	}
	slices.Sort(keywords)
	cmd.Printf("  Expansions: %s\n", strings.Join(keywords, ", "))
	cmd.Println()

	r := settings.Router
	cmd.Println("[Router]")
	cmd.Printf("  Compound triggers: %s\n", strings.Join(r.CompoundTriggers, ", "))
	cmd.Printf("  Budget triggers: %s\n", strings.Join(r.BudgetTriggers, ", "))
	cmd.Printf("  Debt triggers: %s\n", strings.Join(r.DebtTriggers, ", "))
	cmd.Printf("  Defaults: principal %g, rate %g%%, %d years\n", r.DefaultPrincipal, r.DefaultRate, r.DefaultYears)
	cmd.Println()

	cmd.Println("[Store]")
	cmd.Printf("  Backend: %s\n", settings.Store.Backend)
	if settings.Store.DataDir != "" {
		cmd.Printf("  Data dir: %s\n", settings.Store.DataDir)
	}
	cmd.Printf("  Collection: %s\n", settings.Store.Collection)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'finlit config set' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func printProvider(cmd *cobra.Command, provider domain.AIProvider, model, baseURL, apiKey string, configured bool) {
	cmd.Printf("  Provider: %s\n", provider.Description())
	cmd.Printf("  Model: %s\n", model)
	if baseURL != "" {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key, value := args[0], args[1]
	if err := settingsService.SetValue(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	shown := value
	if strings.HasSuffix(key, "api_key") {
		shown = maskAPIKey(value)
	}
	cmd.Printf("Set %s = %s\n", key, shown)
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	var failed []string
	check := func(name string, fn func() error) {
		cmd.Printf("%-12s ", name+":")
		if err := fn(); err != nil {
			cmd.Printf("FAILED\n  %v\n", err)
			failed = append(failed, name)
			return
		}
		cmd.Println("OK")
	}

	check("Settings", settingsService.Validate)
	check("Embedding", settingsService.ValidateEmbeddingConfig)
	check("LLM", settingsService.ValidateLLMConfig)

	if len(failed) > 0 {
		return fmt.Errorf("configuration check failed: %s", strings.Join(failed, ", "))
	}
	return nil
}

// providerTarget describes one configurable provider slot.
type providerTarget struct {
	label     string
	providers []domain.AIProvider
	defaults  map[domain.AIProvider]string
	set       func(domain.AIProvider, string, string) error
	validate  func() error
}

var (
	embeddingTarget = providerTarget{
		label:     "Embedding",
		providers: domain.AllEmbeddingProviders(),
		defaults:  domain.DefaultEmbeddingModels(),
		set: func(p domain.AIProvider, model, key string) error {
			return settingsService.SetEmbeddingProvider(p, model, key)
		},
		validate: func() error { return settingsService.ValidateEmbeddingConfig() },
	}
	llmTarget = providerTarget{
		label:     "LLM",
		providers: domain.AllLLMProviders(),
		defaults:  domain.DefaultLLMModels(),
		set: func(p domain.AIProvider, model, key string) error {
			return settingsService.SetLLMProvider(p, model, key)
		},
		validate: func() error { return settingsService.ValidateLLMConfig() },
	}
)

func configureProvider(cmd *cobra.Command, reader *bufio.Reader, target providerTarget) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cmd.Printf("Select %s Provider\n", target.label)
	for i, p := range target.providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(target.providers), 1)
	provider := target.providers[idx-1]

	defaultModel := target.defaults[provider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if provider.RequiresAPIKey() {
		cmd.Printf("Enter API key (empty to use %s): ", "OPENAI_API_KEY")
		apiKey = readPassword(cmd.InOrStdin(), reader)
		cmd.Println()
	}

	if err := target.set(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure %s provider: %w", strings.ToLower(target.label), err)
	}

	cmd.Print("Validating configuration... ")
	if err := target.validate(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("%s configuration validation failed: %w", strings.ToLower(target.label), err)
	}
	cmd.Println("OK")

	cmd.Printf("%s provider configured: %s (%s)\n", target.label, provider.Description(), model)
	return nil
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads a secret without echo when in is a terminal.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
