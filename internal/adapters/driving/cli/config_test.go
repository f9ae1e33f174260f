package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/finlit/internal/core/domain"
)

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Short key",
			input:    "abc123",
			expected: "****",
		},
		{
			name:     "Exactly 8 chars",
			input:    "12345678",
			expected: "****",
		},
		{
			name:     "Long key",
			input:    "sk-1234567890abcdef",
			expected: "sk-1...cdef",
		},
		{
			name:     "Empty key",
			input:    "",
			expected: "****",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, maskAPIKey(tt.input))
		})
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		maxVal     int
		defaultVal int
		expected   int
	}{
		{"Empty input returns default", "", 2, 1, 1},
		{"Valid choice within range", "2", 2, 1, 2},
		{"Choice below minimum returns default", "0", 2, 1, 1},
		{"Choice above maximum returns default", "3", 2, 1, 1},
		{"Invalid input returns default", "abc", 2, 2, 2},
		{"Negative number returns default", "-1", 2, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseChoice(tt.input, tt.maxVal, tt.defaultVal))
		})
	}
}

func TestConfigCmd_Subcommands(t *testing.T) {
	names := make([]string, 0, len(configCmd.Commands()))
	for _, c := range configCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"show", "set", "check", "embedding", "llm"}, names)
}

func TestConfigShow_Defaults(t *testing.T) {
	setupTestServices(t)

	for _, args := range [][]string{{"config"}, {"config", "show"}} {
		out, err := runCommand(args...)
		require.NoError(t, err)

		for _, section := range []string{"[Embedding]", "[LLM]", "[Extraction]", "[Chunking]", "[Retrieval]", "[Router]", "[Store]"} {
			assert.Contains(t, out, section)
		}
		assert.Contains(t, out, "Model: nomic-embed-text")
		assert.Contains(t, out, "Model: llama3.2")
		assert.Contains(t, out, "Size: 1500")
		assert.Contains(t, out, "k: 3, fetch_k: 6, diversity: 0.5")
		assert.Contains(t, out, "Collection: finance_knowledge")
		assert.Contains(t, out, "Configuration is valid.")
		assert.NotContains(t, out, "API Key")
	}
}

func TestConfigSet(t *testing.T) {
	setupTestServices(t)

	out, err := runCommand("config", "set", "chunking.size", "1200")
	require.NoError(t, err)
	assert.Contains(t, out, "Set chunking.size = 1200")

	settings, err := settingsService.Get()
	require.NoError(t, err)
	assert.Equal(t, 1200, settings.Chunking.Size)

	out, err = runCommand("config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Size: 1200")
}

func TestConfigSet_RejectsInvalid(t *testing.T) {
	setupTestServices(t)

	_, err := runCommand("config", "set", "chunking.overlap", "5000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to set chunking.overlap")

	settings, err := settingsService.Get()
	require.NoError(t, err)
	assert.Equal(t, 200, settings.Chunking.Overlap)
}

func TestConfigSet_UnknownKey(t *testing.T) {
	setupTestServices(t)

	_, err := runCommand("config", "set", "chunking.sise", "10")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConfigSet_MasksAPIKey(t *testing.T) {
	setupTestServices(t)

	out, err := runCommand("config", "set", "llm.api_key", "sk-abcdefgh1234")
	require.NoError(t, err)
	assert.Contains(t, out, "Set llm.api_key = sk-a...1234")
	assert.NotContains(t, out, "abcdefgh")
}

func TestConfigSet_RequiresTwoArgs(t *testing.T) {
	setupTestServices(t)

	_, err := runCommand("config", "set", "chunking.size")
	require.Error(t, err)
}

func TestConfigCheck(t *testing.T) {
	setupTestServices(t)

	out, err := runCommand("config", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "Settings:")
	assert.Equal(t, 3, strings.Count(out, "OK"))
}

func TestConfigLLM_Interactive(t *testing.T) {
	setupTestServices(t)
	rootCmd.SetIn(strings.NewReader("2\n\nsk-test-key-123456\n"))

	out, err := runCommand("config", "llm")
	require.NoError(t, err)
	assert.Contains(t, out, "Select LLM Provider")
	assert.Contains(t, out, "Validating configuration... OK")

	settings, err := settingsService.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOpenAI, settings.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", settings.LLM.Model)
	assert.Equal(t, "sk-test-key-123456", settings.LLM.APIKey)
}

func TestConfigEmbedding_InteractiveDefaults(t *testing.T) {
	setupTestServices(t)
	rootCmd.SetIn(strings.NewReader("\nmxbai-embed-large\n"))

	out, err := runCommand("config", "embedding")
	require.NoError(t, err)
	assert.NotContains(t, out, "Enter API key")

	settings, err := settingsService.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, "mxbai-embed-large", settings.Embedding.Model)
}
