package ai

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/finlit/internal/core/domain"
)

func ollamaServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func TestInitResult_Close_NilServices(t *testing.T) {
	result := &InitResult{}
	assert.NotPanics(t, result.Close)
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name      string
		settings  *domain.EmbeddingSettings
		wantNil   bool
		wantModel string
	}{
		{name: "nil settings", settings: nil, wantNil: true},
		{name: "unconfigured", settings: &domain.EmbeddingSettings{}, wantNil: true},
		{name: "openai without key", settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI}, wantNil: true},
		{
			name:      "ollama",
			settings:  &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "nomic-embed-text"},
			wantModel: "nomic-embed-text",
		},
		{
			name:      "openai",
			settings:  &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", Model: "text-embedding-3-large"},
			wantModel: "text-embedding-3-large",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			defer svc.Close()
			assert.Equal(t, tt.wantModel, svc.ModelName())
		})
	}
}

func TestCreateEmbeddingService_Dimensions(t *testing.T) {
	svc, err := CreateEmbeddingService(&domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "all-minilm"})
	require.NoError(t, err)
	assert.Equal(t, 384, svc.Dimensions())

	svc, err = CreateEmbeddingService(&domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "custom"})
	require.NoError(t, err)
	assert.Equal(t, 768, svc.Dimensions())
}

func TestCreateGenerator(t *testing.T) {
	tests := []struct {
		name      string
		settings  *domain.LLMSettings
		wantNil   bool
		wantModel string
	}{
		{name: "nil settings", settings: nil, wantNil: true},
		{name: "unknown provider", settings: &domain.LLMSettings{Provider: "unknown", APIKey: "k"}, wantNil: true},
		{
			name:      "ollama",
			settings:  &domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "llama3.2"},
			wantModel: "llama3.2",
		},
		{
			name:      "openai",
			settings:  &domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", Model: "gpt-4o"},
			wantModel: "gpt-4o",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, err := CreateGenerator(tt.settings)
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, gen)
				return
			}
			require.NotNil(t, gen)
			defer gen.Close()
			assert.Equal(t, tt.wantModel, gen.ModelName())
		})
	}
}

func TestCreateAndValidate_Reachable(t *testing.T) {
	srv := ollamaServer(t)

	svc, err := CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: srv.URL})
	require.NoError(t, err)
	assert.NotNil(t, svc)

	gen, err := CreateAndValidateGenerator(&domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: srv.URL})
	require.NoError(t, err)
	assert.NotNil(t, gen)
}

func TestCreateAndValidate_Unreachable(t *testing.T) {
	url := deadURL(t)

	svc, err := CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: url})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "finlit config check")
	assert.Nil(t, svc)

	gen, err := CreateAndValidateGenerator(&domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: url})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Nil(t, gen)
}

func TestInitialise(t *testing.T) {
	srv := ollamaServer(t)

	settings := domain.DefaultAppSettings()
	settings.Embedding.BaseURL = srv.URL
	settings.LLM.BaseURL = deadURL(t)

	result := Initialise(&settings)
	defer result.Close()

	assert.NotNil(t, result.EmbeddingService)
	assert.Nil(t, result.Generator)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "LLM service unavailable")
}
