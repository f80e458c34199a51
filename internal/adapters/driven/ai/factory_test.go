package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
)

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.EmbeddingSettings
		wantNil  bool
		wantErr  bool
	}{
		{name: "nil settings", settings: nil, wantNil: true},
		{name: "unconfigured", settings: &domain.EmbeddingSettings{}, wantNil: true},
		{name: "openai without key", settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI}, wantNil: true},
		{name: "ollama", settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "nomic-embed-text"}},
		{name: "openai", settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, APIKey: "sk"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			assert.NoError(t, svc.Close())
		})
	}
}

func TestCreateChatModel(t *testing.T) {
	model, err := CreateChatModel(&domain.LLMSettings{})
	require.NoError(t, err)
	assert.Nil(t, model)

	model, err = CreateChatModel(&domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "qwen2"})
	require.NoError(t, err)
	require.NotNil(t, model)
	assert.Equal(t, "qwen2", model.ModelName())

	model, err = CreateChatModel(&domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "sk"})
	require.NoError(t, err)
	require.NotNil(t, model)
}

func TestInit_FallsBackToLexical(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI}
	settings.LLM = domain.LLMSettings{Provider: domain.AIProviderOpenAI}

	result, err := Init(&settings)

	require.NoError(t, err)
	defer result.Close()
	assert.True(t, result.FellBack)
	assert.Len(t, result.Warnings, 2)
	assert.Nil(t, result.Chat)
	assert.Equal(t, "lexical", result.Embedding.Name())

	emb, err := result.Embedding.Encode(context.Background(), "hybrid retrieval")
	require.NoError(t, err)
	assert.Empty(t, emb.Dense)
	assert.NotEmpty(t, emb.Sparse)
}

func TestInit_Configured(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "all-minilm"}
	settings.LLM = domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "llama3.2"}

	result, err := Init(&settings)

	require.NoError(t, err)
	defer result.Close()
	assert.False(t, result.FellBack)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, "all-minilm+lexical", result.Embedding.Name())
	require.NotNil(t, result.Chat)
}

func TestConfigValidator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	var v driven.AIConfigValidator = NewConfigValidator()

	assert.NoError(t, v.ValidateEmbedding(nil))
	assert.NoError(t, v.ValidateLLM(&domain.LLMSettings{}))
	assert.NoError(t, v.ValidateEmbedding(&domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: server.URL}))
	assert.NoError(t, v.ValidateLLM(&domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: server.URL}))
}

func TestConfigValidator_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	v := NewConfigValidator()

	assert.ErrorIs(t, v.ValidateEmbedding(&domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: url}),
		domain.ErrEmbeddingUnavailable)
	assert.ErrorIs(t, v.ValidateLLM(&domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: url}),
		domain.ErrLLMUnavailable)
}
