// Package ai builds the embedding and chat adapters named in AppSettings.
package ai

import (
	"fmt"

	"github.com/custodia-labs/tinyrag/internal/adapters/driven/embedding/hybrid"
	"github.com/custodia-labs/tinyrag/internal/adapters/driven/embedding/lexical"
	ollamaembed "github.com/custodia-labs/tinyrag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/tinyrag/internal/adapters/driven/embedding/openai"
	ollamallm "github.com/custodia-labs/tinyrag/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/tinyrag/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
)

// InitResult is what Init built. Embedding is never nil; Chat is nil when
// no chat provider is configured.
type InitResult struct {
	Embedding driven.EmbeddingModel
	Chat      driven.ChatModel

	// Warnings explain each degraded capability.
	Warnings []string
	// FellBack is set when Embedding is lexical only.
	FellBack bool

	dense driven.EmbeddingService
}

func (r *InitResult) Close() {
	if r.dense != nil {
		_ = r.dense.Close()
	}
	if r.Chat != nil {
		_ = r.Chat.Close()
	}
}

const fixHint = "Run 'tinyrag settings' to fix"

// Init builds both models without contacting either provider. A missing
// embedding provider degrades to lexical vectors; a missing chat provider
// leaves Chat nil. Both cases add a warning.
func Init(settings *domain.AppSettings) (*InitResult, error) {
	r := &InitResult{}

	dense, err := CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}
	if dense == nil {
		r.FellBack = true
		r.warn("embedding provider %q is not configured, using lexical search only", settings.Embedding.Provider)
	}
	r.dense = dense
	r.Embedding = NewEmbeddingModel(dense)

	if r.Chat, err = CreateChatModel(&settings.LLM); err != nil {
		r.Close()
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrLLMUnavailable, err, fixHint)
	}
	if r.Chat == nil {
		r.warn("llm provider %q is not configured, chat is unavailable", settings.LLM.Provider)
	}
	return r, nil
}

func (r *InitResult) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// NewEmbeddingModel adds lexical vectors to dense, which may be nil.
func NewEmbeddingModel(dense driven.EmbeddingService) driven.EmbeddingModel {
	return hybrid.New(dense, lexical.NewEncoder())
}

// CreateEmbeddingService returns nil, nil for unconfigured settings.
func CreateEmbeddingService(s *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if s == nil || !s.IsConfigured() {
		return nil, nil
	}
	switch s.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: s.BaseURL, Model: s.Model, RequestsPerSecond: s.RequestsPerSecond,
		}), nil
	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model, RequestsPerSecond: s.RequestsPerSecond,
		})
	}
	return nil, fmt.Errorf("unsupported embedding provider: %s", s.Provider)
}

// CreateChatModel returns nil, nil for unconfigured settings.
func CreateChatModel(s *domain.LLMSettings) (driven.ChatModel, error) {
	if s == nil || !s.IsConfigured() {
		return nil, nil
	}
	switch s.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewChatModel(ollamallm.Config{BaseURL: s.BaseURL, Model: s.Model}), nil
	case domain.AIProviderOpenAI:
		return openaillm.NewChatModel(openaillm.Config{APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model})
	}
	return nil, fmt.Errorf("unsupported LLM provider: %s", s.Provider)
}
