package ai

import (
	"context"
	"time"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
)

const pingTimeout = 5 * time.Second

var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator builds the provider described by the settings and pings
// it. Unconfigured settings pass, since they only disable a feature.
type ConfigValidator struct{}

func NewConfigValidator() *ConfigValidator { return &ConfigValidator{} }

func (ConfigValidator) ValidateEmbedding(settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil || svc == nil {
		return err
	}
	return ping(svc)
}

func (ConfigValidator) ValidateLLM(settings *domain.LLMSettings) error {
	model, err := CreateChatModel(settings)
	if err != nil || model == nil {
		return err
	}
	return ping(model)
}

type pinger interface {
	Ping(ctx context.Context) error
	Close() error
}

func ping(p pinger) error {
	defer p.Close()
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return p.Ping(ctx)
}
