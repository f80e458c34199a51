package driving

import "github.com/custodia-labs/tinyrag/internal/core/domain"

// SettingsService reads and writes the persisted AppSettings.
type SettingsService interface {
	// Get fills unset fields from GetDefaults.
	Get() (*domain.AppSettings, error)
	Save(settings *domain.AppSettings) error
	// Validate rejects settings that can never work, such as an overlap
	// not smaller than the window.
	Validate(settings *domain.AppSettings) error
	GetDefaults() domain.AppSettings
}

// ProviderSettings backs the settings wizard. Each call validates and saves.
type ProviderSettings interface {
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error
	SetChunker(window, overlap int) error
}
