package services

import (
	"fmt"
	"os"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var (
	_ driving.SettingsService  = (*SettingsService)(nil)
	_ driving.ProviderSettings = (*SettingsService)(nil)
)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyEmbedRPS         = "embedding.requests_per_second"
	keyLLMProvider      = "llm.provider"
	keyLLMModel         = "llm.model"
	keyLLMBaseURL       = "llm.base_url"
	keyLLMAPIKey        = "llm.api_key"
	keyChunkerWindow    = "chunker.window"
	keyChunkerOverlap   = "chunker.overlap"
	keyFilterMinChars   = "filter.min_chars"
	keyFilterMinWords   = "filter.min_words"
	keyRetrievalQueries = "retrieval.max_queries"
	keyRetrievalLimit   = "retrieval.limit"
	keySparseWeight     = "retrieval.sparse_weight"
	keyDenseWeight      = "retrieval.dense_weight"
	keyChatBaseContext  = "chat.base_context"
	keyChatTemperature  = "chat.temperature"
	keyChatMaxTokens    = "chat.max_tokens"
	keyChatTopP         = "chat.top_p"
	keyChatPresence     = "chat.presence_penalty"
	keyChatFrequency    = "chat.frequency_penalty"
	keyChatSystemPrompt = "chat.system_prompt"
	keyStorageMetadata  = "storage.metadata"
	keyStoragePostgres  = "storage.postgres_dsn"
	keyIngestExtensions = "ingest.extensions"
	keyWatchQueueSize   = "watch.queue_size"
	keyServerAddr       = "server.addr"
)

// Environment variables that supply secrets when the config file has none.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	envEmbedAPIKey  = "TINYRAG_EMBEDDING_API_KEY"
	envLLMAPIKey    = "TINYRAG_LLM_API_KEY"
	envOpenAIAPIKey = "OPENAI_API_KEY"
	envPostgresDSN  = "TINYRAG_POSTGRES_DSN"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		lookupEnv:   os.LookupEnv,
	}
}

// Get retrieves current application settings. Missing or invalid values
// fall back to the defaults; API keys fall back to the environment.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	embedProvider := s.getProvider(keyEmbedProvider, defaults.Embedding.Provider)
	llmProvider := s.getProvider(keyLLMProvider, defaults.LLM.Provider)

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:          embedProvider,
			Model:             s.getString(keyEmbedModel, domain.DefaultEmbeddingModels()[embedProvider]),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL), // No default - empty uses the provider default
			APIKey:            s.secret(keyEmbedAPIKey, envEmbedAPIKey, envOpenAIAPIKey),
			RequestsPerSecond: s.getFloat(keyEmbedRPS, defaults.Embedding.RequestsPerSecond),
		},
		LLM: domain.LLMSettings{
			Provider: llmProvider,
			Model:    s.getString(keyLLMModel, domain.DefaultLLMModels()[llmProvider]),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.secret(keyLLMAPIKey, envLLMAPIKey, envOpenAIAPIKey),
		},
		Chunker: domain.ChunkerSettings{
			Window:  s.getInt(keyChunkerWindow, defaults.Chunker.Window),
			Overlap: s.getIntAllowZero(keyChunkerOverlap, defaults.Chunker.Overlap),
		},
		Retrieval: domain.RetrievalSettings{
			MaxQueries:   s.getInt(keyRetrievalQueries, defaults.Retrieval.MaxQueries),
			Limit:        s.getInt(keyRetrievalLimit, defaults.Retrieval.Limit),
			SparseWeight: s.getFloat(keySparseWeight, defaults.Retrieval.SparseWeight),
			DenseWeight:  s.getFloat(keyDenseWeight, defaults.Retrieval.DenseWeight),
		},
		Chat: domain.ChatSettings{
			BaseContext:      s.getInt(keyChatBaseContext, defaults.Chat.BaseContext),
			Temperature:      s.getFloat(keyChatTemperature, defaults.Chat.Temperature),
			MaxTokens:        s.getInt(keyChatMaxTokens, defaults.Chat.MaxTokens),
			TopP:             s.getFloat(keyChatTopP, defaults.Chat.TopP),
			PresencePenalty:  s.getFloat(keyChatPresence, defaults.Chat.PresencePenalty),
			FrequencyPenalty: s.getFloat(keyChatFrequency, defaults.Chat.FrequencyPenalty),
			SystemPrompt:     s.getString(keyChatSystemPrompt, defaults.Chat.SystemPrompt),
		},
		Storage: domain.StorageSettings{
			Metadata:    s.getBackend(defaults.Storage.Metadata),
			PostgresDSN: s.secret(keyStoragePostgres, envPostgresDSN),
		},
		Ingest: domain.IngestSettings{
			Extensions: defaults.Ingest.Extensions,
		},
		Watch: domain.WatchSettings{
			QueueSize: s.getInt(keyWatchQueueSize, defaults.Watch.QueueSize),
		},
		Server: domain.ServerSettings{
			Addr: s.getString(keyServerAddr, defaults.Server.Addr),
		},
	}

	if exts := s.configStore.GetStringSlice(keyIngestExtensions); len(exts) > 0 {
		settings.Ingest.Extensions = exts
	}

	return settings, nil
}

// Save persists application settings. API keys are only written when set.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := s.Validate(settings); err != nil {
		return err
	}

	values := []struct {
		key   string
		value any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedRPS, settings.Embedding.RequestsPerSecond},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyChunkerWindow, settings.Chunker.Window},
		{keyChunkerOverlap, settings.Chunker.Overlap},
		{keyRetrievalQueries, settings.Retrieval.MaxQueries},
		{keyRetrievalLimit, settings.Retrieval.Limit},
		{keySparseWeight, settings.Retrieval.SparseWeight},
		{keyDenseWeight, settings.Retrieval.DenseWeight},
		{keyChatBaseContext, settings.Chat.BaseContext},
		{keyChatTemperature, settings.Chat.Temperature},
		{keyChatMaxTokens, settings.Chat.MaxTokens},
		{keyChatTopP, settings.Chat.TopP},
		{keyStorageMetadata, string(settings.Storage.Metadata)},
		{keyIngestExtensions, settings.Ingest.Extensions},
		{keyWatchQueueSize, settings.Watch.QueueSize},
		{keyServerAddr, settings.Server.Addr},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	secrets := []struct {
		key   string
		value string
	}{
		{keyEmbedAPIKey, settings.Embedding.APIKey},
		{keyLLMAPIKey, settings.LLM.APIKey},
		{keyStoragePostgres, settings.Storage.PostgresDSN},
	}
	for _, v := range secrets {
		if v.value == "" {
			continue
		}
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	return nil
}

// Validate checks settings for values that can never work.
func (s *SettingsService) Validate(settings *domain.AppSettings) error {
	if settings == nil {
		return domain.ErrInvalidInput
	}
	if !settings.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: embedding provider %q", domain.ErrUnsupportedType, settings.Embedding.Provider)
	}
	if !settings.LLM.Provider.IsValid() {
		return fmt.Errorf("%w: llm provider %q", domain.ErrUnsupportedType, settings.LLM.Provider)
	}
	c := settings.Chunker
	if c.Window < 1 || c.Overlap < 0 || c.Overlap >= c.Window {
		return fmt.Errorf("%w: window %d, overlap %d", domain.ErrInvalidChunkConfig, c.Window, c.Overlap)
	}
	if settings.Retrieval.SparseWeight < 0 || settings.Retrieval.DenseWeight < 0 {
		return fmt.Errorf("%w: negative retrieval weight", domain.ErrInvalidInput)
	}
	if !settings.Storage.Metadata.IsValid() {
		return fmt.Errorf("%w: metadata backend %q", domain.ErrUnsupportedType, settings.Storage.Metadata)
	}
	if settings.Storage.Metadata == domain.MetadataBackendPostgres && settings.Storage.PostgresDSN == "" {
		return fmt.Errorf("%w: postgres backend requires %s", domain.ErrInvalidInput, keyStoragePostgres)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// GetPipelineConfig returns the post-processor pipeline configuration
// for the current chunker and filter settings.
func (s *SettingsService) GetPipelineConfig() (domain.PipelineConfig, error) {
	settings, err := s.Get()
	if err != nil {
		return domain.PipelineConfig{}, err
	}
	cfg := domain.PipelineConfigFor(settings.Chunker)

	filter := make(map[string]any)
	if v, ok := s.configStore.Get(keyFilterMinChars); ok {
		filter["min_chars"] = v
	}
	if v, ok := s.configStore.Get(keyFilterMinWords); ok {
		filter["min_words"] = v
	}
	if len(filter) > 0 {
		cfg.ProcessorConfigs["filter"] = filter
	}
	return cfg, nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getIntAllowZero(key string, defaultVal int) int {
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

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.MetadataBackend) domain.MetadataBackend {
	backend := domain.MetadataBackend(s.configStore.GetString(keyStorageMetadata))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

// secret reads key from config, then the first set environment variable.
func (s *SettingsService) secret(key string, envs ...string) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	for _, env := range envs {
		if val, ok := s.lookupEnv(env); ok && val != "" {
			return val
		}
	}
	return ""
}

// SetEmbeddingProvider configures the embedding provider. An empty model
// selects the provider default.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" && s.secret(keyEmbedAPIKey, envEmbedAPIKey, envOpenAIAPIKey) == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	if model != "" {
		settings.Embedding.Model = model
	} else {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}
	if !provider.IsLocal() {
		settings.Embedding.BaseURL = ""
	}
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the chat model provider. An empty model
// selects the provider default.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" && s.secret(keyLLMAPIKey, envLLMAPIKey, envOpenAIAPIKey) == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	if model != "" {
		settings.LLM.Model = model
	} else {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}
	if !provider.IsLocal() {
		settings.LLM.BaseURL = ""
	}
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetChunker configures the chunk window and overlap.
func (s *SettingsService) SetChunker(window, overlap int) error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Chunker = domain.ChunkerSettings{Window: window, Overlap: overlap}
	return s.Save(settings)
}
