package domain

const unknownDescription = "Unknown"

// AIProvider names a service that can serve embeddings, chat, or both.
type AIProvider string

const (
	// AIProviderOllama is a local Ollama daemon.
	AIProviderOllama AIProvider = "ollama"
	// AIProviderOpenAI is OpenAI or any server speaking its API.
	AIProviderOpenAI AIProvider = "openai"
)

type providerInfo struct {
	description    string
	local          bool
	embeddingModel string
	llmModel       string
}

var providers = map[AIProvider]providerInfo{
	AIProviderOllama: {"Ollama (local)", true, "nomic-embed-text", "llama3.2"},
	AIProviderOpenAI: {"OpenAI (cloud)", false, "text-embedding-3-small", "gpt-4o-mini"},
}

func (p AIProvider) IsValid() bool {
	_, ok := providers[p]
	return ok
}

// RequiresAPIKey is true for every known provider that is not local.
func (p AIProvider) RequiresAPIKey() bool { return p.IsValid() && !p.IsLocal() }

func (p AIProvider) IsLocal() bool { return providers[p].local }

func (p AIProvider) String() string { return string(p) }

func (p AIProvider) Description() string {
	if info, ok := providers[p]; ok {
		return info.description
	}
	return unknownDescription
}

// configured reports whether p is known and has the key it needs.
func configured(p AIProvider, apiKey string) bool {
	return p.IsValid() && (apiKey != "" || !p.RequiresAPIKey())
}

// EmbeddingSettings selects the dense embedding endpoint. Empty BaseURL
// means the provider default; zero RequestsPerSecond disables throttling.
type EmbeddingSettings struct {
	Provider          AIProvider
	Model             string
	BaseURL           string
	APIKey            string
	RequestsPerSecond float64
}

func (e EmbeddingSettings) IsConfigured() bool { return configured(e.Provider, e.APIKey) }

// LLMSettings selects the chat model endpoint.
type LLMSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string
}

func (l LLMSettings) IsConfigured() bool { return configured(l.Provider, l.APIKey) }

// ChunkerSettings controls block windowing.
type ChunkerSettings struct {
	// Window is the number of text blocks per chunk.
	Window int

	// Overlap is the number of trailing blocks repeated at the head of the next chunk.
	Overlap int
}

// RetrievalSettings controls query fan-out and hybrid ranking.
type RetrievalSettings struct {
	// MaxQueries is how many of the latest user turns are searched.
	MaxQueries int

	// Limit is the number of hits requested per query.
	Limit int

	// SparseWeight weights lexical similarity in the hybrid ranker.
	SparseWeight float64

	// DenseWeight weights semantic similarity in the hybrid ranker.
	DenseWeight float64
}

// ChatSettings holds generation configuration.
type ChatSettings struct {
	// BaseContext is the context window granularity.
	BaseContext int

	Temperature      float64
	MaxTokens        int
	TopP             float64
	PresencePenalty  float64
	FrequencyPenalty float64

	// SystemPrompt is prepended to the knowledge context.
	SystemPrompt string
}

// MetadataBackend selects the document record store.
type MetadataBackend string

// Available metadata backends.
const (
	MetadataBackendSQLite   MetadataBackend = "sqlite"
	MetadataBackendPostgres MetadataBackend = "postgres"
)

// IsValid returns true if the backend is recognised.
func (b MetadataBackend) IsValid() bool {
	return b == MetadataBackendSQLite || b == MetadataBackendPostgres
}

// StorageSettings selects storage backends.
type StorageSettings struct {
	Metadata    MetadataBackend
	PostgresDSN string
}

// IngestSettings controls which files are admitted.
type IngestSettings struct {
	// Extensions is the allow-list of file extensions, without dots.
	Extensions []string
}

// WatchSettings controls the watch queue.
type WatchSettings struct {
	// QueueSize is the capacity of the job channel.
	QueueSize int
}

// ServerSettings controls the HTTP endpoint.
type ServerSettings struct {
	Addr string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Chunker   ChunkerSettings
	Retrieval RetrievalSettings
	Chat      ChatSettings
	Storage   StorageSettings
	Ingest    IngestSettings
	Watch     WatchSettings
	Server    ServerSettings
}

// DefaultSystemPrompt is the assistant instruction placed before the knowledge context.
const DefaultSystemPrompt = "You are an intelligent assistant. Answer the question using the " +
	"knowledge base below. If none of the knowledge is relevant, say that the knowledge " +
	"base does not contain the answer. Take the chat history into account."

// DefaultCitationInstruction tells the model how to cite knowledge fragments.
const DefaultCitationInstruction = "When you use a fragment of the knowledge base, cite it by appending\n" +
	"its identifier in the form [ID:n] right after the sentence that relies on it,\n" +
	"for example \"Revenue grew 5% [ID:2].\" Cite at most 4 fragments per sentence,\n" +
	"never invent identifiers and do not cite when no fragment supports the sentence."

// DefaultExtensions returns the default ingestible file extensions.
func DefaultExtensions() []string {
	return []string{"pdf", "docx", "md", "markdown", "txt", "html", "htm"}
}

// DefaultAppSettings returns settings with sensible defaults.
// Both models default to a local Ollama so the tool works without keys.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    DefaultEmbeddingModels()[AIProviderOllama],
		},
		LLM: LLMSettings{
			Provider: AIProviderOllama,
			Model:    DefaultLLMModels()[AIProviderOllama],
		},
		Chunker: ChunkerSettings{
			Window:  6,
			Overlap: 1,
		},
		Retrieval: RetrievalSettings{
			MaxQueries:   3,
			Limit:        4,
			SparseWeight: 0.7,
			DenseWeight:  1.0,
		},
		Chat: ChatSettings{
			BaseContext:  8192,
			Temperature:  0.1,
			MaxTokens:    512,
			TopP:         0.3,
			SystemPrompt: DefaultSystemPrompt,
		},
		Storage: StorageSettings{
			Metadata: MetadataBackendSQLite,
		},
		Ingest: IngestSettings{
			Extensions: DefaultExtensions(),
		},
		Watch: WatchSettings{
			QueueSize: 1024,
		},
		Server: ServerSettings{
			Addr: "127.0.0.1:7860",
		},
	}
}

// AllProviders lists the known providers in menu order.
func AllProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI}
}

// DefaultEmbeddingModels maps each provider to the model used when none is set.
func DefaultEmbeddingModels() map[AIProvider]string {
	out := make(map[AIProvider]string, len(providers))
	for p, info := range providers {
		out[p] = info.embeddingModel
	}
	return out
}

// DefaultLLMModels maps each provider to the chat model used when none is set.
func DefaultLLMModels() map[AIProvider]string {
	out := make(map[AIProvider]string, len(providers))
	for p, info := range providers {
		out[p] = info.llmModel
	}
	return out
}

// PipelineConfig names the post-processors to run in order, with an
// optional option map per processor.
type PipelineConfig struct {
	Processors       []string
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns nil for processors without options.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	return c.ProcessorConfigs[name]
}

// PipelineConfigFor builds the ingestion pipeline: windowing then the noise filter.
func PipelineConfigFor(c ChunkerSettings) PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker", "filter"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"window":  c.Window,
				"overlap": c.Overlap,
			},
		},
	}
}
