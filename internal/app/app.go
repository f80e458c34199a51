// Package app assembles the ingestion and chat services from settings.
// It is the single place where driven adapters are chosen and wired.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/tinyrag/internal/adapters/driven/ai"
	"github.com/custodia-labs/tinyrag/internal/adapters/driven/assets"
	"github.com/custodia-labs/tinyrag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/tinyrag/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/tinyrag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
	"github.com/custodia-labs/tinyrag/internal/core/services"
	"github.com/custodia-labs/tinyrag/internal/logger"
	"github.com/custodia-labs/tinyrag/internal/parsers"
	"github.com/custodia-labs/tinyrag/internal/parsers/docx"
	"github.com/custodia-labs/tinyrag/internal/parsers/html"
	"github.com/custodia-labs/tinyrag/internal/parsers/markdown"
	"github.com/custodia-labs/tinyrag/internal/parsers/pdf"
	"github.com/custodia-labs/tinyrag/internal/parsers/plaintext"
	"github.com/custodia-labs/tinyrag/internal/postprocessors"
)

// Options locates the data directory.
type Options struct {
	// DataDir holds config.toml, prompts/, data/ and assets/.
	// Empty means ~/.tinyrag.
	DataDir string
}

// App holds the wired services. Close releases stores and model clients.
type App struct {
	Settings        *domain.AppSettings
	SettingsService *services.SettingsService
	Ingestor        *services.Ingestor
	Queue           *services.WatchQueue
	Retrieval       *services.RetrievalAssembler
	Documents       *services.DocumentService

	// Chat is nil when no chat model is configured.
	Chat *services.ChatOrchestrator

	Parsers   *parsers.Registry
	AssetsDir string
	Warnings  []string

	closers []func() error
}

// DefaultDataDir returns ~/.tinyrag.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".tinyrag"), nil
}

// ResolveDataDir returns dir, or the default when dir is empty.
func ResolveDataDir(dir string) (string, error) {
	if dir != "" {
		return filepath.Abs(dir)
	}
	return DefaultDataDir()
}

// OpenSettings opens the settings service without reading or validating
// the settings, so a broken config can still be repaired.
func OpenSettings(opts Options) (*services.SettingsService, error) {
	dir, err := ResolveDataDir(opts.DataDir)
	if err != nil {
		return nil, err
	}
	store, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	return services.NewSettingsService(store), nil
}

// LoadSettings opens the config file and reads the settings without
// touching stores or models.
func LoadSettings(opts Options) (*services.SettingsService, *domain.AppSettings, error) {
	svc, err := OpenSettings(opts)
	if err != nil {
		return nil, nil, err
	}
	settings, err := svc.Get()
	if err != nil {
		return nil, nil, err
	}
	if err := svc.Validate(settings); err != nil {
		return nil, nil, err
	}
	return svc, settings, nil
}

// NewParserRegistry returns a registry holding every built-in parser.
func NewParserRegistry() *parsers.Registry {
	r := parsers.NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(pdf.New())
	r.Register(docx.New())
	return r
}

// Open wires every service from the settings in opts.DataDir.
//
//nolint:funlen // Linear wiring of all adapters
func Open(ctx context.Context, opts Options) (*App, error) {
	dir, err := ResolveDataDir(opts.DataDir)
	if err != nil {
		return nil, err
	}

	settingsService, settings, err := LoadSettings(Options{DataDir: dir})
	if err != nil {
		return nil, err
	}

	a := &App{
		Settings:        settings,
		SettingsService: settingsService,
		AssetsDir:       filepath.Join(dir, "assets"),
	}

	// 1. Stores
	store, err := sqlite.NewStore(filepath.Join(dir, "data"))
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	a.closers = append(a.closers, store.Close)

	metadata, err := openMetadata(ctx, settings, store)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if pg, ok := metadata.(*postgres.MetadataStore); ok {
		a.closers = append(a.closers, pg.Close)
	}
	vectors := store.VectorStore()

	assetStore, err := assets.NewStore(a.AssetsDir)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("opening assets: %w", err)
	}

	// 2. Models
	models, err := ai.Init(settings)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		models.Close()
		return nil
	})
	for _, w := range models.Warnings {
		logger.Warn("%s", w)
	}
	a.Warnings = append(a.Warnings, models.Warnings...)

	// 3. Ingestion
	pipelineCfg, err := settingsService.GetPipelineConfig()
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	pipeline, err := postprocessors.NewPipelineFromConfig(registry, pipelineCfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Parsers = NewParserRegistry()
	a.Ingestor = services.NewIngestor(
		metadata,
		vectors,
		models.Embedding,
		a.Parsers,
		pipeline,
		assetStore,
		services.NewAdmission(settings.Ingest.Extensions),
	)
	a.Queue = services.NewWatchQueue(a.Ingestor, metadata, settings.Watch.QueueSize)

	// 4. Query side
	a.Documents = services.NewDocumentService(metadata, vectors)
	a.Retrieval = services.NewRetrievalAssembler(models.Embedding, vectors, settings.Retrieval)
	if models.Chat != nil {
		a.Chat = services.NewChatOrchestrator(a.Retrieval, models.Chat, settings.Chat)
		prompts, err := file.NewPromptStore(filepath.Join(dir, "prompts"))
		if err != nil {
			logger.Warn("prompts: %v", err)
		} else {
			a.Chat.SetPromptStore(prompts)
		}
	}

	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func openMetadata(ctx context.Context, settings *domain.AppSettings, store *sqlite.Store) (driven.MetadataStore, error) {
	switch settings.Storage.Metadata {
	case domain.MetadataBackendPostgres:
		if settings.Storage.PostgresDSN == "" {
			return nil, fmt.Errorf("%w: storage.postgres_dsn is required for the postgres backend", domain.ErrInvalidInput)
		}
		pg, err := postgres.Open(ctx, settings.Storage.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		return store.MetadataStore(), nil
	}
}
