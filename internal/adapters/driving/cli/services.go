package cli

import (
	"context"
	"errors"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driving"
)

// Services holds the driving ports used by the commands.
type Services struct {
	Settings  *domain.AppSettings
	Ingestion driving.IngestionService
	Queue     driving.WatchQueue
	Retrieval driving.RetrievalService
	Documents driving.DocumentService

	// Chat is nil when no chat model is configured.
	Chat driving.ChatService

	// AssetsDir is where image assets are stored.
	AssetsDir string

	// Close releases stores and model clients.
	Close func() error
}

// SettingsPorts holds what the settings commands need. Opening them never
// touches stores or models.
type SettingsPorts struct {
	Settings  driving.SettingsService
	Providers driving.ProviderSettings
	Validator driven.AIConfigValidator
}

// ServicesOpener builds the services from the data directory.
type ServicesOpener func(ctx context.Context, dataDir string) (*Services, error)

// SettingsOpener builds the settings ports from the data directory.
type SettingsOpener func(dataDir string) (*SettingsPorts, error)

// errNoChatModel is returned by commands that need a chat model.
var errNoChatModel = errors.New("no chat model configured, run 'tinyrag settings llm'")

var (
	openServicesFunc ServicesOpener
	openSettingsFunc SettingsOpener
)

// SetServicesOpener sets how commands obtain their services.
func SetServicesOpener(fn ServicesOpener) {
	openServicesFunc = fn
}

// SetSettingsOpener sets how the settings commands obtain their ports.
func SetSettingsOpener(fn SettingsOpener) {
	openSettingsFunc = fn
}

// openServices opens the services for one command run. Callers must call
// closeServices when done.
func openServices(ctx context.Context) (*Services, error) {
	if openServicesFunc == nil {
		return nil, errors.New("services not configured")
	}
	svc, err := openServicesFunc(ctx, dataDir)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func closeServices(svc *Services) {
	if svc != nil && svc.Close != nil {
		_ = svc.Close()
	}
}

func openSettings() (*SettingsPorts, error) {
	if openSettingsFunc == nil {
		return nil, errors.New("settings service not configured")
	}
	return openSettingsFunc(dataDir)
}
