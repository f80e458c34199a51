// Command tinyrag indexes local documents and answers questions about them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/tinyrag/internal/adapters/driven/ai"
	"github.com/custodia-labs/tinyrag/internal/adapters/driving/cli"
	"github.com/custodia-labs/tinyrag/internal/app"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	cli.SetServicesOpener(openServices)
	cli.SetSettingsOpener(openSettings)

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func openServices(ctx context.Context, dataDir string) (*cli.Services, error) {
	a, err := app.Open(ctx, app.Options{DataDir: dataDir})
	if err != nil {
		return nil, err
	}

	svc := &cli.Services{
		Settings:  a.Settings,
		Ingestion: a.Ingestor,
		Queue:     a.Queue,
		Retrieval: a.Retrieval,
		Documents: a.Documents,
		AssetsDir: a.AssetsDir,
		Close:     a.Close,
	}
	// Leave the interface nil rather than holding a nil pointer.
	if a.Chat != nil {
		svc.Chat = a.Chat
	}
	return svc, nil
}

func openSettings(dataDir string) (*cli.SettingsPorts, error) {
	settings, err := app.OpenSettings(app.Options{DataDir: dataDir})
	if err != nil {
		return nil, err
	}
	return &cli.SettingsPorts{
		Settings:  settings,
		Providers: settings,
		Validator: ai.NewConfigValidator(),
	}, nil
}
