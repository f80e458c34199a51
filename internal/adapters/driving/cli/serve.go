package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/tinyrag/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/tinyrag/internal/core/domain"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat completion API",
	Long: `Starts the HTTP API:

  POST /chat_completion   stream a cited answer as NDJSON frames
  GET  /assets/{name}     images extracted from ingested documents
  GET  /healthz           liveness

With --watch, the directory is also kept in sync with the index.

Example:
  tinyrag serve --addr :8080 --watch ~/notes`,
	RunE: runServe,

	Annotations: longRunning,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from server.addr)")
	serveCmd.Flags().String("watch", "", "directory to keep indexed while serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return fmt.Errorf("getting addr flag: %w", err)
	}
	watch, err := cmd.Flags().GetString("watch")
	if err != nil {
		return fmt.Errorf("getting watch flag: %w", err)
	}

	svc, err := openServices(cmd.Context())
	if err != nil {
		return err
	}
	defer closeServices(svc)

	if svc.Chat == nil {
		return errNoChatModel
	}
	if addr == "" && svc.Settings != nil {
		addr = svc.Settings.Server.Addr
	}
	if addr == "" {
		addr = domain.DefaultAppSettings().Server.Addr
	}

	server := httpapi.NewServer(svc.Chat, httpapi.Config{Addr: addr, AssetsDir: svc.AssetsDir})

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		return server.Run(ctx)
	})
	if watch != "" {
		g.Go(func() error {
			return watchDir(ctx, svc.Queue, watch)
		})
	}

	cmd.Printf("Serving on %s\n", addr)
	return g.Wait()
}
