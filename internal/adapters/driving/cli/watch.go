package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tinyrag/internal/connectors/filesystem"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driving"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Keep the index in step with a directory",
	Long: `Reconciles the index with the directory, then watches it for changes.
New and modified files are re-ingested after a short quiet period; deleted
and renamed files are retracted. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,

	Annotations: longRunning,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer closeServices(svc)

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", args[0])
	return watchDir(ctx, svc.Queue, args[0])
}

// watchDir runs the queue worker and a watcher on dir until ctx is done.
// Queued jobs are drained before it returns.
func watchDir(ctx context.Context, queue driving.WatchQueue, dir string) error {
	root, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", dir, err)
	}

	queue.Start(ctx)
	defer queue.Stop()

	if err := queue.Reconcile(ctx, root); err != nil {
		return fmt.Errorf("reconciling %s: %w", root, err)
	}

	return filesystem.New(root, queue).Watch(ctx)
}
