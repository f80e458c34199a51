package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tinyrag/internal/connectors/filesystem"
	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driving"
)

var ingestPrune bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Index files and directories",
	Long: `Parses, chunks and embeds the given files. Paths may be given as file://
URIs. Directories are walked recursively, skipping hidden entries and files
with unlisted extensions.

Unchanged files are skipped by content hash, so re-running ingest is cheap.
Use --prune to also retract records of files that no longer exist under the
given directories.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

var retractCmd = &cobra.Command{
	Use:   "retract [path...]",
	Short: "Remove files from the index",
	Long:  `Deletes the stored chunks, assets and record of each given file.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRetract,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestPrune, "prune", false, "retract records of vanished files under directories")
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(retractCmd)
}

// ingestStats counts outcomes across one ingest run.
type ingestStats struct {
	indexed   int
	unchanged int
	retracted int
	failed    int
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer closeServices(svc)

	var stats ingestStats
	for _, arg := range args {
		arg = filesystem.ResolvePath(arg)
		info, err := os.Stat(arg)
		if err != nil {
			cmd.PrintErrf("  %s: %v\n", arg, err)
			stats.failed++
			continue
		}

		if !info.IsDir() {
			ingestOne(ctx, cmd, svc.Ingestion, arg, &stats)
			continue
		}

		files, err := walkFiles(arg, svc.Ingestion)
		if err != nil {
			return fmt.Errorf("walking %s: %w", arg, err)
		}
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return err
			}
			ingestOne(ctx, cmd, svc.Ingestion, f, &stats)
		}
		if ingestPrune {
			if err := prune(ctx, cmd, svc, arg, &stats); err != nil {
				return err
			}
		}
	}

	cmd.Printf("Indexed %d, skipped %d, retracted %d, failed %d.\n",
		stats.indexed, stats.unchanged, stats.retracted, stats.failed)
	if stats.failed > 0 {
		return fmt.Errorf("%d files failed", stats.failed)
	}
	return nil
}

func ingestOne(ctx context.Context, cmd *cobra.Command, ingestion driving.IngestionService, path string, stats *ingestStats) {
	if ingestion.Ignore(path) {
		cmd.Printf("  %s: ignored\n", path)
		return
	}

	ids, err := ingestion.Ingest(ctx, path)
	switch {
	case errors.Is(err, domain.ErrMetadataStale):
		// Vectors are stored; the next ingest repairs the record.
		cmd.Printf("  %s: %d chunks (record pending)\n", path, len(ids))
		stats.indexed++
	case err != nil:
		cmd.PrintErrf("  %s: %v\n", path, err)
		stats.failed++
	case ids == nil:
		cmd.Printf("  %s: skipped (empty or unchanged)\n", path)
		stats.unchanged++
	default:
		cmd.Printf("  %s: %d chunks\n", path, len(ids))
		stats.indexed++
	}
}

// prune retracts records under root whose files no longer exist.
func prune(ctx context.Context, cmd *cobra.Command, svc *Services, root string, stats *ingestStats) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	prefix := filepath.Clean(abs) + string(filepath.Separator)

	records, err := svc.Documents.List(ctx)
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}
	for i := range records {
		name := records[i].Name
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if _, err := os.Stat(name); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := svc.Ingestion.Retract(ctx, name); err != nil {
			cmd.PrintErrf("  %s: %v\n", name, err)
			stats.failed++
			continue
		}
		cmd.Printf("  %s: retracted\n", name)
		stats.retracted++
	}
	return nil
}

// walkFiles lists the admitted regular files under root, skipping hidden entries.
func walkFiles(root string, ingestion driving.IngestionService) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && !ingestion.Ignore(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func runRetract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer closeServices(svc)

	failed := 0
	for _, arg := range args {
		path := filesystem.ResolvePath(arg)
		if err := svc.Ingestion.Retract(ctx, path); err != nil {
			cmd.PrintErrf("  %s: %v\n", path, err)
			failed++
			continue
		}
		cmd.Printf("  %s: retracted\n", path)
	}
	if failed > 0 {
		return fmt.Errorf("%d files failed", failed)
	}
	return nil
}
