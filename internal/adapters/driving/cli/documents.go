package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tinyrag/internal/connectors/filesystem"
	"github.com/custodia-labs/tinyrag/internal/core/domain"
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "List indexed documents",
	Long:    `Lists every indexed document with its chunk count and ingestion time.`,
	RunE:    runDocumentsList,
}

var documentsShowCmd = &cobra.Command{
	Use:   "show [path]",
	Short: "Show the stored chunks of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsShow,
}

func init() {
	documentsCmd.Flags().String("prefix", "", "only list documents under this path")
	documentsCmd.AddCommand(documentsShowCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	prefix, err := cmd.Flags().GetString("prefix")
	if err != nil {
		return fmt.Errorf("getting prefix flag: %w", err)
	}
	if prefix != "" {
		if prefix, err = filepath.Abs(prefix); err != nil {
			return fmt.Errorf("resolving prefix: %w", err)
		}
	}

	svc, err := openServices(cmd.Context())
	if err != nil {
		return err
	}
	defer closeServices(svc)

	records, err := svc.Documents.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	shown := 0
	for i := range records {
		r := &records[i]
		if prefix != "" && !strings.HasPrefix(r.Name, prefix) {
			continue
		}
		cmd.Printf("%s\n", r.Name)
		cmd.Printf("  %d chunks, ingested %s\n", len(r.ChunkIDs), r.CreatedAt.Local().Format(time.DateTime))
		shown++
	}

	if shown == 0 {
		cmd.Println("No documents indexed. Run 'tinyrag ingest <path>' to add some.")
		return nil
	}
	cmd.Printf("\n%d documents\n", shown)
	return nil
}

func runDocumentsShow(cmd *cobra.Command, args []string) error {
	svc, err := openServices(cmd.Context())
	if err != nil {
		return err
	}
	defer closeServices(svc)

	path, err := filepath.Abs(filesystem.ResolvePath(args[0]))
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	chunks, err := svc.Documents.Chunks(cmd.Context(), path)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("document not indexed: %s", path)
	}
	if err != nil {
		return fmt.Errorf("getting chunks: %w", err)
	}

	cmd.Printf("%s (%d chunks)\n", path, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		cmd.Printf("\n--- %s [%s]\n", c.ID, c.Meta.ContentType)
		if c.Meta.ContentURL != "" {
			cmd.Printf("asset: %s\n", c.Meta.ContentURL)
		}
		cmd.Println(c.Content)
	}
	return nil
}
