// Package cli provides the tinyrag command line interface.
package cli

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/tinyrag/internal/logger"
)

// version is set by SetVersion from the build.
var version = "dev"

var (
	verbose bool
	dataDir string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "tinyrag",
	Short: "Chat with your local documents",
	Long: `tinyrag indexes local documents into a hybrid vector store and answers
questions about them with cited, streamed responses.

Documents are parsed, chunked and embedded as they change on disk.
Answers cite the fragments they rely on as [ID:n].`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initRoot,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.tinyrag)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file supplying API keys")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute runs the root command with ctx. Command output goes to stdout.
func Execute(ctx context.Context) error {
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

// longRunning marks commands whose log lines carry timestamps.
var longRunning = map[string]string{"long-running": "true"}

func initRoot(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	logger.SetTimestamps(cmd.Annotations["long-running"] != "")

	// Existing environment variables win over the file.
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("env file %s: %v", envFile, err)
		}
	}
	return nil
}
