package cli

import (
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var versionBuild bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("tinyrag version %s\n", version)
		if !versionBuild {
			return
		}
		cmd.Printf("  go:       %s\n", runtime.Version())
		cmd.Printf("  platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		if rev := vcsRevision(); rev != "" {
			cmd.Printf("  commit:   %s\n", rev)
		}
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionBuild, "build", false, "also print Go version, platform and commit")
	rootCmd.AddCommand(versionCmd)
}

// vcsRevision is the commit stamped by the go tool, shortened to 12
// characters. It is empty for builds outside a repository.
func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value[:min(len(s.Value), 12)]
		}
	}
	return ""
}
