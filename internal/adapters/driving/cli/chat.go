package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/tinyrag/internal/adapters/driving/tui"
)

// chatCmd represents the chat command.
var chatCmd = &cobra.Command{
	Use:     "chat",
	Aliases: []string{"tui"},
	Short:   "Launch the interactive chat",
	Long: `Launch the interactive terminal chat for tinyrag.

Questions are answered from your indexed documents and stream in as they
are generated. Answers cite the fragments they use as [ID:n] and the
references list below the transcript maps each citation to its file.

Controls:
  Enter    - Send question
  Esc      - Stop the answer / Back
  Ctrl+N   - New conversation
  Tab      - Browse indexed documents
  F1       - Help
  Ctrl+C   - Quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) (err error) {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	svc, err := openServices(cmd.Context())
	if err != nil {
		return err
	}
	defer closeServices(svc)

	if svc.Chat == nil {
		return errNoChatModel
	}

	app, err := tui.NewApp(tui.NewPorts(svc.Chat, svc.Documents))
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context())

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
