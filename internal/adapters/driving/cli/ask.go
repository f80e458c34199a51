package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/services"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the indexed documents",
	Long: `Retrieves the fragments relevant to the question and streams a cited
answer from the configured chat model. Citations appear as [ID:n] and are
listed under the answer.

Use --json to print the raw NDJSON frames instead.

Examples:
  tinyrag ask "what does the lease say about pets?"
  tinyrag ask --json "summarise the release notes"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().Bool("json", false, "print NDJSON frames")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("getting json flag: %w", err)
	}

	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}

	svc, err := openServices(cmd.Context())
	if err != nil {
		return err
	}
	defer closeServices(svc)

	if svc.Chat == nil {
		return errNoChatModel
	}

	history := []domain.ChatMessage{{Role: domain.RoleUser, Content: question}}
	frames := svc.Chat.StreamAnswer(cmd.Context(), history)

	if asJSON {
		return writeFrames(cmd.OutOrStdout(), frames)
	}
	return printAnswer(cmd, frames, isTerminal(cmd.OutOrStdout()))
}

// writeFrames encodes each frame on its own line.
func writeFrames(w io.Writer, frames <-chan domain.ChatFrame) error {
	enc := json.NewEncoder(w)
	var writeErr error
	for frame := range frames {
		if writeErr != nil {
			continue
		}
		writeErr = enc.Encode(frame)
	}
	return writeErr
}

// printAnswer renders the final answer and its references. When live is
// set, each cumulative frame's new suffix is printed as it arrives.
func printAnswer(cmd *cobra.Command, frames <-chan domain.ChatFrame, live bool) error {
	var (
		printed string
		final   *domain.FramePayload
	)
	for frame := range frames {
		if frame.IsEnd() {
			continue
		}
		final = frame.Data
		if _, isErr := services.ErrorAnswer(final.Answer); isErr || !live {
			continue
		}
		if strings.HasPrefix(final.Answer, printed) {
			cmd.Print(final.Answer[len(printed):])
			printed = final.Answer
		}
	}

	if final == nil {
		return errors.New("no answer received")
	}
	if msg, ok := services.ErrorAnswer(final.Answer); ok {
		if printed != "" {
			cmd.Println()
		}
		return errors.New(strings.TrimSpace(msg))
	}

	if printed != final.Answer {
		if printed != "" {
			cmd.Print("\n\n")
		}
		cmd.Print(final.Answer)
	}
	cmd.Println()

	if refs := services.FormatReferences(final.ReferenceMeta); refs != "" {
		cmd.Println()
		cmd.Println("References:")
		cmd.Print(refs)
	}
	return nil
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
