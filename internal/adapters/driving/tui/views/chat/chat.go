// Package chat provides the conversation view for the TUI.
package chat

import (
	"context"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/tinyrag/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/tinyrag/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/tinyrag/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/tinyrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/tinyrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/tinyrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driving"
	"github.com/custodia-labs/tinyrag/internal/core/services"
)

// Lines reserved around the transcript: header, input box, status bar and spacing.
const (
	chromeHeight = 8
	refsHeight   = 5
)

var citationPattern = regexp.MustCompile(`\[ID:\d+\]`)

// Turn is one message of the transcript.
type Turn struct {
	Role    string
	Content string

	// Refs are the citations of an assistant turn.
	Refs domain.ReferenceMeta

	// Failed marks an assistant turn that ended in an error frame.
	Failed bool
}

// View represents the chat view with transcript, input, references and status bar.
type View struct {
	styles     *styles.Styles
	keymap     *keymap.KeyMap
	input      *input.ChatInput
	references *list.ReferenceList
	statusbar  *status.Bar
	transcript viewport.Model

	chatService driving.ChatService
	ctx         context.Context
	cancel      context.CancelFunc

	turns     []Turn
	streaming bool
	stopped   bool
	width     int
	height    int
	ready     bool
	err       error
}

// NewView creates a new chat view.
func NewView(s *styles.Styles, km *keymap.KeyMap, chatService driving.ChatService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:      s,
		keymap:      km,
		input:       input.NewChatInput(s),
		references:  list.NewReferenceList(s),
		statusbar:   status.NewBar(s, km),
		transcript:  viewport.New(80, 24-chromeHeight-refsHeight),
		chatService: chatService,
		ctx:         context.Background(),
		width:       80,
		height:      24,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerFrame:
		v.handleFrame(msg.Frame)
		return v, waitForFrame(msg.Stream)

	case messages.AnswerDone:
		v.finishAnswer()
		return v, v.input.Focus()

	case messages.ErrorOccurred:
		v.err = msg.Err
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.streaming {
		if keymap.Matches(msg.String(), v.keymap.Cancel) {
			v.Stop()
		}
		return v, nil
	}

	switch {
	case keymap.Matches(msg.String(), v.keymap.Send):
		return v, v.submit(v.input.Question())
	case keymap.Matches(msg.String(), v.keymap.NewChat):
		v.Reset()
		return v, nil
	case keymap.Matches(msg.String(), v.keymap.Documents):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewDocuments}
		}
	case keymap.Matches(msg.String(), v.keymap.Help):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewHelp}
		}
	}

	//nolint:exhaustive // handling only scroll keys
	switch msg.Type {
	case tea.KeyPgUp, tea.KeyPgDown, tea.KeyCtrlU, tea.KeyCtrlD:
		var cmd tea.Cmd
		v.transcript, cmd = v.transcript.Update(msg)
		return v, cmd
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// submit appends the question and starts streaming the answer.
func (v *View) submit(question string) tea.Cmd {
	if question == "" {
		return nil
	}
	if v.chatService == nil {
		return func() tea.Msg {
			return messages.ErrorOccurred{Err: ErrNoChatService}
		}
	}

	history := v.History()
	history = append(history, domain.ChatMessage{Role: domain.RoleUser, Content: question})

	v.turns = append(v.turns,
		Turn{Role: domain.RoleUser, Content: question},
		Turn{Role: domain.RoleAssistant},
	)
	v.input.Reset()
	v.input.Blur()
	v.references.SetReferences(nil)
	v.err = nil
	v.streaming = true
	v.stopped = false
	v.statusbar.Clear()
	v.statusbar.SetState(status.StateStreaming)
	v.refresh()

	ctx, cancel := context.WithCancel(v.ctx)
	v.cancel = cancel
	return waitForFrame(v.chatService.StreamAnswer(ctx, history))
}

// waitForFrame reads the next frame from stream.
func waitForFrame(stream <-chan domain.ChatFrame) tea.Cmd {
	return func() tea.Msg {
		frame, ok := <-stream
		if !ok {
			return messages.AnswerDone{}
		}
		return messages.AnswerFrame{Frame: frame, Stream: stream}
	}
}

// handleFrame replaces the pending answer with the frame's cumulative text.
func (v *View) handleFrame(frame domain.ChatFrame) {
	if frame.IsEnd() || len(v.turns) == 0 {
		return
	}

	last := &v.turns[len(v.turns)-1]
	if last.Role != domain.RoleAssistant {
		return
	}

	if msg, ok := services.ErrorAnswer(frame.Data.Answer); ok {
		last.Failed = true
		last.Content = strings.TrimSpace(msg)
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(last.Content)
	} else {
		last.Content = frame.Data.Answer
		last.Refs = frame.Data.ReferenceMeta
		v.references.SetReferences(frame.Data.ReferenceMeta)
	}
	v.refresh()
}

// finishAnswer ends the streaming state once the stream is closed.
func (v *View) finishAnswer() {
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.streaming = false

	if n := len(v.turns); n > 0 && v.turns[n-1].Failed {
		return
	}
	if n := len(v.turns); n > 0 && v.turns[n-1].Content == "" {
		// Nothing arrived, so the question is dropped too.
		v.turns = v.turns[:n-2]
		v.statusbar.SetState(status.StateReady)
		if v.stopped {
			v.statusbar.SetMessage("Answer stopped")
		} else {
			v.statusbar.SetMessage("No answer received")
		}
		v.refresh()
		return
	}
	if v.statusbar.State() == status.StateStreaming {
		v.statusbar.SetState(status.StateAnswered)
		v.statusbar.SetReferenceCount(v.references.Count())
	}
}

// Stop cancels the answer being streamed. Text received so far is kept.
func (v *View) Stop() {
	if v.cancel != nil {
		v.cancel()
	}
	v.stopped = true
	v.statusbar.SetState(status.StateReady)
	v.statusbar.SetMessage("Answer stopped")
}

// History returns the conversation sent with the next question.
// Failed and empty turns are left out together with their question.
func (v *View) History() []domain.ChatMessage {
	history := make([]domain.ChatMessage, 0, len(v.turns))
	for i := 0; i < len(v.turns); i++ {
		t := v.turns[i]
		if t.Role == domain.RoleUser && i+1 < len(v.turns) {
			next := v.turns[i+1]
			if next.Failed || next.Content == "" {
				i++
				continue
			}
		}
		if t.Failed || t.Content == "" {
			continue
		}
		history = append(history, domain.ChatMessage{Role: t.Role, Content: t.Content})
	}
	return history
}

// refresh re-renders the transcript and scrolls to the latest turn.
func (v *View) refresh() {
	v.transcript.SetContent(v.renderTranscript())
	v.transcript.GotoBottom()
}

// renderTranscript formats every turn, wrapped to the view width.
func (v *View) renderTranscript() string {
	if len(v.turns) == 0 {
		return v.styles.Muted.Render("Ask a question about your documents. Answers cite their sources as [ID:n].")
	}

	wrap := lipgloss.NewStyle().Width(max(v.width-4, 20))
	blocks := make([]string, 0, len(v.turns))
	for _, t := range v.turns {
		var label string
		if t.Role == domain.RoleUser {
			label = v.styles.UserTurn.Render("You")
		} else {
			label = v.styles.AssistantTurn.Render("Assistant")
		}

		var body string
		switch {
		case t.Failed:
			body = v.styles.Error.Render("Error: " + t.Content)
		case t.Content == "" && v.streaming:
			body = v.styles.Muted.Render("...")
		default:
			body = v.highlightCitations(wrap.Render(t.Content))
		}
		blocks = append(blocks, label+"\n"+body)
	}
	return strings.Join(blocks, "\n\n")
}

// highlightCitations styles every [ID:n] marker.
func (v *View) highlightCitations(text string) string {
	return citationPattern.ReplaceAllStringFunc(text, func(m string) string {
		return v.styles.Citation.Render(m)
	})
}

// View renders the chat view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 10)

	// Header
	sections = append(sections, v.styles.Title.Render("tinyrag"), "")

	// Transcript
	sections = append(sections, v.transcript.View())

	// References of the latest answer
	if refs := v.references.View(); refs != "" {
		sections = append(sections, "", refs)
	}

	// Question input
	sections = append(sections, "", v.input.View())

	// Status bar at bottom
	sections = append(sections, v.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.references.SetDimensions(width, refsHeight)
	v.statusbar.SetWidth(width)
	v.transcript.Width = width
	v.transcript.Height = max(height-chromeHeight-refsHeight, 3)
	v.refresh()
}

// Reset clears the conversation. A streaming answer is stopped first.
func (v *View) Reset() {
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.turns = nil
	v.streaming = false
	v.err = nil
	v.input.Reset()
	v.input.Focus()
	v.references.SetReferences(nil)
	v.statusbar.Clear()
	v.refresh()
}

// Turns returns the transcript.
func (v *View) Turns() []Turn {
	return v.turns
}

// Streaming reports whether an answer is being received.
func (v *View) Streaming() bool {
	return v.streaming
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Width returns the current width.
func (v *View) Width() int {
	return v.width
}

// Height returns the current height.
func (v *View) Height() int {
	return v.height
}

// SetQuestion sets the input text.
func (v *View) SetQuestion(q string) {
	v.input.SetValue(q)
}
