package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/tinyrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/tinyrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/tinyrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/tinyrag/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/tinyrag/internal/adapters/driving/tui/views/doccontent"
	"github.com/custodia-labs/tinyrag/internal/adapters/driving/tui/views/documents"
)

var _ tea.Model = (*App)(nil)

// App is the root bubbletea model. It owns the three views and routes
// messages to the active one. Answer frames always reach the chat view so a
// stream keeps filling while the user browses documents.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap
	help   help.Model

	chatView       *chat.View
	documentsView  *documents.View
	docContentView *doccontent.View
	currentView    messages.ViewType

	err           error
	width, height int
	ready         bool
}

func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	h := help.New()
	h.ShowAll = true
	h.Styles.FullKey = s.Subtitle
	h.Styles.FullDesc = s.Normal
	h.Styles.FullSeparator = s.Muted

	return &App{
		ports:          ports,
		ctx:            context.Background(),
		styles:         s,
		keymap:         km,
		help:           h,
		chatView:       chat.NewView(s, km, ports.Chat),
		documentsView:  documents.NewView(s, ports.Document),
		docContentView: doccontent.NewView(s, ports.Document),
		currentView:    messages.ViewChat,
	}, nil
}

// WithContext propagates ctx to every view; cancelling it ends the program.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.chatView.WithContext(ctx)
	a.documentsView.WithContext(ctx)
	a.docContentView.WithContext(ctx)
	return a
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(tea.SetWindowTitle("tinyrag - Chat"), a.chatView.Init())
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if keymap.Matches(msg.String(), a.keymap.Quit) {
			return a, a.quit()
		}
		if a.currentView == messages.ViewHelp {
			a.currentView = messages.ViewChat
			return a, nil
		}
		return a, a.forward(a.currentView, msg)

	case messages.Quit:
		return a, a.quit()

	case messages.AnswerFrame, messages.AnswerDone:
		return a, a.forward(messages.ViewChat, msg)

	case messages.ViewChanged:
		a.currentView = msg.View
		if msg.View == messages.ViewDocuments {
			return a, a.documentsView.Init()
		}
		return a, nil

	case messages.DocumentsLoaded:
		return a, a.forward(messages.ViewDocuments, msg)

	case messages.DocumentSelected:
		a.currentView = messages.ViewDocContent
		doc := msg.Document
		return a, a.docContentView.SetDocument(&doc)

	case messages.DocumentChunksLoaded:
		return a, a.forward(messages.ViewDocContent, msg)

	case messages.ErrorOccurred:
		a.err = msg.Err
		return a, a.forward(a.currentView, msg)
	}

	// Anything else (cursor blink, for one) belongs to the chat input.
	if a.currentView == messages.ViewChat {
		return a, a.forward(messages.ViewChat, msg)
	}
	return a, nil
}

// forward hands msg to the view identified by target. The help view keeps
// no state, so messages for it are dropped.
func (a *App) forward(target messages.ViewType, msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch target {
	case messages.ViewChat:
		a.chatView, cmd = a.chatView.Update(msg)
	case messages.ViewDocuments:
		a.documentsView, cmd = a.documentsView.Update(msg)
	case messages.ViewDocContent:
		a.docContentView, cmd = a.docContentView.Update(msg)
	}
	return cmd
}

func (a *App) quit() tea.Cmd {
	a.chatView.Stop()
	return tea.Quit
}

func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}
	switch a.currentView {
	case messages.ViewDocuments:
		return a.documentsView.View()
	case messages.ViewDocContent:
		return a.docContentView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	}
	return a.chatView.View()
}

func (a *App) viewHelp() string {
	return strings.Join([]string{
		a.styles.Title.Render("Help"),
		a.help.FullHelpView(a.keymap.FullHelp()),
		a.styles.Help.Render("Answers cite the fragments they use as [ID:n]; the references list maps them to files."),
		a.styles.Help.Render("[any key] back to chat"),
	}, "\n\n")
}

// Run blocks until the user quits or the context passed to WithContext ends.
func (a *App) Run() error {
	_, err := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx)).Run()
	return err
}

func (a *App) CurrentView() messages.ViewType { return a.currentView }

func (a *App) ChatView() *chat.View { return a.chatView }

// Err is the last error reported through messages.ErrorOccurred.
func (a *App) Err() error { return a.err }

// Ready reports whether the first window size has arrived.
func (a *App) Ready() bool { return a.ready }

func (a *App) SetDimensions(width, height int) {
	a.width, a.height, a.ready = width, height, true
	a.help.Width = width
	a.chatView.SetDimensions(width, height)
	a.documentsView.SetDimensions(width, height)
	a.docContentView.SetDimensions(width, height)
}
