package chat

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tinyrag/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/tinyrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/tinyrag/internal/core/domain"
)

// MockChatService replays fixed frames and records each history it received.
type MockChatService struct {
	Frames    []domain.ChatFrame
	Histories [][]domain.ChatMessage
	ctx       context.Context
}

func (m *MockChatService) StreamAnswer(ctx context.Context, history []domain.ChatMessage) <-chan domain.ChatFrame {
	m.ctx = ctx
	m.Histories = append(m.Histories, history)
	out := make(chan domain.ChatFrame, len(m.Frames)+1)
	for _, f := range m.Frames {
		out <- f
	}
	out <- domain.EndFrame()
	close(out)
	return out
}

func answerFrame(answer string, refs domain.ReferenceMeta) domain.ChatFrame {
	return domain.ChatFrame{
		Code:    domain.FrameCodeSuccess,
		Message: "success",
		Data:    &domain.FramePayload{Answer: answer, ReferenceMeta: refs},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+n":
		return tea.KeyMsg{Type: tea.KeyCtrlN}
	case "f1":
		return tea.KeyMsg{Type: tea.KeyF1}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drain runs cmd and feeds the resulting messages back until the stream ends.
func drain(t *testing.T, v *View, cmd tea.Cmd) {
	t.Helper()
	for i := 0; cmd != nil && i < 100; i++ {
		msg := cmd()
		_, cmd = v.Update(msg)
		if _, done := msg.(messages.AnswerDone); done {
			return
		}
	}
}

func newReadyView(chat *MockChatService) *View {
	v := NewView(nil, nil, chat)
	v.SetDimensions(100, 40)
	return v
}

func TestNewView(t *testing.T) {
	v := NewView(nil, nil, nil)

	require.NotNil(t, v)
	assert.NotNil(t, v.styles)
	assert.NotNil(t, v.keymap)
	assert.False(t, v.Ready())
	assert.Empty(t, v.Turns())
	assert.Equal(t, "Initialising...", v.View())
}

func TestView_Init(t *testing.T) {
	v := NewView(nil, nil, nil)

	assert.NotNil(t, v.Init())
}

func TestView_WindowSize(t *testing.T) {
	v := NewView(nil, nil, nil)

	updated, cmd := v.Update(tea.WindowSizeMsg{Width: 120, Height: 50})

	assert.Equal(t, v, updated)
	assert.Nil(t, cmd)
	assert.True(t, v.Ready())
	assert.Equal(t, 120, v.Width())
	assert.Equal(t, 50, v.Height())
	assert.Equal(t, 50-chromeHeight-refsHeight, v.transcript.Height)
}

func TestView_SubmitStreamsAnswer(t *testing.T) {
	refs := domain.ReferenceMeta{0: {ChunkID: "c1", FileName: "/docs/pets.md", ContentType: domain.ContentTypeText}}
	chat := &MockChatService{Frames: []domain.ChatFrame{
		answerFrame("Dogs", refs),
		answerFrame("Dogs like walks [ID:0].", refs),
	}}
	v := newReadyView(chat)
	v.SetQuestion("  what do dogs like?  ")

	_, cmd := v.Update(key("enter"))
	require.NotNil(t, cmd)
	assert.True(t, v.Streaming())
	assert.Equal(t, status.StateStreaming, v.statusbar.State())
	assert.Empty(t, v.input.Value())

	drain(t, v, cmd)

	assert.False(t, v.Streaming())
	require.Len(t, v.Turns(), 2)
	assert.Equal(t, domain.RoleUser, v.Turns()[0].Role)
	assert.Equal(t, "what do dogs like?", v.Turns()[0].Content)
	assert.Equal(t, "Dogs like walks [ID:0].", v.Turns()[1].Content)
	assert.Equal(t, refs, v.Turns()[1].Refs)

	assert.Equal(t, status.StateAnswered, v.statusbar.State())
	assert.Equal(t, 1, v.statusbar.ReferenceCount())

	require.Len(t, chat.Histories, 1)
	assert.Equal(t, []domain.ChatMessage{{Role: domain.RoleUser, Content: "what do dogs like?"}}, chat.Histories[0])

	view := v.View()
	assert.Contains(t, view, "Dogs like walks")
	assert.Contains(t, view, "[ID:0]")
	assert.Contains(t, view, "References (1)")
	assert.Contains(t, view, "/docs/pets.md")
}

func TestView_FollowUpCarriesHistory(t *testing.T) {
	chat := &MockChatService{Frames: []domain.ChatFrame{answerFrame("First answer.", nil)}}
	v := newReadyView(chat)

	v.SetQuestion("first")
	_, cmd := v.Update(key("enter"))
	drain(t, v, cmd)

	v.SetQuestion("second")
	_, cmd = v.Update(key("enter"))
	drain(t, v, cmd)

	require.Len(t, chat.Histories, 2)
	assert.Equal(t, []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "first"},
		{Role: domain.RoleAssistant, Content: "First answer."},
		{Role: domain.RoleUser, Content: "second"},
	}, chat.Histories[1])
}

func TestView_ErrorFrame(t *testing.T) {
	chat := &MockChatService{Frames: []domain.ChatFrame{{
		Code:    domain.FrameCodeError,
		Message: "error",
		Data:    &domain.FramePayload{Answer: "**ERROR**: model offline", ReferenceMeta: domain.ReferenceMeta{}},
	}}}
	v := newReadyView(chat)

	v.SetQuestion("hello")
	_, cmd := v.Update(key("enter"))
	drain(t, v, cmd)

	require.Len(t, v.Turns(), 2)
	assert.True(t, v.Turns()[1].Failed)
	assert.Equal(t, "model offline", v.Turns()[1].Content)
	assert.Equal(t, status.StateError, v.statusbar.State())
	assert.Contains(t, v.View(), "Error: model offline")

	// The failed exchange is not sent as history.
	assert.Empty(t, v.History())
}

func TestView_EmptyStreamDropsQuestion(t *testing.T) {
	v := newReadyView(&MockChatService{})

	v.SetQuestion("hello")
	_, cmd := v.Update(key("enter"))
	drain(t, v, cmd)

	assert.Empty(t, v.Turns())
	assert.Equal(t, "No answer received", v.statusbar.Message())
}

func TestView_EnterWithBlankQuestionDoesNothing(t *testing.T) {
	chat := &MockChatService{}
	v := newReadyView(chat)
	v.SetQuestion("   ")

	_, cmd := v.Update(key("enter"))

	assert.Nil(t, cmd)
	assert.False(t, v.Streaming())
	assert.Empty(t, chat.Histories)
}

func TestView_SubmitWithoutService(t *testing.T) {
	v := NewView(nil, nil, nil)
	v.SetDimensions(80, 24)
	v.SetQuestion("hello")

	_, cmd := v.Update(key("enter"))
	require.NotNil(t, cmd)

	msg := cmd()
	errMsg, ok := msg.(messages.ErrorOccurred)
	require.True(t, ok)
	assert.ErrorIs(t, errMsg.Err, ErrNoChatService)

	v.Update(msg)
	assert.Equal(t, status.StateError, v.statusbar.State())
	assert.ErrorIs(t, v.Err(), ErrNoChatService)
}

func TestView_StopCancelsStream(t *testing.T) {
	chat := &MockChatService{Frames: []domain.ChatFrame{answerFrame("partial", nil)}}
	v := newReadyView(chat)

	v.SetQuestion("hello")
	_, cmd := v.Update(key("enter"))
	require.True(t, v.Streaming())

	_, escCmd := v.Update(key("esc"))
	assert.Nil(t, escCmd)
	require.Error(t, chat.ctx.Err())
	assert.Equal(t, "Answer stopped", v.statusbar.Message())

	drain(t, v, cmd)
	assert.False(t, v.Streaming())
	require.Len(t, v.Turns(), 2)
	assert.Equal(t, "partial", v.Turns()[1].Content)
	assert.Equal(t, status.StateReady, v.statusbar.State())
}

func TestView_KeysIgnoredWhileStreaming(t *testing.T) {
	chat := &MockChatService{Frames: []domain.ChatFrame{answerFrame("a", nil)}}
	v := newReadyView(chat)
	v.SetQuestion("hello")
	v.Update(key("enter"))

	_, cmd := v.Update(key("tab"))

	assert.Nil(t, cmd)
	assert.Empty(t, v.input.Value())
}

func TestView_NavigationKeys(t *testing.T) {
	tests := []struct {
		key  string
		view messages.ViewType
	}{
		{"tab", messages.ViewDocuments},
		{"f1", messages.ViewHelp},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			v := newReadyView(&MockChatService{})

			_, cmd := v.Update(key(tt.key))
			require.NotNil(t, cmd)
			assert.Equal(t, messages.ViewChanged{View: tt.view}, cmd())
		})
	}
}

func TestView_TypingGoesToInput(t *testing.T) {
	v := newReadyView(&MockChatService{})

	v.Update(key("j"))
	v.Update(key("k"))

	assert.Equal(t, "jk", v.input.Value())
}

func TestView_NewChatResets(t *testing.T) {
	chat := &MockChatService{Frames: []domain.ChatFrame{answerFrame("answer", nil)}}
	v := newReadyView(chat)
	v.SetQuestion("hello")
	_, cmd := v.Update(key("enter"))
	drain(t, v, cmd)
	require.NotEmpty(t, v.Turns())

	v.Update(key("ctrl+n"))

	assert.Empty(t, v.Turns())
	assert.True(t, v.references.IsEmpty())
	assert.Equal(t, status.StateReady, v.statusbar.State())
	assert.Contains(t, v.View(), "Ask a question")
}

func TestView_History_SkipsFailedExchanges(t *testing.T) {
	v := NewView(nil, nil, nil)
	v.turns = []Turn{
		{Role: domain.RoleUser, Content: "q1"},
		{Role: domain.RoleAssistant, Content: "a1"},
		{Role: domain.RoleUser, Content: "q2"},
		{Role: domain.RoleAssistant, Content: "boom", Failed: true},
		{Role: domain.RoleUser, Content: "q3"},
		{Role: domain.RoleAssistant, Content: "a3"},
	}

	assert.Equal(t, []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "q1"},
		{Role: domain.RoleAssistant, Content: "a1"},
		{Role: domain.RoleUser, Content: "q3"},
		{Role: domain.RoleAssistant, Content: "a3"},
	}, v.History())
}

func TestView_ErrorOccurred(t *testing.T) {
	v := newReadyView(&MockChatService{})

	_, cmd := v.Update(messages.ErrorOccurred{Err: errors.New("boom")})

	assert.Nil(t, cmd)
	assert.EqualError(t, v.Err(), "boom")
	assert.Equal(t, status.StateError, v.statusbar.State())
}

func TestView_HighlightCitations(t *testing.T) {
	v := NewView(nil, nil, nil)

	out := v.highlightCitations("a [ID:1] b [ID:12]")

	assert.Contains(t, out, "[ID:1]")
	assert.Contains(t, out, "[ID:12]")
	assert.Contains(t, out, "a ")
}

func TestWaitForFrame(t *testing.T) {
	stream := make(chan domain.ChatFrame, 1)
	stream <- answerFrame("x", nil)
	close(stream)

	msg := waitForFrame(stream)()
	frame, ok := msg.(messages.AnswerFrame)
	require.True(t, ok)
	assert.Equal(t, "x", frame.Frame.Data.Answer)

	assert.Equal(t, messages.AnswerDone{}, waitForFrame(stream)())
}
