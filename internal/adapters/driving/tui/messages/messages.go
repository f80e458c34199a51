// Package messages holds the tea.Msg types exchanged between the TUI views.
package messages

import (
	"github.com/custodia-labs/tinyrag/internal/core/domain"
)

type QuestionSubmitted struct {
	Question string
}

// AnswerFrame delivers one frame together with the stream it came from, so
// the receiver can schedule the next read.
type AnswerFrame struct {
	Frame  domain.ChatFrame
	Stream <-chan domain.ChatFrame
}

// AnswerDone follows the last frame of a stream.
type AnswerDone struct{}

// ViewType names a screen. The zero value is the chat screen.
type ViewType int

const (
	ViewChat ViewType = iota
	ViewHelp
	ViewDocuments
	ViewDocContent
)

var viewNames = [...]string{
	ViewChat:       "chat",
	ViewHelp:       "help",
	ViewDocuments:  "documents",
	ViewDocContent: "doc_content",
}

func (v ViewType) String() string {
	if v < 0 || int(v) >= len(viewNames) {
		return "unknown"
	}
	return viewNames[v]
}

type ViewChanged struct {
	View ViewType
}

type ErrorOccurred struct {
	Err error
}

type Quit struct{}

type DocumentsLoaded struct {
	Documents []domain.DocumentRecord
	Err       error
}

type DocumentSelected struct {
	Document domain.DocumentRecord
}

// DocumentChunksLoaded answers a chunk request for the document at Path.
type DocumentChunksLoaded struct {
	Path   string
	Chunks []domain.VectorRecord
	Err    error
}
