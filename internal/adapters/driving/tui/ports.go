// Package tui is the interactive terminal chat.
package tui

import (
	"github.com/custodia-labs/tinyrag/internal/core/ports/driving"
)

// Ports are the services the TUI drives. Document may be nil, in which case
// the document browser reports that it is unavailable.
type Ports struct {
	Chat     driving.ChatService
	Document driving.DocumentService
}

func NewPorts(chat driving.ChatService, document driving.DocumentService) *Ports {
	return &Ports{Chat: chat, Document: document}
}

func (p *Ports) Validate() error {
	switch {
	case p == nil:
		return ErrInvalidPorts
	case p.Chat == nil:
		return ErrMissingChatService
	}
	return nil
}
