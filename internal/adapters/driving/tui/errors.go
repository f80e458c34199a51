package tui

import "errors"

var (
	ErrMissingChatService = errors.New("tui: chat service is required")
	ErrInvalidPorts       = errors.New("tui: invalid ports configuration")
)
