package mcp

import (
	"github.com/custodia-labs/tinyrag/internal/core/ports/driving"
)

// Ports are the services behind the MCP tools. Only Retrieval is required;
// the ask tool needs Chat and the resources need Document.
type Ports struct {
	Retrieval driving.RetrievalService
	Chat      driving.ChatService
	Document  driving.DocumentService
}

func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
