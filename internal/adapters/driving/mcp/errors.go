// Package mcp provides an MCP (Model Context Protocol) server adapter for tinyrag.
// It lets AI assistants retrieve cited knowledge from the local index.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")
