package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
)

const (
	documentsURI   = "tinyrag://documents"
	documentPrefix = documentsURI + "/"
)

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         documentsURI,
		Name:        "documents",
		Description: "Every indexed document with its chunk count",
		MIMEType:    "application/json",
	}, s.readDocuments)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: documentPrefix + "{path}",
		Name:        "document-chunks",
		Description: "Stored chunks of one document; path is percent-encoded",
		MIMEType:    "text/plain",
	}, s.readDocumentChunks)
}

// readDocuments lists the inventory as JSON, or "[]" without a document port.
func (s *Server) readDocuments(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	out := []DocumentOutput{}
	if s.ports.Document != nil {
		records, err := s.ports.Document.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing documents: %w", err)
		}
		for i := range records {
			out = append(out, documentOutput(&records[i]))
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling documents: %w", err)
	}
	return textResource(req.Params.URI, "application/json", string(data)), nil
}

// readDocumentChunks renders each chunk under a "--- id (type)" header.
// Unknown documents are reported as missing resources.
func (s *Server) readDocumentChunks(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	path := extractDocumentPath(uri)
	if path == "" || s.ports.Document == nil {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	chunks, err := s.ports.Document.Chunks(ctx, path)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil, mcp.ResourceNotFoundError(uri)
	case err != nil:
		return nil, fmt.Errorf("getting document chunks: %w", err)
	}
	return textResource(uri, "text/plain", renderChunks(chunks)), nil
}

func textResource(uri, mimeType, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: mimeType, Text: text}},
	}
}

func renderChunks(chunks []domain.VectorRecord) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = fmt.Sprintf("--- %s (%s)\n%s", c.ID, c.Meta.ContentType, c.Content)
	}
	return strings.Join(parts, "\n\n")
}

// extractDocumentPath decodes the {path} part of tinyrag://documents/{path}.
// It returns "" for other URIs and for malformed escapes.
func extractDocumentPath(uri string) string {
	rest, ok := strings.CutPrefix(uri, documentPrefix)
	if !ok {
		return ""
	}
	path, err := url.PathUnescape(rest)
	if err != nil {
		return ""
	}
	return path
}
