package mcp

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/services"
)

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query   string   `json:"query" jsonschema:"the question to retrieve knowledge for"`
	History []string `json:"history,omitempty" jsonschema:"earlier user questions, oldest first, searched alongside the query"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Context    string            `json:"context"`
	References []ReferenceOutput `json:"references"`
	Count      int               `json:"count"`
}

// ReferenceOutput describes the chunk behind one [ID:n] citation.
type ReferenceOutput struct {
	ID          int    `json:"id"`
	ChunkID     string `json:"chunk_id"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	ContentURL  string `json:"content_url,omitempty"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the knowledge base"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer     string            `json:"answer"`
	References []ReferenceOutput `json:"references"`
}

// DocumentsInput is the input schema for the documents tool.
type DocumentsInput struct {
	Prefix string `json:"prefix,omitempty" jsonschema:"only list documents whose path starts with this prefix"`
}

// DocumentsOutput is the output schema for the documents tool.
type DocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentOutput summarises one stored document record.
type DocumentOutput struct {
	Path       string `json:"path"`
	Chunks     int    `json:"chunks"`
	IngestedAt string `json:"ingested_at"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Retrieve cited knowledge fragments from the indexed documents",
	}, s.handleRetrieve)

	if s.ports.Chat != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ask",
			Description: "Answer a question from the indexed documents with [ID:n] citations",
		}, s.handleAsk)
	}

	if s.ports.Document != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "documents",
			Description: "List the indexed documents",
		}, s.handleDocuments)
	}
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, RetrieveOutput{}, errors.New("query is required")
	}

	conversation := make([]domain.ChatMessage, 0, len(input.History)+1)
	for _, q := range input.History {
		conversation = append(conversation, domain.ChatMessage{Role: domain.RoleUser, Content: q})
	}
	conversation = append(conversation, domain.ChatMessage{Role: domain.RoleUser, Content: input.Query})

	knowledge, err := s.ports.Retrieval.Assemble(ctx, conversation)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	refs := referenceOutputs(knowledge.References)
	return nil, RetrieveOutput{
		Context:    knowledge.Context,
		References: refs,
		Count:      len(refs),
	}, nil
}

// handleAsk drains one chat stream and returns the final answer.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, AskOutput{}, errors.New("question is required")
	}

	history := []domain.ChatMessage{{Role: domain.RoleUser, Content: input.Question}}
	var last *domain.FramePayload
	for frame := range s.ports.Chat.StreamAnswer(ctx, history) {
		if frame.IsEnd() {
			continue
		}
		last = frame.Data
	}
	if err := ctx.Err(); err != nil {
		return nil, AskOutput{}, err
	}
	if last == nil {
		return nil, AskOutput{}, errors.New("no answer produced")
	}
	if msg, failed := services.ErrorAnswer(last.Answer); failed {
		return nil, AskOutput{}, errors.New(msg)
	}

	return nil, AskOutput{
		Answer:     last.Answer,
		References: referenceOutputs(last.ReferenceMeta),
	}, nil
}

// handleDocuments handles the documents tool invocation.
func (s *Server) handleDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentsInput,
) (*mcp.CallToolResult, DocumentsOutput, error) {
	records, err := s.ports.Document.List(ctx)
	if err != nil {
		return nil, DocumentsOutput{}, err
	}

	output := DocumentsOutput{Documents: make([]DocumentOutput, 0, len(records))}
	for i := range records {
		if input.Prefix != "" && !strings.HasPrefix(records[i].Name, input.Prefix) {
			continue
		}
		output.Documents = append(output.Documents, documentOutput(&records[i]))
	}
	output.Count = len(output.Documents)

	return nil, output, nil
}

func documentOutput(r *domain.DocumentRecord) DocumentOutput {
	return DocumentOutput{
		Path:       r.Name,
		Chunks:     len(r.ChunkIDs),
		IngestedAt: r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// referenceOutputs flattens a reference map in citation order.
func referenceOutputs(refs domain.ReferenceMeta) []ReferenceOutput {
	ids := make([]int, 0, len(refs))
	for id := range refs {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]ReferenceOutput, len(ids))
	for i, id := range ids {
		ref := refs[id]
		out[i] = ReferenceOutput{
			ID:          id,
			ChunkID:     ref.ChunkID,
			FileName:    ref.FileName,
			ContentType: string(ref.ContentType),
			ContentURL:  ref.ContentURL,
		}
	}
	return out
}
