package mcp

import (
	"context"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	knowledge    *domain.KnowledgeContext
	err          error
	conversation []domain.ChatMessage
}

func (m *mockRetrievalService) Assemble(
	_ context.Context,
	conversation []domain.ChatMessage,
) (*domain.KnowledgeContext, error) {
	m.conversation = conversation
	if m.err != nil {
		return nil, m.err
	}
	if m.knowledge == nil {
		return &domain.KnowledgeContext{References: domain.ReferenceMeta{}}, nil
	}
	return m.knowledge, nil
}

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	frames []domain.ChatFrame
}

func (m *mockChatService) StreamAnswer(_ context.Context, _ []domain.ChatMessage) <-chan domain.ChatFrame {
	out := make(chan domain.ChatFrame, len(m.frames)+1)
	for _, f := range m.frames {
		out <- f
	}
	out <- domain.EndFrame()
	close(out)
	return out
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	records []domain.DocumentRecord
	chunks  []domain.VectorRecord
	err     error
	path    string
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.DocumentRecord, error) {
	return m.records, m.err
}

func (m *mockDocumentService) Get(_ context.Context, path string) (*domain.DocumentRecord, error) {
	m.path = path
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.records {
		if m.records[i].Name == path {
			return &m.records[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) Chunks(_ context.Context, path string) ([]domain.VectorRecord, error) {
	m.path = path
	return m.chunks, m.err
}
