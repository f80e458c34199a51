package postprocessors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
)

func textDoc(blocks ...string) *domain.ParsedDocument {
	doc := &domain.ParsedDocument{Path: "/docs/notes.txt"}
	for _, b := range blocks {
		doc.Blocks = append(doc.Blocks, domain.ContentBlock{Type: domain.BlockTypeText, Text: b})
	}
	return doc
}

func TestPipeline_Process(t *testing.T) {
	first := []domain.Chunk{{ID: "1", Content: []byte("first")}}
	second := []domain.Chunk{{ID: "1", Content: []byte("changed")}, {ID: "2", Content: []byte("added")}}

	tests := []struct {
		name  string
		procs []*stubProcessor
		want  []domain.Chunk
	}{
		{"empty pipeline", nil, nil},
		{"single", []*stubProcessor{{name: "a", chunks: first}}, first},
		{"later output wins", []*stubProcessor{{name: "a", chunks: first}, {name: "b", chunks: second}}, second},
		{"passthrough keeps input", []*stubProcessor{{name: "a", chunks: first}, {name: "b"}}, first},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPipeline()
			for _, proc := range tt.procs {
				p.Add(proc)
			}
			assert.Equal(t, len(tt.procs), p.Len())

			got, err := p.Process(context.Background(), textDoc("content"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPipeline_Process_NilDocument(t *testing.T) {
	_, err := NewPipeline().Process(context.Background(), nil)
	assert.Error(t, err)
}

func TestPipeline_Process_WrapsProcessorError(t *testing.T) {
	boom := errors.New("processor failed")
	p := NewPipeline(&stubProcessor{name: "ok"}, &stubProcessor{name: "failing", err: boom})

	_, err := p.Process(context.Background(), textDoc("content"))

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "processor failing")
}

func TestNewPipelineFromConfig_ChunksThenFilters(t *testing.T) {
	p, err := NewPipelineFromConfig(defaultRegistry(), domain.PipelineConfigFor(domain.ChunkerSettings{Window: 2, Overlap: 0}))
	require.NoError(t, err)
	require.Equal(t, 2, p.Len())

	chunks, err := p.Process(context.Background(), textDoc(
		"The first paragraph of notes.",
		"The second paragraph of notes.",
		"tiny",
	))

	require.NoError(t, err)
	require.Len(t, chunks, 1, "the trailing one-word window is filtered")
	assert.Equal(t, "The first paragraph of notes.\n\nThe second paragraph of notes.", string(chunks[0].Content))
}

func TestNewPipelineFromConfig_Errors(t *testing.T) {
	r := defaultRegistry()

	_, err := NewPipelineFromConfig(r, domain.PipelineConfig{Processors: []string{"stemmer"}})
	assert.Error(t, err)

	_, err = NewPipelineFromConfig(r, domain.PipelineConfigFor(domain.ChunkerSettings{Window: 3, Overlap: 5}))
	assert.ErrorIs(t, err, domain.ErrInvalidChunkConfig)
}
