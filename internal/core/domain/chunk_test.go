package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunk_DisplayText(t *testing.T) {
	tests := []struct {
		name     string
		chunk    Chunk
		expected string
	}{
		{
			name:     "text chunk shows content",
			chunk:    Chunk{ContentType: ContentTypeText, Content: []byte("body"), ExtraDescription: []byte("ignored")},
			expected: "body",
		},
		{
			name:     "image chunk shows description",
			chunk:    Chunk{ContentType: ContentTypeImage, Content: []byte{0x89, 0x50}, ExtraDescription: []byte("a cat")},
			expected: "a cat",
		},
		{
			name:     "table chunk shows description",
			chunk:    Chunk{ContentType: ContentTypeTable, Content: []byte("<table/>"), ExtraDescription: []byte("Table 1")},
			expected: "Table 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.chunk.DisplayText())
		})
	}
}

func TestContentBlock_MissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		block   ContentBlock
		missing bool
	}{
		{"text with content", ContentBlock{Type: BlockTypeText, Text: "hello"}, false},
		{"blank text", ContentBlock{Type: BlockTypeText, Text: "  \n"}, true},
		{"equation", ContentBlock{Type: BlockTypeEquation, Text: "E=mc^2"}, false},
		{"image with path and data", ContentBlock{Type: BlockTypeImage, ImagePath: "a.png", ImageData: []byte{1}}, false},
		{"image without path", ContentBlock{Type: BlockTypeImage, ImageData: []byte{1}}, true},
		{"image without data", ContentBlock{Type: BlockTypeImage, ImagePath: "a.png"}, true},
		{"table with body", ContentBlock{Type: BlockTypeTable, TableBody: "<table></table>"}, false},
		{"table without body", ContentBlock{Type: BlockTypeTable}, true},
		{"unknown type", ContentBlock{Type: BlockType("audio"), Text: "x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.missing, tt.block.MissingRequired())
		})
	}
}

func TestContentType_IsValid(t *testing.T) {
	for _, ct := range []ContentType{ContentTypeText, ContentTypeImage, ContentTypeTable, ContentTypeAudio} {
		assert.True(t, ct.IsValid(), ct.String())
	}
	assert.False(t, ContentType("video").IsValid())
}
