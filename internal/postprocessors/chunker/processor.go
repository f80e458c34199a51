// Package chunker groups parsed content blocks into overlapping text windows
// and isolates image and table blocks as standalone chunks.
package chunker

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/fingerprint"
	"github.com/custodia-labs/tinyrag/internal/logger"
)

// DefaultWindow is the default number of text blocks per chunk.
const DefaultWindow = 6

// DefaultOverlap is the default number of blocks shared by consecutive windows.
const DefaultOverlap = 1

// Caption placeholders for blocks without caption text.
const (
	NoImageCaption = "no caption for this image"
	NoTableCaption = "no caption for this table"
)

// blockSeparator joins the blocks of a text window.
const blockSeparator = "\n\n"

// Processor windows content blocks into chunks.
// It implements the PostProcessor interface.
type Processor struct {
	window  int
	overlap int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithWindow sets the number of text blocks per chunk.
func WithWindow(window int) Option {
	return func(p *Processor) {
		p.window = window
	}
}

// WithOverlap sets the number of trailing blocks repeated at the head of the next chunk.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// New creates a chunker processor. A window below 1, a negative overlap or
// an overlap not smaller than the window is rejected with
// domain.ErrInvalidChunkConfig.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		window:  DefaultWindow,
		overlap: DefaultOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.window < 1 || p.overlap < 0 || p.overlap >= p.window {
		return nil, fmt.Errorf("%w: window %d, overlap %d", domain.ErrInvalidChunkConfig, p.window, p.overlap)
	}

	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Window returns the configured window size.
func (p *Processor) Window() int {
	return p.window
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Process chunks the document's blocks. Incoming chunks are ignored;
// the chunker is always the first processor in a pipeline.
func (p *Processor) Process(_ context.Context, doc *domain.ParsedDocument, _ []domain.Chunk) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}
	return p.Chunk(doc.Path, doc.Blocks), nil
}

// Chunk scans blocks left to right. Text and equation blocks fill the
// current window; image and table blocks are emitted as soon as they are
// seen. A full window is flushed and re-seeded with its last overlap
// blocks. Blocks missing a required field are dropped.
func (p *Processor) Chunk(fileName string, blocks []domain.ContentBlock) []domain.Chunk {
	var (
		chunks []domain.Chunk
		window []string
		fresh  int // blocks in window not yet flushed
	)

	for i := range blocks {
		block := &blocks[i]
		if block.MissingRequired() {
			logger.Warn("chunker: dropping %s block %d of %s: missing required field", block.Type, i, fileName)
			continue
		}

		switch block.Type {
		case domain.BlockTypeImage:
			chunks = append(chunks, imageChunk(fileName, block))
		case domain.BlockTypeTable:
			chunks = append(chunks, tableChunk(fileName, block))
		default:
			window = append(window, strings.TrimSpace(block.Text))
			fresh++
			if len(window) == p.window {
				chunks = append(chunks, textChunk(fileName, window))
				window = append([]string(nil), window[len(window)-p.overlap:]...)
				fresh = 0
			}
		}
	}

	if fresh > 0 {
		chunks = append(chunks, textChunk(fileName, window))
	}

	logger.Debug("chunker: %s: %d blocks -> %d chunks", fileName, len(blocks), len(chunks))
	return chunks
}

func textChunk(fileName string, window []string) domain.Chunk {
	content := []byte(strings.Join(window, blockSeparator))
	return domain.Chunk{
		ID:          fingerprint.ChunkID(content, nil),
		ContentType: domain.ContentTypeText,
		Content:     content,
		FileName:    fileName,
	}
}

func imageChunk(fileName string, block *domain.ContentBlock) domain.Chunk {
	desc := []byte(mergeCaptions(NoImageCaption, block.Captions, block.Footnotes))
	return domain.Chunk{
		ID:               fingerprint.ChunkID(block.ImageData, desc),
		ContentType:      domain.ContentTypeImage,
		Content:          block.ImageData,
		ExtraDescription: desc,
		ContentURL:       block.ImagePath,
		FileName:         fileName,
	}
}

func tableChunk(fileName string, block *domain.ContentBlock) domain.Chunk {
	content := []byte(block.TableBody)
	desc := []byte(mergeCaptions(NoTableCaption, block.Captions, block.Footnotes))
	return domain.Chunk{
		ID:               fingerprint.ChunkID(content, desc),
		ContentType:      domain.ContentTypeTable,
		Content:          content,
		ExtraDescription: desc,
		FileName:         fileName,
		TableContent:     block.TableBody,
	}
}

// mergeCaptions joins the non-empty caption and footnote fragments,
// falling back to placeholder when there are none.
func mergeCaptions(placeholder string, groups ...[]string) string {
	var parts []string
	for _, group := range groups {
		for _, s := range group {
			s = strings.TrimSpace(s)
			if s == "" || s == "[]" {
				continue
			}
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return placeholder
	}
	return strings.Join(parts, blockSeparator)
}
