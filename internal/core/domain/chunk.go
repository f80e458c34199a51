package domain

import "strings"

// ContentType classifies what a chunk holds.
type ContentType string

// Chunk content types.
const (
	ContentTypeText  ContentType = "text"
	ContentTypeImage ContentType = "image"
	ContentTypeTable ContentType = "table"
	ContentTypeAudio ContentType = "audio"
)

// IsValid returns true if the content type is recognised.
func (c ContentType) IsValid() bool {
	switch c {
	case ContentTypeText, ContentTypeImage, ContentTypeTable, ContentTypeAudio:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (c ContentType) String() string {
	return string(c)
}

// Chunk is the smallest addressable unit of ingested content.
// Chunks are immutable once created; stores reference them by ID.
type Chunk struct {
	// ID is the content-derived fingerprint of Content and ExtraDescription.
	// Two chunks with identical content and description share an ID.
	ID string

	// ContentType is the kind of content held.
	ContentType ContentType

	// Content is the text window, the raw image bytes or the table body.
	Content []byte

	// ExtraDescription is the merged caption text for image and table chunks.
	ExtraDescription []byte

	// ContentURL locates the side-file of an image chunk. The chunker sets
	// it to the asset's source path; ingestion replaces it with the
	// persisted location.
	ContentURL string

	// FileName is the document the chunk was produced from.
	FileName string

	// TableContent carries the table body for table chunks.
	TableContent string
}

// DisplayText returns the text that is embedded, filtered and shown for the chunk:
// the content for text chunks and the extra description for everything else.
func (c *Chunk) DisplayText() string {
	if c.ContentType == ContentTypeText {
		return string(c.Content)
	}
	return string(c.ExtraDescription)
}

// BlockType is the declared type of a parser content block.
type BlockType string

// Content block types.
const (
	BlockTypeText     BlockType = "text"
	BlockTypeEquation BlockType = "equation"
	BlockTypeImage    BlockType = "image"
	BlockTypeTable    BlockType = "table"
)

// ContentBlock is one typed unit of parser output, in reading order.
type ContentBlock struct {
	// Type is the declared block type.
	Type BlockType

	// Text is the content of text and equation blocks.
	Text string

	// TextLevel is the heading level of a text block (0 for body text).
	TextLevel int

	// ImagePath is the source path or archive entry of an image block.
	ImagePath string

	// ImageData is the raw image bytes.
	ImageData []byte

	// Captions are caption fragments for image and table blocks.
	Captions []string

	// Footnotes are footnote fragments for image and table blocks.
	Footnotes []string

	// TableBody is the rendered table of a table block.
	TableBody string

	// PageIndex is the zero-based page the block was found on, when known.
	PageIndex int
}

// MissingRequired reports whether the block lacks a key its type requires.
func (b *ContentBlock) MissingRequired() bool {
	switch b.Type {
	case BlockTypeText, BlockTypeEquation:
		return strings.TrimSpace(b.Text) == ""
	case BlockTypeImage:
		return b.ImagePath == "" || len(b.ImageData) == 0
	case BlockTypeTable:
		return strings.TrimSpace(b.TableBody) == ""
	default:
		return true
	}
}

// ParsedDocument is the output of a Parser for one file.
type ParsedDocument struct {
	// Path is the file that was parsed.
	Path string

	// Blocks are the content blocks in reading order.
	Blocks []ContentBlock
}
