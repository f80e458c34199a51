// Package domain holds the types every other tinyrag package shares:
// parser output (ContentBlock, ParsedDocument), chunks and their stored
// form (Chunk, VectorRecord), per-file bookkeeping (DocumentRecord) and the
// streamed answer protocol (ChatFrame).
//
// It imports only the standard library; nothing here knows about storage,
// models or transports.
package domain
