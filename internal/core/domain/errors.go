package domain

import "errors"

// Sentinels shared across services and adapters. Callers wrap them with
// context and match with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotImplemented  = errors.New("not implemented")
	ErrUnsupportedType = errors.New("unsupported type")

	// Model endpoints that are unset or unreachable.
	ErrLLMUnavailable       = errors.New("LLM service unavailable")
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrInvalidChunkConfig rejects an overlap that is not smaller than the window.
	ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

	// ErrUnsupportedFile means no parser claims the file extension.
	ErrUnsupportedFile = errors.New("unsupported file")

	// ErrMetadataStale means vectors were written but the document record
	// was not. The next content-hash check repairs it.
	ErrMetadataStale = errors.New("document record not persisted")

	ErrQueueClosed = errors.New("queue closed")
)
