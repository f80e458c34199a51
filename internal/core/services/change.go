package services

import (
	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/fingerprint"
)

// ChangeDetector is the idempotence gate of the ingestion pipeline:
// a file whose bytes match the last successfully processed version is
// never reprocessed.
type ChangeDetector struct{}

// NewChangeDetector creates a change detector.
func NewChangeDetector() *ChangeDetector {
	return &ChangeDetector{}
}

// Fingerprint returns the 64-bit content hash of the file bytes.
func (d *ChangeDetector) Fingerprint(content []byte) string {
	return fingerprint.Bytes(content)
}

// ShouldReprocess reports whether content needs ingesting given the stored
// record (nil when the file has none). Empty content is never processed.
func (d *ChangeDetector) ShouldReprocess(content []byte, record *domain.DocumentRecord) bool {
	if len(content) == 0 {
		return false
	}
	if record != nil && record.ContentHash == d.Fingerprint(content) {
		return false
	}
	return true
}
