package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
)

func TestChangeDetector_Fingerprint(t *testing.T) {
	d := NewChangeDetector()

	a := d.Fingerprint([]byte("hello"))
	assert.NotEmpty(t, a)
	assert.Equal(t, a, d.Fingerprint([]byte("hello")))
	assert.NotEqual(t, a, d.Fingerprint([]byte("hello!")))
}

func TestChangeDetector_ShouldReprocess(t *testing.T) {
	d := NewChangeDetector()
	content := []byte("quarterly report")
	stored := &domain.DocumentRecord{Name: "/r.md", ContentHash: d.Fingerprint(content)}

	tests := []struct {
		name    string
		content []byte
		record  *domain.DocumentRecord
		want    bool
	}{
		{"new file", content, nil, true},
		{"unchanged", content, stored, false},
		{"modified", []byte("quarterly report v2"), stored, true},
		{"empty file", nil, nil, false},
		{"emptied file", []byte{}, stored, false},
		{"record without hash", content, &domain.DocumentRecord{Name: "/r.md"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.ShouldReprocess(tt.content, tt.record))
		})
	}
}
