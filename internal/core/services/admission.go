package services

import (
	"path/filepath"
	"sort"
	"strings"
)

// Admission decides which files take part in ingestion. The same rule
// applies to ingest and retract so an ignored file never triggers work.
type Admission struct {
	extensions map[string]bool
}

// NewAdmission creates an admission filter for the given extensions.
// Extensions are matched case-insensitively, with or without a leading dot.
func NewAdmission(extensions []string) *Admission {
	a := &Admission{extensions: make(map[string]bool, len(extensions))}
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			a.extensions[ext] = true
		}
	}
	return a
}

// Ignore reports whether path is hidden or has an extension outside the allow-list.
func (a *Admission) Ignore(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(base), "."))
	return !a.extensions[ext]
}

// Extensions returns the allow-list, sorted.
func (a *Admission) Extensions() []string {
	exts := make([]string, 0, len(a.extensions))
	for ext := range a.extensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// DocumentName returns the record key for a file path: the cleaned absolute path.
func DocumentName(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
