package file

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
)

var _ driven.PromptStore = (*PromptStore)(nil)

//go:embed prompts_readme.md
var promptsReadme []byte

var defaultPrompts = map[string]string{
	driven.PromptChatSystem: domain.DefaultSystemPrompt,
	driven.PromptCitation:   domain.DefaultCitationInstruction,
}

// PromptStore serves the chat prompts from <dir>/<name>.txt. The directory
// is seeded with the defaults and a README on the first Load. Any file that
// is missing, empty or unreadable yields the built-in text.
type PromptStore struct {
	dir  string
	seed sync.Once

	mu    sync.RWMutex
	cache map[string]string
}

// NewPromptStore does no I/O. An empty dir means ~/.tinyrag/prompts.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".tinyrag", "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]string)}, nil
}

// Load fails only for names outside driven.PromptChatSystem and
// driven.PromptCitation.
func (s *PromptStore) Load(name string) (string, error) {
	fallback, known := defaultPrompts[name]
	if !known {
		return "", fmt.Errorf("prompt %q: %w", name, domain.ErrNotFound)
	}
	s.seed.Do(s.seedDir)

	s.mu.RLock()
	prompt, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return prompt, nil
	}

	data, err := os.ReadFile(s.path(name))
	prompt = strings.TrimSpace(string(data))
	if err != nil || prompt == "" {
		return fallback, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.cache[name]; ok {
		return cached, nil
	}
	s.cache[name] = prompt
	return prompt, nil
}

// Reload forgets cached prompts so edits on disk are picked up.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	clear(s.cache)
	s.mu.Unlock()
}

func (s *PromptStore) Dir() string { return s.dir }

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

// seedDir writes the default files that do not exist yet. Failures are
// ignored; Load then serves the built-in text.
func (s *PromptStore) seedDir() {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return
	}
	files := map[string][]byte{filepath.Join(s.dir, "README.md"): promptsReadme}
	for name, text := range defaultPrompts {
		files[s.path(name)] = []byte(text + "\n")
	}
	for path, content := range files {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			_ = os.WriteFile(path, content, 0o600)
		}
	}
}
