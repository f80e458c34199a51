// Package assets stores chunk side-files, such as extracted images, on
// the local filesystem. Content URLs are absolute file paths under the
// store's root.
package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.AssetStore = (*Store)(nil)

// Store writes assets into a single flat directory.
type Store struct {
	root string
}

// NewStore creates an asset store rooted at dir.
// If dir is empty, defaults to ~/.tinyrag/assets.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, ".tinyrag", "assets")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving asset directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0700); err != nil {
		return nil, fmt.Errorf("creating asset directory: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the asset directory.
func (s *Store) Root() string {
	return s.root
}

// Save writes data under name and returns its absolute path.
// Names are content-addressed, so an existing file is left as is.
func (s *Store) Save(_ context.Context, name string, data []byte) (string, error) {
	base := filepath.Base(name)
	if base != name || base == "." || base == ".." || strings.HasPrefix(base, ".") {
		return "", fmt.Errorf("%w: asset name %q", domain.ErrInvalidInput, name)
	}

	path := filepath.Join(s.root, base)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	tmp, err := os.CreateTemp(s.root, ".asset-*")
	if err != nil {
		return "", fmt.Errorf("creating asset: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("writing asset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("writing asset: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("renaming asset: %w", err)
	}
	return path, nil
}

// Remove deletes the asset at url. Missing files are not an error and
// paths outside the root are refused.
func (s *Store) Remove(_ context.Context, url string) error {
	path := filepath.Clean(url)
	if filepath.Dir(path) != s.root {
		return fmt.Errorf("%w: %s is not an asset", domain.ErrInvalidInput, url)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing asset: %w", err)
	}
	return nil
}
