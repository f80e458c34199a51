package memory

import (
	"maps"
	"slices"
	"sync"

	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps flattened settings keys in a map. Nothing is persisted,
// so Save and Load are no-ops.
type ConfigStore struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewConfigStore returns a store seeded with the given keys, if any.
func NewConfigStore(seed ...map[string]any) *ConfigStore {
	s := &ConfigStore{values: make(map[string]any)}
	for _, m := range seed {
		for k, v := range m {
			s.values[k] = cloneValue(v)
		}
	}
	return s
}

func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.values[key]
	return val, ok
}

func (s *ConfigStore) GetString(key string) string {
	return lookup(s, key, func(v any) (string, bool) {
		str, ok := v.(string)
		return str, ok
	})
}

// GetInt accepts the integer and float shapes produced by TOML decoding.
func (s *ConfigStore) GetInt(key string) int {
	return lookup(s, key, func(v any) (int, bool) {
		switch n := v.(type) {
		case int:
			return n, true
		case int64:
			return int(n), true
		case float64:
			return int(n), true
		}
		return 0, false
	})
}

func (s *ConfigStore) GetFloat(key string) float64 {
	return lookup(s, key, func(v any) (float64, bool) {
		switch n := v.(type) {
		case float64:
			return n, true
		case float32:
			return float64(n), true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		}
		return 0, false
	})
}

func (s *ConfigStore) GetBool(key string) bool {
	return lookup(s, key, func(v any) (bool, bool) {
		b, ok := v.(bool)
		return b, ok
	})
}

// GetStringSlice returns a copy. Non-string items of an []any are skipped.
func (s *ConfigStore) GetStringSlice(key string) []string {
	return lookup(s, key, func(v any) ([]string, bool) {
		switch items := v.(type) {
		case []string:
			return slices.Clone(items), true
		case []any:
			out := make([]string, 0, len(items))
			for _, item := range items {
				if str, ok := item.(string); ok {
					out = append(out, str)
				}
			}
			return out, true
		}
		return nil, false
	})
}

func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = cloneValue(value)
	return nil
}

func (s *ConfigStore) Save() error { return nil }

func (s *ConfigStore) Load() error { return nil }

func (s *ConfigStore) Path() string { return ":memory:" }

// Replace drops every key and stores values instead.
func (s *ConfigStore) Replace(values map[string]any) {
	next := make(map[string]any, len(values))
	for k, v := range values {
		next[k] = cloneValue(v)
	}
	s.mu.Lock()
	s.values = next
	s.mu.Unlock()
}

// Snapshot returns a copy of every stored key.
func (s *ConfigStore) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.values)
}

// lookup converts the value under key, yielding the zero value when the key
// is absent or has another type.
func lookup[T any](s *ConfigStore, key string, convert func(any) (T, bool)) T {
	var zero T
	v, ok := s.Get(key)
	if !ok {
		return zero
	}
	if out, ok := convert(v); ok {
		return out
	}
	return zero
}

// cloneValue copies slices so callers cannot mutate stored extension lists.
func cloneValue(v any) any {
	switch items := v.(type) {
	case []string:
		return slices.Clone(items)
	case []any:
		return slices.Clone(items)
	}
	return v
}
