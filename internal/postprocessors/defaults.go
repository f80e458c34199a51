package postprocessors

import (
	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
	"github.com/custodia-labs/tinyrag/internal/postprocessors/chunker"
	"github.com/custodia-labs/tinyrag/internal/postprocessors/filter"
)

// RegisterDefaults adds the built-in "chunker" and "filter" processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("filter", buildFilter)
}

// buildChunker reads "window" and "overlap". An overlap that is not below
// the window is an error, never clamped.
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option
	if n, ok := intOption(cfg, "window"); ok {
		opts = append(opts, chunker.WithWindow(n))
	}
	if n, ok := intOption(cfg, "overlap"); ok {
		opts = append(opts, chunker.WithOverlap(n))
	}
	return chunker.New(opts...)
}

// buildFilter reads "min_chars" and "min_words".
func buildFilter(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []filter.Option
	if n, ok := intOption(cfg, "min_chars"); ok {
		opts = append(opts, filter.WithMinChars(n))
	}
	if n, ok := intOption(cfg, "min_words"); ok {
		opts = append(opts, filter.WithMinWords(n))
	}
	return filter.New(opts...), nil
}

// intOption accepts the integer shapes TOML and JSON decoding produce.
func intOption(cfg map[string]any, key string) (int, bool) {
	switch v := cfg[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}
