package postprocessors

import (
	"fmt"
	"maps"
	"slices"

	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
)

// BuilderFunc constructs a processor from its section of the pipeline
// config. A nil map means every option takes its default.
type BuilderFunc func(cfg map[string]any) (driven.PostProcessor, error)

// Registry resolves the processor names listed in a PipelineConfig.
type Registry struct {
	builders map[string]BuilderFunc
}

func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]BuilderFunc)}
}

// Register binds name to builder, replacing any earlier binding. The name
// should equal what the built processor reports from Name.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

func (r *Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	build, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown processor %q (known: %v)", name, r.Names())
	}
	return build(cfg)
}

func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names lists the registered processors alphabetically.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.builders))
}
