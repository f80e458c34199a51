// Package postprocessors turns parsed documents into chunks through an
// ordered chain of processors built from configuration.
package postprocessors

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
	"github.com/custodia-labs/tinyrag/internal/logger"
)

var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline runs processors in order, feeding each the previous output. The
// first processor receives nil and is expected to create the chunks.
type Pipeline struct {
	processors []driven.PostProcessor
}

func NewPipeline(processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{processors: processors}
}

// NewPipelineFromConfig builds the processors named in cfg, in order.
func NewPipelineFromConfig(r *Registry, cfg domain.PipelineConfig) (*Pipeline, error) {
	p := NewPipeline()
	for _, name := range cfg.Processors {
		proc, err := r.Build(name, cfg.GetProcessorConfig(name))
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", name, err)
		}
		p.Add(proc)
	}
	return p, nil
}

func (p *Pipeline) Add(proc driven.PostProcessor) {
	p.processors = append(p.processors, proc)
}

func (p *Pipeline) Len() int { return len(p.processors) }

func (p *Pipeline) Process(ctx context.Context, doc *domain.ParsedDocument) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, errors.New("document is nil")
	}
	var chunks []domain.Chunk
	for _, proc := range p.processors {
		var err error
		if chunks, err = proc.Process(ctx, doc, chunks); err != nil {
			return nil, fmt.Errorf("processor %s: %w", proc.Name(), err)
		}
		logger.Debug("%s: %s left %d chunks", doc.Path, proc.Name(), len(chunks))
	}
	return chunks, nil
}
