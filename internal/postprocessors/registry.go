package postprocessors

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/custodia-labs/finlit/internal/core/domain"
	"github.com/custodia-labs/finlit/internal/core/ports/driven"
)

// BuilderFunc creates a PostProcessor from its entry in PipelineConfig.
type BuilderFunc func(cfg map[string]any) (driven.PostProcessor, error)

// Registry maps processor names to builders.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]BuilderFunc)}
}

// Register adds a builder. Names must be unique.
func (r *Registry) Register(name string, builder BuilderFunc) error {
	if name == "" || builder == nil {
		return fmt.Errorf("%w: processor needs a name and a builder", domain.ErrInvalidInput)
	}
	if _, exists := r.builders[name]; exists {
		return fmt.Errorf("%w: processor %s already registered", domain.ErrInvalidInput, name)
	}
	r.builders[name] = builder
	return nil
}

// Build creates the processor registered under name.
func (r *Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown processor %q (have %s)",
			domain.ErrConfiguration, name, strings.Join(r.Names(), ", "))
	}
	return builder(cfg)
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.builders))
}
