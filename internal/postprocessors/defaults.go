package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/finlit/internal/core/domain"
	"github.com/custodia-labs/finlit/internal/core/ports/driven"
	"github.com/custodia-labs/finlit/internal/postprocessors/chunker"
	"github.com/custodia-labs/finlit/internal/postprocessors/cleaner"
)

// RegisterDefaults registers the cleaner and the chunker.
func RegisterDefaults(r *Registry) {
	// Both names are fresh in a new registry.
	_ = r.Register("cleaner", buildCleaner)
	_ = r.Register("chunker", buildChunker)
}

// BuildPipeline constructs the configured processors, in order.
// A pipeline must end in a processor that produces chunks, so an
// empty list is rejected.
func BuildPipeline(r *Registry, cfg domain.PipelineConfig) (*Pipeline, error) {
	if len(cfg.Processors) == 0 {
		return nil, fmt.Errorf("%w: pipeline has no processors", domain.ErrConfiguration)
	}
	processors := make([]driven.PostProcessor, 0, len(cfg.Processors))
	for _, name := range cfg.Processors {
		processor, err := r.Build(name, cfg.GetProcessorConfig(name))
		if err != nil {
			return nil, fmt.Errorf("build processor %s: %w", name, err)
		}
		processors = append(processors, processor)
	}
	return NewPipeline(processors...), nil
}

// buildCleaner creates a cleaner processor. It takes no config.
func buildCleaner(_ map[string]any) (driven.PostProcessor, error) {
	return cleaner.New(), nil
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Characters per chunk (default: 1500)
//   - overlap (int): Overlapping characters between chunks (default: 200)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if size, ok := getIntFromConfig(cfg, "chunk_size"); ok {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if overlap, ok := getIntFromConfig(cfg, "overlap"); ok {
		opts = append(opts, chunker.WithOverlap(overlap))
	}

	return chunker.New(opts...)
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) (int, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
