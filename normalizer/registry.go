package normalizer

import (
	"errors"
	"fmt"
	"sync"

	"charm.land/fantasy"
)

// Registry picks the first registered normalizer that supports a model.
type Registry struct {
	mu          sync.RWMutex
	normalizers []ToolNormalizer
	fallback    ToolNormalizer
}

// NewRegistry creates a registry. A nil fallback means Passthrough.
func NewRegistry(fallback ToolNormalizer, normalizers ...ToolNormalizer) *Registry {
	if fallback == nil {
		fallback = Passthrough{}
	}
	return &Registry{
		normalizers: append([]ToolNormalizer(nil), normalizers...),
		fallback:    fallback,
	}
}

// Register appends a normalizer. Earlier registrations win.
func (r *Registry) Register(n ToolNormalizer) {
	if n == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.normalizers = append(r.normalizers, n)
}

// For returns the normalizer for m, or the fallback when none applies.
func (r *Registry) For(m ModelIdentity) ToolNormalizer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range r.normalizers {
		if n.SupportsModel(m) {
			return n
		}
	}
	return r.fallback
}

// NormalizeTools normalizes tools for m. Tools the selected normalizer cannot
// handle are reported in the joined error; the others are still returned.
func (r *Registry) NormalizeTools(m ModelIdentity, tools []fantasy.Tool) ([]Tool, error) {
	n := r.For(m)
	result := make([]Tool, 0, len(tools))
	var errs []error

	for i, tool := range tools {
		ft, ok := tool.(fantasy.FunctionTool)
		if !ok || !n.SupportsTool(tool) {
			errs = append(errs, fmt.Errorf("tools[%d] (%T) for %s: %w", i, tool, n.Name(), ErrUnsupportedTool))
			continue
		}
		result = append(result, n.NormalizeTool(ft))
	}

	return result, errors.Join(errs...)
}
