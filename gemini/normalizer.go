// Package gemini rewrites tool schemas into the JSON Schema dialect accepted
// by the Gemini API.
//
// Gemini rejects "additionalProperties" and expresses optional values with
// "nullable": true instead of a ["T", "null"] type list. Normalizer applies
// those two rewrites to fantasy function tools and plugs into a
// normalizer.Registry for models served by the google provider.
package gemini

import (
	"log/slog"
	"slices"

	"charm.land/fantasy"
	"github.com/robbyt/fantasy-adapters/normalizer"
)

// ProviderGoogle is the fantasy provider name of the Gemini API provider.
const ProviderGoogle = "google"

// Normalizer implements normalizer.ToolNormalizer for Gemini models.
type Normalizer struct {
	logger    *slog.Logger
	providers []string
}

var _ normalizer.ToolNormalizer = (*Normalizer)(nil)

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Normalizer) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithProviders replaces the provider names the normalizer applies to.
func WithProviders(names ...string) Option {
	return func(n *Normalizer) {
		n.providers = slices.Clone(names)
	}
}

// New creates a Gemini normalizer.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		logger:    slog.Default(),
		providers: []string{ProviderGoogle},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Name implements normalizer.ToolNormalizer.
func (n *Normalizer) Name() string {
	return "gemini"
}

// SupportsModel implements normalizer.ToolNormalizer.
func (n *Normalizer) SupportsModel(m normalizer.ModelIdentity) bool {
	if m == nil {
		return false
	}
	return slices.Contains(n.providers, m.Provider())
}

// SupportsTool implements normalizer.ToolNormalizer. Only function tools carry
// a parameter schema.
func (n *Normalizer) SupportsTool(tool fantasy.Tool) bool {
	_, ok := tool.(fantasy.FunctionTool)
	return ok
}

// NormalizeTool implements normalizer.ToolNormalizer.
func (n *Normalizer) NormalizeTool(tool fantasy.FunctionTool) normalizer.Tool {
	n.logger.Debug("Gemini tool normalization", "tool", tool.Name, "has_parameters", len(tool.InputSchema) > 0)

	result := normalizer.Tool{
		Name:        tool.Name,
		Description: tool.Description,
	}
	if len(tool.InputSchema) > 0 {
		result.Parameters = NormalizeSchema(tool.InputSchema)
	}
	return result
}
