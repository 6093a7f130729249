// Package normalizer selects a provider-specific tool normalizer for a model.
//
// Tool definitions are written once, against plain JSON Schema, and handed to
// fantasy as fantasy.FunctionTool values. Some providers only accept a dialect
// of JSON Schema, so before a tool is declared to a model it is passed through
// the ToolNormalizer that claims that model. Models nobody claims get the
// Passthrough normalizer.
package normalizer

import (
	"errors"
	"slices"

	"charm.land/fantasy"
)

// ErrUnsupportedTool is returned for tool kinds a normalizer does not handle.
var ErrUnsupportedTool = errors.New("unsupported tool")

// ModelIdentity is the part of a model a normalizer needs to decide whether it applies.
type ModelIdentity interface {
	Provider() string
	Model() string
}

var _ ModelIdentity = (fantasy.LanguageModel)(nil)

// Tool is a normalized tool declaration. Parameters is nil when the tool takes
// no parameters and serializes as JSON null.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolNormalizer rewrites tool definitions for one family of models.
type ToolNormalizer interface {
	// Name identifies the normalizer in logs.
	Name() string

	// SupportsModel reports whether this normalizer should be used for m.
	SupportsModel(m ModelIdentity) bool

	// SupportsTool reports whether the tool kind can be normalized.
	SupportsTool(tool fantasy.Tool) bool

	// NormalizeTool returns a new declaration. The input is never modified.
	NormalizeTool(tool fantasy.FunctionTool) Tool
}

// Passthrough copies function tools without rewriting their schema.
type Passthrough struct{}

// Name returns "passthrough".
func (Passthrough) Name() string { return "passthrough" }

// SupportsModel always returns true so Passthrough can serve as a fallback.
func (Passthrough) SupportsModel(ModelIdentity) bool { return true }

// SupportsTool reports whether tool is a fantasy.FunctionTool.
func (Passthrough) SupportsTool(tool fantasy.Tool) bool {
	_, ok := tool.(fantasy.FunctionTool)
	return ok
}

// NormalizeTool returns the tool with a deep copy of its input schema, so
// changes to the result never reach the caller's maps. Parameters is nil
// when the input schema is empty.
func (Passthrough) NormalizeTool(tool fantasy.FunctionTool) Tool {
	var params map[string]any
	if len(tool.InputSchema) > 0 {
		params = cloneMap(tool.InputSchema)
	}
	return Tool{
		Name:        tool.Name,
		Description: tool.Description,
		Parameters:  params,
	}
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies the container types JSON decoding and schema literals
// produce. Scalars are returned as is.
func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(val))
		for i, item := range val {
			out[i] = cloneMap(item)
		}
		return out
	case map[string]map[string]any:
		out := make(map[string]map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneMap(item)
		}
		return out
	case []string:
		return slices.Clone(val)
	default:
		return v
	}
}
