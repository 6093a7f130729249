package gemini

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"charm.land/fantasy"
	"github.com/robbyt/fantasy-adapters/normalizer"
	"google.golang.org/genai"
)

var (
	// ErrUnsupportedSchema is returned when a schema uses something genai.Schema cannot express.
	ErrUnsupportedSchema = errors.New("schema not representable as genai.Schema")

	// ErrUnsupportedParameters is returned for ParametersJsonSchema values that are not a JSON object.
	ErrUnsupportedParameters = errors.New("unsupported parameters json schema")
)

var schemaTypes = []genai.Type{
	genai.TypeString,
	genai.TypeNumber,
	genai.TypeInteger,
	genai.TypeBoolean,
	genai.TypeArray,
	genai.TypeObject,
}

// Declaration converts a normalized tool to a Gemini function declaration.
// Parameters are set as a genai.Schema when every node can be expressed that
// way. Otherwise, for example when a type list with several types remains,
// the normalized map is sent as ParametersJsonSchema instead.
func (n *Normalizer) Declaration(tool normalizer.Tool) *genai.FunctionDeclaration {
	fd := &genai.FunctionDeclaration{
		Name:        tool.Name,
		Description: tool.Description,
	}
	n.setParameters(fd, tool)
	return fd
}

func (n *Normalizer) setParameters(fd *genai.FunctionDeclaration, tool normalizer.Tool) {
	fd.Parameters = nil
	fd.ParametersJsonSchema = nil
	if tool.Parameters == nil {
		return
	}

	schema, err := SchemaFromMap(tool.Parameters)
	if err != nil {
		n.logger.Debug("Falling back to parameters json schema", "tool", tool.Name, "reason", err)
		fd.ParametersJsonSchema = tool.Parameters
		return
	}
	fd.Parameters = schema
}

// ToolFromDeclaration turns a Gemini function declaration into a fantasy
// function tool. Parameters takes precedence over ParametersJsonSchema.
// ParametersJsonSchema may be a map, raw JSON or any value that marshals to
// a JSON object.
func ToolFromDeclaration(fd *genai.FunctionDeclaration) (fantasy.FunctionTool, error) {
	if fd == nil {
		return fantasy.FunctionTool{}, errors.New("nil function declaration")
	}

	tool := fantasy.FunctionTool{
		Name:        fd.Name,
		Description: fd.Description,
	}

	if fd.Parameters != nil {
		tool.InputSchema = SchemaToMap(fd.Parameters)
		return tool, nil
	}

	params, err := jsonSchemaToMap(fd.ParametersJsonSchema)
	if err != nil {
		return tool, fmt.Errorf("function %q: %w", fd.Name, err)
	}
	tool.InputSchema = params
	return tool, nil
}

func jsonSchemaToMap(v any) (map[string]any, error) {
	var raw []byte
	switch val := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return val, nil
	case json.RawMessage:
		raw = val
	case []byte:
		raw = val
	case string:
		raw = []byte(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("%w: %T: %w", ErrUnsupportedParameters, v, err)
		}
		raw = b
	}

	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedParameters, err)
	}
	return result, nil
}

// SchemaToMap converts a genai.Schema to a JSON Schema map with lower-case types.
func SchemaToMap(schema *genai.Schema) map[string]any {
	if schema == nil {
		return nil
	}

	result := make(map[string]any)

	if schema.Type != "" {
		result["type"] = strings.ToLower(string(schema.Type))
	}
	if schema.Description != "" {
		result["description"] = schema.Description
	}
	if schema.Title != "" {
		result["title"] = schema.Title
	}
	if len(schema.Properties) > 0 {
		props := make(map[string]any, len(schema.Properties))
		for key, val := range schema.Properties {
			props[key] = SchemaToMap(val)
		}
		result["properties"] = props
	}
	if schema.Items != nil {
		result["items"] = SchemaToMap(schema.Items)
	}
	if len(schema.Required) > 0 {
		result["required"] = schema.Required
	}
	if len(schema.Enum) > 0 {
		result["enum"] = schema.Enum
	}
	if schema.Format != "" {
		result["format"] = schema.Format
	}
	if schema.Pattern != "" {
		result["pattern"] = schema.Pattern
	}
	if schema.Minimum != nil {
		result["minimum"] = *schema.Minimum
	}
	if schema.Maximum != nil {
		result["maximum"] = *schema.Maximum
	}
	if schema.MinLength != nil {
		result["minLength"] = *schema.MinLength
	}
	if schema.MaxLength != nil {
		result["maxLength"] = *schema.MaxLength
	}
	if schema.MinItems != nil {
		result["minItems"] = *schema.MinItems
	}
	if schema.MaxItems != nil {
		result["maxItems"] = *schema.MaxItems
	}
	if schema.MinProperties != nil {
		result["minProperties"] = *schema.MinProperties
	}
	if schema.MaxProperties != nil {
		result["maxProperties"] = *schema.MaxProperties
	}
	if schema.Nullable != nil {
		result["nullable"] = *schema.Nullable
	}
	if schema.Default != nil {
		result["default"] = schema.Default
	}
	if schema.Example != nil {
		result["example"] = schema.Example
	}
	if len(schema.PropertyOrdering) > 0 {
		result["propertyOrdering"] = schema.PropertyOrdering
	}
	if len(schema.AnyOf) > 0 {
		anyOf := make([]any, len(schema.AnyOf))
		for i, s := range schema.AnyOf {
			anyOf[i] = SchemaToMap(s)
		}
		result["anyOf"] = anyOf
	}

	return result
}

// SchemaFromMap builds a genai.Schema from a normalized JSON Schema map. It
// fails with ErrUnsupportedSchema on keys or shapes genai.Schema has no field
// for, naming the path of the offending node.
func SchemaFromMap(m map[string]any) (*genai.Schema, error) {
	return schemaFromMap(m, "")
}

func schemaFromMap(m map[string]any, path string) (*genai.Schema, error) {
	schema := &genai.Schema{}

	// Sorted for a stable error path.
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := setSchemaField(schema, key, m[key], joinPath(path, key)); err != nil {
			return nil, err
		}
	}
	return schema, nil
}

func setSchemaField(schema *genai.Schema, key string, v any, path string) error {
	var err error
	switch key {
	case "type":
		s, ok := v.(string)
		if !ok {
			return unsupported(path, "type %T", v)
		}
		t := genai.Type(strings.ToUpper(s))
		if !slices.Contains(schemaTypes, t) {
			return unsupported(path, "type %q", s)
		}
		schema.Type = t
	case "nullable":
		b, ok := v.(bool)
		if !ok {
			return unsupported(path, "nullable %T", v)
		}
		schema.Nullable = &b
	case "description":
		schema.Description, err = stringField(v, path)
	case "title":
		schema.Title, err = stringField(v, path)
	case "format":
		schema.Format, err = stringField(v, path)
	case "pattern":
		schema.Pattern, err = stringField(v, path)
	case "required":
		schema.Required, err = stringsField(v, path)
	case "enum":
		schema.Enum, err = stringsField(v, path)
	case "propertyOrdering":
		schema.PropertyOrdering, err = stringsField(v, path)
	case "minimum":
		schema.Minimum, err = floatField(v, path)
	case "maximum":
		schema.Maximum, err = floatField(v, path)
	case "minLength":
		schema.MinLength, err = intField(v, path)
	case "maxLength":
		schema.MaxLength, err = intField(v, path)
	case "minItems":
		schema.MinItems, err = intField(v, path)
	case "maxItems":
		schema.MaxItems, err = intField(v, path)
	case "minProperties":
		schema.MinProperties, err = intField(v, path)
	case "maxProperties":
		schema.MaxProperties, err = intField(v, path)
	case "default":
		schema.Default = v
	case "example":
		schema.Example = v
	case "items":
		items, ok := v.(map[string]any)
		if !ok {
			return unsupported(path, "items %T", v)
		}
		schema.Items, err = schemaFromMap(items, path)
	case "properties":
		props, ok := v.(map[string]any)
		if !ok {
			return unsupported(path, "properties %T", v)
		}
		schema.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			propMap, ok := prop.(map[string]any)
			if !ok {
				return unsupported(joinPath(path, name), "property %T", prop)
			}
			if schema.Properties[name], err = schemaFromMap(propMap, joinPath(path, name)); err != nil {
				return err
			}
		}
	case "anyOf":
		schema.AnyOf, err = schemaListField(v, path)
	default:
		return unsupported(path, "keyword %q", key)
	}
	return err
}

func schemaListField(v any, path string) ([]*genai.Schema, error) {
	var items []map[string]any
	switch list := v.(type) {
	case []map[string]any:
		items = list
	case []any:
		items = make([]map[string]any, len(list))
		for i, item := range list {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, unsupported(fmt.Sprintf("%s[%d]", path, i), "element %T", item)
			}
			items[i] = m
		}
	default:
		return nil, unsupported(path, "list %T", v)
	}

	result := make([]*genai.Schema, len(items))
	for i, item := range items {
		s, err := schemaFromMap(item, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		result[i] = s
	}
	return result, nil
}

func stringField(v any, path string) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", unsupported(path, "%T", v)
	}
	return s, nil
}

func stringsField(v any, path string) ([]string, error) {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...), nil
	case []any:
		result := make([]string, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, unsupported(fmt.Sprintf("%s[%d]", path, i), "%T", item)
			}
			result[i] = s
		}
		return result, nil
	default:
		return nil, unsupported(path, "%T", v)
	}
}

func floatField(v any, path string) (*float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil, unsupported(path, "number %q", n)
		}
		f = parsed
	default:
		return nil, unsupported(path, "%T", v)
	}
	return &f, nil
}

func intField(v any, path string) (*int64, error) {
	var i int64
	switch n := v.(type) {
	case int:
		i = int64(n)
	case int64:
		i = n
	case float64:
		if n != float64(int64(n)) {
			return nil, unsupported(path, "non-integer %v", n)
		}
		i = int64(n)
	case json.Number:
		parsed, err := n.Int64()
		if err != nil {
			return nil, unsupported(path, "integer %q", n)
		}
		i = parsed
	default:
		return nil, unsupported(path, "%T", v)
	}
	return &i, nil
}

func unsupported(path, format string, args ...any) error {
	return fmt.Errorf("%s: %s: %w", path, fmt.Sprintf(format, args...), ErrUnsupportedSchema)
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
