package gemini

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"charm.land/fantasy"
	"github.com/robbyt/fantasy-adapters/normalizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockModel struct {
	mock.Mock
}

func (m *MockModel) Provider() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockModel) Model() string {
	args := m.Called()
	return args.String(0)
}

func newMockModel(provider, model string) *MockModel {
	m := new(MockModel)
	m.On("Provider").Return(provider).Maybe()
	m.On("Model").Return(model).Maybe()
	return m
}

func TestNew_Defaults(t *testing.T) {
	n := New()
	require.NotNil(t, n)
	assert.Equal(t, "gemini", n.Name())
	assert.Equal(t, []string{ProviderGoogle}, n.providers)
	assert.Implements(t, (*normalizer.ToolNormalizer)(nil), n)
}

func TestNormalizer_SupportsModel(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		provider string
		expected bool
	}{
		{name: "google provider", provider: "google", expected: true},
		{name: "anthropic provider", provider: "anthropic", expected: false},
		{name: "openai provider", provider: "openai", expected: false},
		{name: "custom providers", opts: []Option{WithProviders("google", "vertexai")}, provider: "vertexai", expected: true},
		{name: "custom providers replace default", opts: []Option{WithProviders("vertexai")}, provider: "google", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockModel(tt.provider, "some-model")
			assert.Equal(t, tt.expected, New(tt.opts...).SupportsModel(m))
		})
	}
}

func TestNormalizer_SupportsModel_Nil(t *testing.T) {
	assert.False(t, New().SupportsModel(nil))
}

func TestNormalizer_SupportsTool(t *testing.T) {
	n := New()
	assert.True(t, n.SupportsTool(fantasy.FunctionTool{Name: "lookup"}))
	assert.False(t, n.SupportsTool(nil))
}

func TestNormalizer_NormalizeTool(t *testing.T) {
	tool := fantasy.FunctionTool{
		Name:        "get_weather",
		Description: "Get weather for a location",
		InputSchema: map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"location": map[string]any{"type": "string"},
				"units":    map[string]any{"type": []any{"string", "null"}},
			},
			"required": []any{"location"},
		},
	}

	result := New().NormalizeTool(tool)

	assert.Equal(t, "get_weather", result.Name)
	assert.Equal(t, "Get weather for a location", result.Description)
	assert.Equal(t, map[string]any{
		"type": "object",
		"properties": map[string]any{
			"location": map[string]any{"type": "string"},
			"units":    map[string]any{"type": "string", "nullable": true},
		},
		"required": []any{"location"},
	}, result.Parameters)

	assert.Contains(t, tool.InputSchema, "additionalProperties", "input tool must not be modified")
}

func TestNormalizer_NormalizeTool_NoParameters(t *testing.T) {
	tests := []struct {
		name   string
		schema map[string]any
	}{
		{name: "nil schema", schema: nil},
		{name: "empty schema", schema: map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := New().NormalizeTool(fantasy.FunctionTool{
				Name:        "ping",
				Description: "Check liveness",
				InputSchema: tt.schema,
			})

			assert.Equal(t, "ping", result.Name)
			assert.Equal(t, "Check liveness", result.Description)
			assert.Nil(t, result.Parameters)

			raw, err := json.Marshal(result)
			require.NoError(t, err)
			assert.JSONEq(t, `{"name":"ping","description":"Check liveness","parameters":null}`, string(raw))
		})
	}
}

func TestNormalizer_NormalizeTool_JSONShape(t *testing.T) {
	result := New().NormalizeTool(fantasy.FunctionTool{
		Name:        "search",
		Description: "Search documents",
		InputSchema: map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"x": map[string]any{"type": []any{"number", "null"}},
			},
		},
	})

	raw, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"name": "search",
		"description": "Search documents",
		"parameters": {
			"type": "object",
			"properties": {"x": {"type": "number", "nullable": true}}
		}
	}`, string(raw))

	var top map[string]any
	require.NoError(t, json.Unmarshal(raw, &top))
	assert.Len(t, top, 3)
}

func TestNormalizer_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	New(WithLogger(logger)).NormalizeTool(fantasy.FunctionTool{Name: "ping"})

	assert.Contains(t, buf.String(), "tool=ping")
}

func TestNormalizer_WithLogger_NilKeepsDefault(t *testing.T) {
	n := New(WithLogger(nil))
	assert.Equal(t, slog.Default(), n.logger)
}

func TestNormalizer_SelectedByRegistry(t *testing.T) {
	gemini := New()
	registry := normalizer.NewRegistry(nil, gemini)

	assert.Same(t, gemini, registry.For(newMockModel("google", "gemini-2.0-flash")))
	assert.IsType(t, normalizer.Passthrough{}, registry.For(newMockModel("anthropic", "claude-3-5-sonnet")))

	tools, err := registry.NormalizeTools(newMockModel("google", "gemini-2.0-flash"), []fantasy.Tool{
		fantasy.FunctionTool{
			Name:        "lookup",
			InputSchema: map[string]any{"type": "object", "additionalProperties": false},
		},
	})
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, map[string]any{"type": "object"}, tools[0].Parameters)
}
