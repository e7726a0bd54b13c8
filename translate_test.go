package anychat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testModel(t *testing.T, opts ...Option) *ChatModel {
	t.Helper()
	opts = append([]Option{
		WithAPIKey("test-key-not-real"),
		WithProviderClient(&stubClient{}),
	}, opts...)
	m, err := New("openai:gpt-4o-mini", opts...)
	require.NoError(t, err)
	return m
}

func TestToolChoiceTranslation(t *testing.T) {
	tests := []struct {
		name   string
		choice *ToolChoice
		want   any
	}{
		{"auto maps to auto", ChooseAuto(), "auto"},
		{"none maps to none", ChooseNone(), "none"},
		{"any maps to required", ChooseAny(), "required"},
		{"required maps to required", &ToolChoice{Mode: ToolChoiceRequired}, "required"},
		{
			"named tool passes through the forced-function structure",
			ChooseTool("get_weather"),
			map[string]any{
				"type":     "function",
				"function": map[string]any{"name": "get_weather"},
			},
		},
	}

	weather := Tool{Name: "get_weather", Description: "Get the weather", Parameters: map[string]any{"type": "object"}}
	m := testModel(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := m.buildCallParams(ChatRequest{
				Messages:   []Message{UserMessage("Hi")},
				Tools:      []Tool{weather},
				ToolChoice: tt.choice,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, params.ToolChoice)
			require.Len(t, params.Tools, 1)
		})
	}
}

func TestToolChoiceDroppedWithoutTools(t *testing.T) {
	m := testModel(t)

	// Any directive value is dropped when no tools are declared, because
	// providers reject a directive alongside an empty tool list.
	for _, choice := range []*ToolChoice{
		ChooseAuto(), ChooseNone(), ChooseAny(), ChooseTool("get_weather"),
		{Mode: "bogus"},
	} {
		params, err := m.buildCallParams(ChatRequest{
			Messages:   []Message{UserMessage("Hello")},
			ToolChoice: choice,
		})
		require.NoError(t, err)
		assert.Nil(t, params.ToolChoice, "mode %q", choice.Mode)
		assert.Empty(t, params.Tools)
	}
}

func TestToolChoiceInvalidMode(t *testing.T) {
	m := testModel(t)
	tool := Tool{Name: "t"}

	_, err := m.buildCallParams(ChatRequest{
		Messages:   []Message{UserMessage("Hi")},
		Tools:      []Tool{tool},
		ToolChoice: &ToolChoice{Mode: "sometimes"},
	})
	var tcErr *InvalidToolChoiceError
	require.ErrorAs(t, err, &tcErr)
	assert.Equal(t, "sometimes", tcErr.Choice)

	_, err = m.buildCallParams(ChatRequest{
		Messages:   []Message{UserMessage("Hi")},
		Tools:      []Tool{tool},
		ToolChoice: &ToolChoice{Mode: ToolChoiceNamed}, // missing tool name
	})
	require.ErrorAs(t, err, &tcErr)
}

func TestBuildCallParamsKwargsMerge(t *testing.T) {
	m := testModel(t, WithModelKwargs(map[string]any{"temperature": 0.7, "max_tokens": 100}))

	params, err := m.buildCallParams(ChatRequest{
		Messages:    []Message{UserMessage("Hi")},
		ModelKwargs: map[string]any{"temperature": 0.2, "top_p": 0.9},
	})
	require.NoError(t, err)
	assert.Equal(t, 0.2, params.Extra["temperature"], "call kwargs win over bound kwargs")
	assert.Equal(t, 100, params.Extra["max_tokens"])
	assert.Equal(t, 0.9, params.Extra["top_p"])
}

func TestBuildCallParamsStopConflict(t *testing.T) {
	m := testModel(t, WithModelKwargs(map[string]any{"stop": []string{"END"}}))

	_, err := m.buildCallParams(ChatRequest{
		Messages: []Message{UserMessage("Hi")},
		Stop:     []string{"STOP"},
	})
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)

	// Stop only on the call is fine.
	params, err := m.buildCallParams(ChatRequest{
		Messages: []Message{UserMessage("Hi")},
	})
	require.NoError(t, err)
	assert.Empty(t, params.Stop)
}

func TestBuildCallParamsRejectsUnsupportedContentKind(t *testing.T) {
	m, err := New("ollama:llama3.1", WithProviderClient(&stubClient{}))
	require.NoError(t, err)

	_, err = m.buildCallParams(ChatRequest{
		Messages: []Message{{
			Role:    RoleUser,
			Content: []ContentPart{ImageURLPart("https://example.com/cat.png", "image/png", "auto")},
		}},
	})
	var reqErr *InvalidRequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "ollama", reqErr.Provider)
}

func TestBuildCallParamsRejectsImageParts(t *testing.T) {
	m := testModel(t)

	_, err := m.buildCallParams(ChatRequest{
		Messages: []Message{{
			Role:    RoleUser,
			Content: []ContentPart{ImageURLPart("https://example.com/cat.png", "image/png", "auto")},
		}},
	})
	var reqErr *InvalidRequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Contains(t, reqErr.Error(), "image")
}

func TestBuildCallParamsCarriesIdentity(t *testing.T) {
	m := testModel(t, WithAPIBase("https://proxy.internal/v1"))

	params, err := m.buildCallParams(ChatRequest{Messages: []Message{UserMessage("Hi")}})
	require.NoError(t, err)
	assert.Equal(t, "openai", params.Provider)
	assert.Equal(t, "gpt-4o-mini", params.Model)
	assert.Equal(t, "test-key-not-real", params.APIKey)
	assert.Equal(t, "https://proxy.internal/v1", params.APIBase)
}
