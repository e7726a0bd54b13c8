package anychat

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClient is a deterministic ProviderClient test double.
type stubClient struct {
	response   *ChatResponse
	err        error
	chunks     []ChatChunk
	chunkErr   error
	lastParams *CallParams
	completes  int
	streams    []*stubStream
}

func (s *stubClient) Complete(ctx context.Context, params *CallParams) (*ChatResponse, error) {
	s.lastParams = params
	s.completes++
	if s.err != nil {
		return nil, s.err
	}
	if s.response == nil {
		return &ChatResponse{
			Message:      Message{Role: RoleAssistant, Content: []ContentPart{TextPart("ok")}},
			FinishReason: "stop",
		}, nil
	}
	resp := *s.response
	return &resp, nil
}

func (s *stubClient) Stream(ctx context.Context, params *CallParams) (ProviderStream, error) {
	s.lastParams = params
	if s.err != nil {
		return nil, s.err
	}
	st := &stubStream{chunks: s.chunks, nextErr: s.chunkErr}
	s.streams = append(s.streams, st)
	return st, nil
}

// stubStream records how it is consumed.
type stubStream struct {
	chunks     []ChatChunk
	pos        int
	nextCalls  int
	closeCalls int
	nextErr    error
}

func (s *stubStream) Next(ctx context.Context) (*ChatChunk, error) {
	s.nextCalls++
	if s.nextErr != nil {
		return nil, s.nextErr
	}
	if s.pos >= len(s.chunks) {
		return nil, io.EOF
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return &chunk, nil
}

func (s *stubStream) Close() error {
	s.closeCalls++
	return nil
}

func TestNewParsesModelIdentifier(t *testing.T) {
	m, err := New("openai:gpt-4o-mini",
		WithAPIKey("test-key-not-real"),
		WithProviderClient(&stubClient{}),
	)
	require.NoError(t, err)
	assert.Equal(t, "openai", m.Provider())
	assert.Equal(t, "openai:gpt-4o-mini", m.Model())
}

func TestNewRejectsBadIdentifier(t *testing.T) {
	var cfgErr *ConfigurationError
	for _, id := range []string{"", "gpt-4o-mini", "openai:", ":gpt-4o-mini"} {
		_, err := New(id, WithProviderClient(&stubClient{}))
		require.ErrorAs(t, err, &cfgErr, "identifier %q", id)
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New("skynet:t-800", WithProviderClient(&stubClient{}))
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "skynet")
}

func TestNewRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := New("openai:gpt-4o-mini", WithProviderClient(&stubClient{}))
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestNewResolvesAPIKeyFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	stub := &stubClient{}
	m, err := New("openai:gpt-4o-mini", WithProviderClient(stub))
	require.NoError(t, err)

	_, err = m.Invoke(context.Background(), []Message{UserMessage("Hi")})
	require.NoError(t, err)
	assert.Equal(t, "env-key", stub.lastParams.APIKey)
}

func TestInvokeIdempotentAgainstDeterministicStub(t *testing.T) {
	stub := &stubClient{response: &ChatResponse{
		ID:           "resp_fixed",
		Message:      Message{Role: RoleAssistant, Content: []ContentPart{TextPart("Hello!")}},
		FinishReason: "stop",
		Usage:        Usage{PromptTokens: intPtr(3), CompletionTokens: intPtr(2), TotalTokens: intPtr(5)},
	}}
	m := testModel(t, WithProviderClient(stub))

	msgs := []Message{UserMessage("Hi")}
	first, err := m.Invoke(context.Background(), msgs)
	require.NoError(t, err)
	second, err := m.Invoke(context.Background(), msgs)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, stub.completes)
}

func TestInvokePropagatesProviderError(t *testing.T) {
	want := &RateLimitError{ProviderError: ProviderError{
		BaseError: BaseError{Message: "rate limit exceeded"},
		Provider: "openai", StatusCode: 429, Retryable: true,
	}}
	m := testModel(t, WithProviderClient(&stubClient{err: want}))

	_, err := m.Invoke(context.Background(), []Message{UserMessage("Hi")})
	var rlErr *RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Same(t, want, rlErr, "provider error surfaces unchanged, not wrapped")
}

func TestInvokeUsagePassthroughPartial(t *testing.T) {
	stub := &stubClient{response: &ChatResponse{
		Message: Message{Role: RoleAssistant, Content: []ContentPart{TextPart("ok")}},
		Usage:   Usage{TotalTokens: intPtr(42)},
	}}
	m := testModel(t, WithProviderClient(stub))

	resp, err := m.Invoke(context.Background(), []Message{UserMessage("Hi")})
	require.NoError(t, err)
	require.NotNil(t, resp.Usage.TotalTokens)
	assert.Equal(t, 42, *resp.Usage.TotalTokens)
	assert.Nil(t, resp.Usage.PromptTokens, "unreported count stays unset, not zero")
	assert.Nil(t, resp.Usage.CompletionTokens)
}

func TestInvokeTranslationFailsBeforeNetwork(t *testing.T) {
	stub := &stubClient{}
	m := testModel(t, WithProviderClient(stub))

	_, err := m.Invoke(context.Background(), []Message{UserMessage("Hi")},
		WithTools(Tool{Name: "t"}),
		WithToolChoice(&ToolChoice{Mode: "bogus"}),
	)
	var tcErr *InvalidToolChoiceError
	require.ErrorAs(t, err, &tcErr)
	assert.Zero(t, stub.completes, "no provider call after a translation failure")
}

func TestBindTools(t *testing.T) {
	stub := &stubClient{}
	m := testModel(t, WithProviderClient(stub))

	weather := Tool{Name: "get_weather", Description: "Get the weather"}
	bound := m.BindTools([]Tool{weather}, ChooseAny())

	_, err := bound.Invoke(context.Background(), []Message{UserMessage("Weather in Oslo?")})
	require.NoError(t, err)
	require.Len(t, stub.lastParams.Tools, 1)
	assert.Equal(t, "required", stub.lastParams.ToolChoice)

	// The original model is untouched.
	_, err = m.Invoke(context.Background(), []Message{UserMessage("Hi")})
	require.NoError(t, err)
	assert.Empty(t, stub.lastParams.Tools)
	assert.Nil(t, stub.lastParams.ToolChoice)
}

func TestWithStructuredOutput(t *testing.T) {
	stub := &stubClient{}
	m := testModel(t, WithProviderClient(stub))

	structured, err := m.WithStructuredOutput(MapSchema("answer", map[string]any{
		"type":       "object",
		"properties": map[string]any{"answer": map[string]any{"type": "string"}},
	}))
	require.NoError(t, err)

	_, err = structured.Invoke(context.Background(), []Message{UserMessage("Hi")})
	require.NoError(t, err)
	require.NotNil(t, stub.lastParams.ResponseSchema)
	assert.Equal(t, "object", stub.lastParams.ResponseSchema["type"])
	assert.Equal(t, "answer", stub.lastParams.ResponseSchemaName)
}

func TestWithStructuredOutputRejectsMisdeclaredKind(t *testing.T) {
	m := testModel(t)

	_, err := m.WithStructuredOutput(OutputSchema{Kind: SchemaKindStruct, Map: map[string]any{"type": "object"}})
	var schemaErr *StructuredOutputSchemaError
	require.ErrorAs(t, err, &schemaErr)
}
