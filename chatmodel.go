package anychat

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ChatModel is a chat model bound to one "<provider>:<model-name>" target.
// It is stateless across calls: every invocation builds its params, performs
// one exchange with the provider client, and discards everything.
type ChatModel struct {
	provider string
	model    string
	apiKey   string
	apiBase  string

	modelKwargs  map[string]any
	tools        []Tool
	toolChoice   *ToolChoice
	outputSchema *OutputSchema

	client ProviderClient
}

// Option configures a ChatModel at construction time.
type Option func(*ChatModel)

// WithAPIKey sets the API key explicitly instead of resolving it from the
// provider's environment variable.
func WithAPIKey(key string) Option {
	return func(m *ChatModel) { m.apiKey = key }
}

// WithAPIBase overrides the provider's default endpoint. The value is passed
// through to the underlying client verbatim.
func WithAPIBase(base string) Option {
	return func(m *ChatModel) { m.apiBase = base }
}

// WithModelKwargs binds provider-native keyword arguments (temperature,
// max_tokens, top_p, ...) that are forwarded unexamined on every call.
func WithModelKwargs(kwargs map[string]any) Option {
	return func(m *ChatModel) { m.modelKwargs = kwargs }
}

// WithProviderClient substitutes the underlying provider client. Used by
// tests and by callers that preconfigure their own gollm instance.
func WithProviderClient(client ProviderClient) Option {
	return func(m *ChatModel) { m.client = client }
}

// New creates a ChatModel for the given "<provider>:<model-name>" identifier.
// The provider must be in the catalog and, when it requires one, an API key
// must be available explicitly or via the provider's environment variable.
func New(modelID string, opts ...Option) (*ChatModel, error) {
	provider, model, ok := strings.Cut(modelID, ":")
	if !ok || provider == "" || model == "" {
		return nil, configErrorf("model identifier %q must have the form \"<provider>:<model-name>\"", modelID)
	}

	info := GetProviderInfo(provider)
	if info == nil {
		return nil, configErrorf("unknown provider %q", provider)
	}

	m := &ChatModel{provider: provider, model: model}
	for _, opt := range opts {
		opt(m)
	}

	m.apiKey = info.ResolveAPIKey(m.apiKey)
	if info.RequiresAPIKey && m.apiKey == "" {
		return nil, configErrorf("provider %q requires an API key: set it explicitly or via %s", provider, info.APIKeyEnv)
	}

	if m.client == nil {
		client, err := NewGollmClient(provider, model,
			GollmWithAPIKey(m.apiKey),
			GollmWithAPIBase(m.apiBase),
		)
		if err != nil {
			return nil, err
		}
		m.client = client
	}

	return m, nil
}

// clone returns a shallow copy suitable for derived models. Bound slices and
// maps are copied so the original stays immutable.
func (m *ChatModel) clone() *ChatModel {
	out := *m
	if m.tools != nil {
		out.tools = append([]Tool(nil), m.tools...)
	}
	if m.modelKwargs != nil {
		kw := make(map[string]any, len(m.modelKwargs))
		for k, v := range m.modelKwargs {
			kw[k] = v
		}
		out.modelKwargs = kw
	}
	return &out
}

// BindTools returns a derived model with the given tools and tool choice
// directive bound to every call.
func (m *ChatModel) BindTools(tools []Tool, choice *ToolChoice) *ChatModel {
	out := m.clone()
	out.tools = append([]Tool(nil), tools...)
	out.toolChoice = choice
	return out
}

// WithStructuredOutput returns a derived model that requests structured
// decoding against the given schema. The schema is normalized here, so a
// misdeclared kind fails immediately rather than at call time.
func (m *ChatModel) WithStructuredOutput(schema OutputSchema) (*ChatModel, error) {
	if _, err := schema.normalize(); err != nil {
		return nil, err
	}
	out := m.clone()
	out.outputSchema = &schema
	return out, nil
}

// CallOption adjusts a single invocation.
type CallOption func(*ChatRequest)

// WithTools declares tools for this call only.
func WithTools(tools ...Tool) CallOption {
	return func(r *ChatRequest) { r.Tools = tools }
}

// WithToolChoice sets the tool choice directive for this call only.
func WithToolChoice(choice *ToolChoice) CallOption {
	return func(r *ChatRequest) { r.ToolChoice = choice }
}

// WithStop sets stop sequences for this call.
func WithStop(stop ...string) CallOption {
	return func(r *ChatRequest) { r.Stop = stop }
}

// WithCallKwargs adds provider-native kwargs for this call. Keys here win
// over the model's bound kwargs.
func WithCallKwargs(kwargs map[string]any) CallOption {
	return func(r *ChatRequest) { r.ModelKwargs = kwargs }
}

// WithOutputSchema requests structured decoding for this call only.
func WithOutputSchema(schema OutputSchema) CallOption {
	return func(r *ChatRequest) { r.OutputSchema = &schema }
}

// newRequest assembles the per-call ChatRequest from the model's bound state
// and the call options.
func (m *ChatModel) newRequest(messages []Message, opts []CallOption) ChatRequest {
	req := ChatRequest{
		Messages:     messages,
		Tools:        m.tools,
		ToolChoice:   m.toolChoice,
		OutputSchema: m.outputSchema,
	}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}

// Invoke performs one blocking chat call and returns the complete response.
// Provider failures are returned unchanged, never retried.
func (m *ChatModel) Invoke(ctx context.Context, messages []Message, opts ...CallOption) (*ChatResponse, error) {
	params, err := m.buildCallParams(m.newRequest(messages, opts))
	if err != nil {
		return nil, err
	}
	return m.client.Complete(ctx, params)
}

// Stream opens a streaming chat call and returns a pull iterator over the
// incremental chunks. The stream is finite and not restartable; callers that
// stop early must Close it to release the provider connection.
func (m *ChatModel) Stream(ctx context.Context, messages []Message, opts ...CallOption) (*ChatStream, error) {
	params, err := m.buildCallParams(m.newRequest(messages, opts))
	if err != nil {
		return nil, err
	}
	src, err := m.client.Stream(ctx, params)
	if err != nil {
		return nil, err
	}
	return newChatStream(src), nil
}

// StreamEvents opens a streaming call and delivers chunks over a channel.
// The channel closes when the stream ends; cancelling ctx closes the
// underlying provider connection rather than leaking it. A mid-stream
// failure is delivered as a final chunk with Err set.
func (m *ChatModel) StreamEvents(ctx context.Context, messages []Message, opts ...CallOption) (<-chan ChatChunk, error) {
	stream, err := m.Stream(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}

	ch := make(chan ChatChunk, 16)
	go func() {
		defer close(ch)
		defer stream.Close()
		for {
			chunk, err := stream.Next(ctx)
			if err != nil {
				if !errors.Is(err, io.EOF) {
					select {
					case ch <- ChatChunk{Err: err}:
					case <-ctx.Done():
					}
				}
				return
			}
			select {
			case ch <- *chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// Model returns the bound "<provider>:<model-name>" identifier.
func (m *ChatModel) Model() string {
	return m.provider + ":" + m.model
}

// Provider returns the provider component of the model identifier.
func (m *ChatModel) Provider() string {
	return m.provider
}
