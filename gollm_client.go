package anychat

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// GollmClient implements ProviderClient on top of a gollm.LLM instance. It
// translates CallParams into gollm prompts and classifies gollm failures
// into this package's error hierarchy without rewriting them.
type GollmClient struct {
	provider string
	model    string
	apiBase  string
	llm      gollm.LLM

	mu       sync.Mutex
	callKeys map[string]struct{}
}

// GollmOption configures a GollmClient.
type GollmOption func(*gollmConfig)

type gollmConfig struct {
	apiKey      string
	apiBase     string
	maxTokens   int
	temperature float64
	extraOpts   []gollm.ConfigOption
}

// GollmWithAPIKey sets the API key. When empty, gollm resolves it from the
// provider's environment variable.
func GollmWithAPIKey(key string) GollmOption {
	return func(c *gollmConfig) { c.apiKey = key }
}

// GollmWithAPIBase overrides the provider endpoint.
func GollmWithAPIBase(base string) GollmOption {
	return func(c *gollmConfig) { c.apiBase = base }
}

// GollmWithMaxTokens sets the default max tokens.
func GollmWithMaxTokens(n int) GollmOption {
	return func(c *gollmConfig) { c.maxTokens = n }
}

// GollmWithTemperature sets the default temperature.
func GollmWithTemperature(t float64) GollmOption {
	return func(c *gollmConfig) { c.temperature = t }
}

// GollmWithOptions adds extra gollm configuration options verbatim.
func GollmWithOptions(opts ...gollm.ConfigOption) GollmOption {
	return func(c *gollmConfig) { c.extraOpts = append(c.extraOpts, opts...) }
}

// NewGollmClient creates a GollmClient for the given provider and model.
func NewGollmClient(provider, model string, opts ...GollmOption) (*GollmClient, error) {
	cfg := &gollmConfig{
		maxTokens:   4096,
		temperature: 0.7,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetMaxTokens(cfg.maxTokens),
		gollm.SetTemperature(cfg.temperature),
		gollm.SetMaxRetries(0), // retry policy is the caller's, not this layer's
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if cfg.apiKey != "" {
		gollmOpts = append(gollmOpts, gollm.SetAPIKey(cfg.apiKey))
	}
	gollmOpts = append(gollmOpts, cfg.extraOpts...)

	llm, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, &ConfigurationError{BaseError: BaseError{
			Message: "creating gollm client for provider " + provider,
			Cause:   err,
		}}
	}

	client := &GollmClient{provider: provider, model: model, apiBase: cfg.apiBase, llm: llm}
	if cfg.apiBase != "" {
		llm.SetOption("api_base", cfg.apiBase)
	}
	return client, nil
}

// NewGollmClientFromLLM wraps an existing gollm.LLM instance.
func NewGollmClientFromLLM(provider, model string, llm gollm.LLM) *GollmClient {
	return &GollmClient{provider: provider, model: model, llm: llm}
}

// Complete performs one blocking gollm call.
func (c *GollmClient) Complete(ctx context.Context, params *CallParams) (*ChatResponse, error) {
	prompt, err := c.translateParams(params)
	if err != nil {
		return nil, err
	}
	c.applyCallOptions(params)

	text, err := c.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, c.classifyError(err)
	}
	return c.buildResponse(params, text), nil
}

// Stream performs a streaming gollm call. When the configured backend cannot
// stream, the full response is generated once and replayed as a short chunk
// sequence so callers see a uniform interface.
func (c *GollmClient) Stream(ctx context.Context, params *CallParams) (ProviderStream, error) {
	prompt, err := c.translateParams(params)
	if err != nil {
		return nil, err
	}
	c.applyCallOptions(params)

	if !c.llm.SupportsStreaming() {
		text, err := c.llm.Generate(ctx, prompt)
		if err != nil {
			return nil, c.classifyError(err)
		}
		resp := c.buildResponse(params, text)
		return newBufferedStream([]ChatChunk{
			{Delta: resp.Text(), ToolCalls: resp.ToolCalls()},
			{FinishReason: resp.FinishReason, Usage: &resp.Usage},
		}), nil
	}

	stream, err := c.llm.Stream(ctx, prompt)
	if err != nil {
		return nil, c.classifyError(err)
	}

	gs := &gollmStream{}
	finished := false
	gs.next = func(ctx context.Context) (*ChatChunk, error) {
		for {
			token, err := stream.Next(ctx)
			if err == io.EOF {
				if finished {
					return nil, io.EOF
				}
				finished = true
				return &ChatChunk{FinishReason: "stop"}, nil
			}
			if err != nil {
				return nil, c.classifyError(err)
			}
			if token == nil {
				continue
			}
			return &ChatChunk{Delta: token.Text}, nil
		}
	}
	gs.close = stream.Close
	return gs, nil
}

// gollmStream adapts a gollm token stream to ProviderStream. The funcs close
// over the concrete stream so its type never leaks into this package.
type gollmStream struct {
	next  func(ctx context.Context) (*ChatChunk, error)
	close func() error
}

func (s *gollmStream) Next(ctx context.Context) (*ChatChunk, error) { return s.next(ctx) }
func (s *gollmStream) Close() error                                 { return s.close() }

// bufferedStream replays a fixed chunk sequence. Used for non-streaming
// backends and as a deterministic stub in tests.
type bufferedStream struct {
	chunks []ChatChunk
	pos    int
	closed bool
}

func newBufferedStream(chunks []ChatChunk) *bufferedStream {
	return &bufferedStream{chunks: chunks}
}

func (s *bufferedStream) Next(ctx context.Context) (*ChatChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.closed || s.pos >= len(s.chunks) {
		return nil, io.EOF
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return &chunk, nil
}

func (s *bufferedStream) Close() error {
	s.closed = true
	return nil
}

// translateParams converts CallParams into a gollm prompt. The message list
// is flattened the way gollm expects: system text accumulates into the
// system prompt, everything else joins the conversation body.
func (c *GollmClient) translateParams(params *CallParams) (*gollm.Prompt, error) {
	var systemPrompt strings.Builder
	var body []string

	for _, msg := range params.Messages {
		switch msg.Role {
		case RoleSystem:
			systemPrompt.WriteString(msg.TextContent())
			systemPrompt.WriteString("\n")
		case RoleUser:
			body = append(body, msg.TextContent())
		case RoleAssistant:
			if text := msg.TextContent(); text != "" {
				body = append(body, "[Assistant]: "+text)
			}
			for _, tc := range msg.ToolCalls() {
				body = append(body, "[Assistant Tool Call]: "+tc.Name+"("+string(tc.Arguments)+")")
			}
		case RoleTool:
			for _, part := range msg.Content {
				if part.Kind != ContentToolResult || part.ToolResult == nil {
					continue
				}
				var content string
				_ = json.Unmarshal(part.ToolResult.Content, &content)
				if content == "" {
					content = string(part.ToolResult.Content)
				}
				prefix := "[Tool Result]"
				if part.ToolResult.IsError {
					prefix = "[Tool Error]"
				}
				body = append(body, prefix+": "+content)
			}
		}
	}

	if params.ResponseSchema != nil {
		schemaJSON, err := json.Marshal(params.ResponseSchema)
		if err != nil {
			return nil, schemaErrorf("encoding response schema: %v", err)
		}
		// gollm has no first-class response_format; the schema rides in the
		// system prompt instead.
		systemPrompt.WriteString("\nRespond with a single JSON object conforming to this JSON Schema:\n")
		systemPrompt.Write(schemaJSON)
		systemPrompt.WriteString("\n")
	}

	promptText := strings.Join(body, "\n")
	if promptText == "" {
		promptText = "Hello"
	}

	var promptOpts []gollm.PromptOption
	if s := strings.TrimSpace(systemPrompt.String()); s != "" {
		promptOpts = append(promptOpts, gollm.WithSystemPrompt(s, gollm.CacheTypeEphemeral))
	}

	tools := params.Tools
	choiceMode := ""
	switch tc := params.ToolChoice.(type) {
	case string:
		choiceMode = tc
	case map[string]any:
		// Forced function: narrow the tool list to the named tool and
		// require a call, which forces exactly that tool.
		choiceMode = "required"
		if name := forcedToolName(tc); name != "" {
			var kept []Tool
			for _, t := range tools {
				if t.Name == name {
					kept = append(kept, t)
				}
			}
			if kept != nil {
				tools = kept
			}
		}
	}

	if len(tools) > 0 {
		gollmTools := make([]gollm.Tool, 0, len(tools))
		for _, t := range tools {
			gollmTools = append(gollmTools, gollm.Tool{
				Type: "function",
				Function: gollm.Function{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
		promptOpts = append(promptOpts, gollm.WithTools(gollmTools))
		if choiceMode != "" {
			promptOpts = append(promptOpts, gollm.WithToolChoice(choiceMode))
		}
	}

	return gollm.NewPrompt(promptText, promptOpts...), nil
}

// forcedToolName extracts the function name from a forced-function tool
// choice structure.
func forcedToolName(tc map[string]any) string {
	fn, ok := tc["function"].(map[string]any)
	if !ok {
		return ""
	}
	name, _ := fn["name"].(string)
	return name
}

// applyCallOptions forwards per-call parameters to the gollm instance.
// SetOption writes into gollm's persistent option map and gollm has no
// delete, so keys set by an earlier call and absent from this one are nulled
// out first. Otherwise a later call would still carry the earlier call's
// kwargs and stop sequences.
func (c *GollmClient) applyCallOptions(params *CallParams) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := make(map[string]struct{}, len(params.Extra)+1)
	for k := range params.Extra {
		next[k] = struct{}{}
	}
	if len(params.Stop) > 0 {
		next["stop"] = struct{}{}
	}
	for k := range c.callKeys {
		if _, ok := next[k]; !ok {
			c.llm.SetOption(k, nil)
		}
	}
	c.callKeys = next

	if params.Model != "" {
		c.llm.SetOption("model", params.Model)
	}
	for k, v := range params.Extra {
		c.llm.SetOption(k, v)
	}
	if len(params.Stop) > 0 {
		c.llm.SetOption("stop", params.Stop)
	}
}

// buildResponse assembles a ChatResponse from generated text. Usage is left
// unset: gollm does not surface token counts, and a fabricated zero would be
// indistinguishable from a real one.
func (c *GollmClient) buildResponse(params *CallParams, text string) *ChatResponse {
	toolCalls := c.parseToolCalls(text)

	var content []ContentPart
	if cleaned := c.stripToolCallJSON(text, toolCalls); cleaned != "" {
		content = append(content, TextPart(cleaned))
	}
	for i := range toolCalls {
		tc := toolCalls[i]
		content = append(content, ContentPart{Kind: ContentToolCall, ToolCall: &tc})
	}
	if len(content) == 0 {
		content = []ContentPart{TextPart(text)}
	}

	finish := "stop"
	if len(toolCalls) > 0 {
		finish = "tool_calls"
	}

	return &ChatResponse{
		ID:           "resp_" + uuid.New().String()[:8],
		Model:        params.Model,
		Provider:     c.provider,
		Message:      Message{Role: RoleAssistant, Content: content},
		FinishReason: finish,
	}
}

// parseToolCalls extracts tool calls that gollm returns embedded in the
// response text as JSON.
func (c *GollmClient) parseToolCalls(text string) []ToolCallData {
	start := strings.Index(text, `{"tool_calls"`)
	if start == -1 {
		start = strings.Index(text, `[{"name"`)
	}
	if start == -1 {
		return nil
	}

	var rawCalls []struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal([]byte(text[start:]), &rawCalls); err != nil {
		return nil
	}

	var calls []ToolCallData
	for _, rc := range rawCalls {
		calls = append(calls, ToolCallData{
			ID:        "call_" + uuid.New().String()[:8],
			Name:      rc.Name,
			Arguments: rc.Arguments,
			Type:      "function",
		})
	}
	return calls
}

// stripToolCallJSON removes parsed tool call JSON from the text.
func (c *GollmClient) stripToolCallJSON(text string, calls []ToolCallData) string {
	if len(calls) == 0 {
		return text
	}
	result := text
	for _, pattern := range []string{`{"tool_calls"`, `[{"name"`} {
		if idx := strings.Index(result, pattern); idx != -1 {
			result = strings.TrimSpace(result[:idx])
		}
	}
	return result
}

// classifyError maps a gollm failure into the package error hierarchy. The
// original error rides along as the cause so callers can still branch on the
// provider payload.
func (c *GollmClient) classifyError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	base := BaseError{Message: msg, Cause: err}

	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "invalid api key") || strings.Contains(lower, "invalid key"):
		return &AuthenticationError{ProviderError: ProviderError{BaseError: base, Provider: c.provider, StatusCode: 401}}
	case strings.Contains(lower, "403") || strings.Contains(lower, "forbidden"):
		return &AccessDeniedError{ProviderError: ProviderError{BaseError: base, Provider: c.provider, StatusCode: 403}}
	case strings.Contains(lower, "404") || strings.Contains(lower, "not found"):
		return &NotFoundError{ProviderError: ProviderError{BaseError: base, Provider: c.provider, StatusCode: 404}}
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit"):
		return &RateLimitError{ProviderError: ProviderError{BaseError: base, Provider: c.provider, StatusCode: 429, Retryable: true}}
	case strings.Contains(lower, "context length") || strings.Contains(lower, "too many tokens"):
		return &ContextLengthError{ProviderError: ProviderError{BaseError: base, Provider: c.provider, StatusCode: 413}}
	case strings.Contains(lower, "500") || strings.Contains(lower, "internal server"):
		return &ServerError{ProviderError: ProviderError{BaseError: base, Provider: c.provider, StatusCode: 500, Retryable: true}}
	case strings.Contains(lower, "timeout"):
		return &RequestTimeoutError{BaseError: base}
	case strings.Contains(lower, "content filter") || strings.Contains(lower, "safety"):
		return &ContentFilterError{ProviderError: ProviderError{BaseError: base, Provider: c.provider}}
	default:
		return &ProviderError{BaseError: base, Provider: c.provider, Retryable: true}
	}
}
