package anychat

import "context"

// CallParams is the translated, provider-facing call shape. ToolChoice is
// either a provider literal ("auto", "none", "required") or the provider's
// native forced-function structure; it is present only when Tools is
// non-empty.
type CallParams struct {
	Provider string    `json:"provider"`
	Model    string    `json:"model"`
	APIKey   string    `json:"-"`
	APIBase  string    `json:"api_base,omitempty"`
	Messages []Message `json:"messages"`

	Tools      []Tool `json:"tools,omitempty"`
	ToolChoice any    `json:"tool_choice,omitempty"`

	ResponseSchema     map[string]any `json:"response_schema,omitempty"`
	ResponseSchemaName string         `json:"response_schema_name,omitempty"`

	Stop  []string       `json:"stop,omitempty"`
	Extra map[string]any `json:"extra,omitempty"` // provider-native kwargs, forwarded unexamined
}

// ProviderClient is the narrow surface this package needs from the
// underlying unified-provider client. GollmClient is the production
// implementation; tests substitute deterministic stubs.
type ProviderClient interface {
	// Complete performs one blocking call and returns the full response.
	Complete(ctx context.Context, params *CallParams) (*ChatResponse, error)

	// Stream opens a streaming call. The returned stream is finite and must
	// be closed by the caller; Close releases the underlying connection.
	Stream(ctx context.Context, params *CallParams) (ProviderStream, error)
}

// ProviderStream yields incremental chunks from one streaming call. Next
// returns io.EOF after the final chunk. Close must be safe to call more than
// once and must release the connection even when iteration stops early.
type ProviderStream interface {
	Next(ctx context.Context) (*ChatChunk, error)
	Close() error
}
