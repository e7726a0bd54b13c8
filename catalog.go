package anychat

import "os"

// ProviderInfo describes a known provider in the catalog. ContentKinds is the
// explicit list of input content kinds the translation layer actually
// transmits for the provider; anything outside it is rejected before the
// network call rather than silently dropped. Image parts are not listed for
// any provider because the gollm path flattens messages to text.
type ProviderInfo struct {
	Name           string        `json:"name"`
	DisplayName    string        `json:"display_name"`
	APIKeyEnv      string        `json:"api_key_env,omitempty"`
	RequiresAPIKey bool          `json:"requires_api_key"`
	DefaultModel   string        `json:"default_model"`
	ContentKinds   []ContentKind `json:"content_kinds"`
	SupportsTools  bool          `json:"supports_tools"`
}

// Providers is the built-in provider catalog.
var Providers = []ProviderInfo{
	{
		Name: "openai", DisplayName: "OpenAI",
		APIKeyEnv: "OPENAI_API_KEY", RequiresAPIKey: true,
		DefaultModel: "gpt-4o-mini",
		ContentKinds: []ContentKind{ContentText, ContentToolCall, ContentToolResult},
		SupportsTools: true,
	},
	{
		Name: "anthropic", DisplayName: "Anthropic",
		APIKeyEnv: "ANTHROPIC_API_KEY", RequiresAPIKey: true,
		DefaultModel: "claude-sonnet-4-5",
		ContentKinds: []ContentKind{ContentText, ContentToolCall, ContentToolResult},
		SupportsTools: true,
	},
	{
		Name: "gemini", DisplayName: "Google Gemini",
		APIKeyEnv: "GEMINI_API_KEY", RequiresAPIKey: true,
		DefaultModel: "gemini-2.0-flash",
		ContentKinds: []ContentKind{ContentText, ContentToolCall, ContentToolResult},
		SupportsTools: true,
	},
	{
		Name: "groq", DisplayName: "Groq",
		APIKeyEnv: "GROQ_API_KEY", RequiresAPIKey: true,
		DefaultModel: "llama-3.3-70b-versatile",
		ContentKinds: []ContentKind{ContentText, ContentToolCall, ContentToolResult},
		SupportsTools: true,
	},
	{
		Name: "mistral", DisplayName: "Mistral",
		APIKeyEnv: "MISTRAL_API_KEY", RequiresAPIKey: true,
		DefaultModel: "mistral-small-latest",
		ContentKinds: []ContentKind{ContentText, ContentToolCall, ContentToolResult},
		SupportsTools: true,
	},
	{
		Name: "ollama", DisplayName: "Ollama",
		RequiresAPIKey: false,
		DefaultModel:   "llama3.1",
		ContentKinds:   []ContentKind{ContentText},
		SupportsTools:  false,
	},
}

// GetProviderInfo returns the catalog entry for a provider, or nil if unknown.
func GetProviderInfo(name string) *ProviderInfo {
	for i := range Providers {
		if Providers[i].Name == name {
			return &Providers[i]
		}
	}
	return nil
}

// ListProviders returns all known providers.
func ListProviders() []ProviderInfo {
	out := make([]ProviderInfo, len(Providers))
	copy(out, Providers)
	return out
}

// SupportsContentKind reports whether the provider accepts the given input
// content kind.
func (p ProviderInfo) SupportsContentKind(kind ContentKind) bool {
	for _, k := range p.ContentKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// ResolveAPIKey returns the explicit key when given, otherwise the value of
// the provider's environment variable.
func (p ProviderInfo) ResolveAPIKey(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(p.APIKeyEnv)
}
