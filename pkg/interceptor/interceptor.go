// Package interceptor wraps LLM provider clients so every call routes
// through the policy gate. The wrapper depends only on the narrow
// Generator capability, so supporting a new provider means writing an
// adapter, not touching the wrapper.
package interceptor

import "context"

// Message is a single conversation turn.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Prompt is the provider-agnostic input for a generation call.
type Prompt struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

// Usage is the token accounting a provider reports for a call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Generation is the provider-agnostic output of a generation call.
type Generation struct {
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
	Usage   *Usage `json:"usage,omitempty"`
	// Redacted is set when sensitive content was detected post-call
	// and the response content was scrubbed before being returned.
	Redacted bool `json:"redacted,omitempty"`
}

// Generator is the single capability the wrapper needs from a
// provider. Adapters for concrete SDKs implement it.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (*Generation, error)
	Provider() string
}
