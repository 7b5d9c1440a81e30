package adapter

import "context"

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Usage for a single completion call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// AIServiceAdapter is the port for the generative-AI providers that perform
// the actual resume scoring. The service treats them as opaque text-in,
// text-out collaborators.
type AIServiceAdapter interface {
	Name() string

	// CountTokens returns prompt tokens for the provided messages
	// (provider-specific counting; best-effort when exact isn't available).
	CountTokens(ctx context.Context, model string, messages []Message) (int, error)

	// Complete returns assistant text + usage as reported by the provider.
	Complete(ctx context.Context, model string, messages []Message) (string, Usage, error)
}
