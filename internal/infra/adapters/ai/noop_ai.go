package ai

import (
	"context"
	"time"

	"sproutcv/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*NoopAIAdapter)(nil)

// NoopAIAdapter implements adapter.AIServiceAdapter for local/dev testing.
// It returns a canned scored response instead of calling a real provider.
type NoopAIAdapter struct{}

func NewNoopAIAdapter() *NoopAIAdapter {
	return &NoopAIAdapter{}
}

func (a *NoopAIAdapter) Name() string { return "noop" }

func (a *NoopAIAdapter) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	n := 0
	for _, m := range messages {
		// rough 4-chars-per-token heuristic
		n += len(m.Content) / 4
	}
	return n, nil
}

func (a *NoopAIAdapter) Complete(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return "", adapter.Usage{}, ctx.Err()
	}
	in, _ := a.CountTokens(ctx, model, messages)
	out := "SCORE: 75\nThis is a noop analysis response."
	return out, adapter.Usage{PromptTokens: in, CompletionTokens: 12, TotalTokens: in + 12}, nil
}
