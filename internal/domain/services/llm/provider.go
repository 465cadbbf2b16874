package llm

import (
	"context"
)

// Provider is the response-generation boundary: a transcript prompt in, the
// assistant's Markdown out. Implementations live under
// internal/service/llm/providers.
//
// Both calls block until the provider answers or ctx is done. A cancelled
// context is the one error the caller treats as cancellation rather than
// failure.
type Provider interface {
	// Name identifies the provider in logs and config ("graphql",
	// "anthropic", "lorem").
	Name() string

	// GenerateResponse answers a conversation transcript prompt.
	GenerateResponse(ctx context.Context, prompt string) (string, error)

	// GenerateTitle produces a short conversation title from the first
	// user message. Best effort; callers fall back to a default on error
	// or empty output.
	GenerateTitle(ctx context.Context, firstMessage string) (string, error)
}
