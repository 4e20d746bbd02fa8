// Package advisor provides the optional LLM layer that turns deterministic
// pipeline output into conversational prose. It is config-gated and nil-safe:
// when no provider is configured, drafts ship exactly as the renderer
// produced them.
package advisor

import "context"

// Client is the interface that all advisor providers must implement.
type Client interface {
	// Chat sends a chat completion request and returns the response.
	Chat(ctx context.Context, model string, messages []Message, tools []map[string]any) (*ChatResponse, error)

	// ChatStream sends a streaming chat request. If callback is non-nil, tokens are streamed to it.
	ChatStream(ctx context.Context, model string, messages []Message, tools []map[string]any, callback StreamCallback) (*ChatResponse, error)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}
