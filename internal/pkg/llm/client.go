// Package llm talks to text-generation providers. The hosted provider is the
// primary backend; a local endpoint serves as an offline recovery path.
package llm

import "context"

// Client produces a completion for a prompt.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionRequest carries one generation call.
type CompletionRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

// DefaultMaxTokens applies when a request does not set its own limit.
const DefaultMaxTokens = 1024
