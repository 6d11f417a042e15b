// Package llm is the boundary to the external judgment service. The
// engine treats the service as potentially absent and its output as
// untrusted text.
package llm

import "context"

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one chat message sent to a provider.
type Message struct {
	Role    string
	Content string
}

// Options tune a single completion request.
type Options struct {
	Temperature float32
	MaxTokens   int
	// JSONMode asks the provider for a JSON-only response where the API
	// supports it. Callers still must parse defensively.
	JSONMode bool
}

// Completion is a provider response.
type Completion struct {
	Content     string
	Model       string
	Provider    string
	TotalTokens int
}

// Client is a minimal chat-completion client. Implementations must honor
// ctx cancellation and bound each request with their own timeout.
type Client interface {
	Complete(ctx context.Context, messages []Message, opts Options) (*Completion, error)
}
