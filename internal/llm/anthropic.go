package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
)

const defaultAnthropicModel = "claude-3-haiku-20240307"

// AnthropicClient implements Client against the Anthropic Messages API.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicClient creates an Anthropic-backed client. An empty model
// selects a cheap default suited to short judgment calls.
func NewAnthropicClient(apiKey, model string, timeout time.Duration) *AnthropicClient {
	if model == "" {
		model = defaultAnthropicModel
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := anthropic.NewClient(apiKey,
		anthropic.WithHTTPClient(&http.Client{Timeout: timeout}),
	)

	return &AnthropicClient{client: client, model: model}
}

// Complete sends the messages and returns the first text block. System
// messages are folded into the request's system prompt; JSON mode has no
// API-level equivalent here, so the prompt must carry the instruction.
func (c *AnthropicClient) Complete(ctx context.Context, messages []Message, opts Options) (*Completion, error) {
	var system []string
	var chat []anthropic.Message
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		chat = append(chat, anthropic.NewUserTextMessage(m.Content))
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}
	temperature := opts.Temperature

	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(c.model),
		System:      strings.Join(system, "\n\n"),
		Messages:    chat,
		MaxTokens:   maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic completion: %w", err)
	}

	if len(resp.Content) == 0 || resp.Content[0].Text == nil {
		return nil, fmt.Errorf("anthropic completion: empty response")
	}

	return &Completion{
		Content:     *resp.Content[0].Text,
		Model:       string(resp.Model),
		Provider:    "anthropic",
		TotalTokens: resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}
