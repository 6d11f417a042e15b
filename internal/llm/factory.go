package llm

import "time"

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// Config selects and configures a judgment provider. All fields are
// optional; with no key set there is no provider.
type Config struct {
	AnthropicKey  string
	OpenAIKey     string
	OpenRouterKey string
	Model         string
	Timeout       time.Duration
}

// NewFromConfig returns a client for the first configured provider, in
// order Anthropic, OpenAI, OpenRouter. It returns nil when no provider is
// configured; callers must treat a nil client as "no judge available".
func NewFromConfig(cfg Config) Client {
	switch {
	case cfg.AnthropicKey != "":
		return NewAnthropicClient(cfg.AnthropicKey, cfg.Model, cfg.Timeout)
	case cfg.OpenAIKey != "":
		return NewOpenAIClient(cfg.OpenAIKey, cfg.Model, "", "openai", cfg.Timeout)
	case cfg.OpenRouterKey != "":
		return NewOpenAIClient(cfg.OpenRouterKey, cfg.Model, openRouterBaseURL, "openrouter", cfg.Timeout)
	default:
		return nil
	}
}
