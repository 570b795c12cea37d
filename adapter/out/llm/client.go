// Package llm provides the model-calling adapters behind the classifier
// ports: a cloud client for full-context classification and rule mining,
// and a local client for the cheap confidence-gated tier.
package llm

import (
	"context"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ClientConfig configures one OpenAI-compatible endpoint.
type ClientConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// client wraps the shared completion mechanics for both tiers.
type client struct {
	api         *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
}

func newClient(cfg ClientConfig) *client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &client{
		api:         openai.NewClientWithConfig(apiCfg),
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: float32(cfg.Temperature),
		timeout:     timeout,
	}
}

func (c *client) completeWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}

	return resp.Choices[0].Message.Content, nil
}
