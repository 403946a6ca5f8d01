package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = anthropic.ModelClaudeHaiku4_5

type anthropicClient struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

func newAnthropic(cfg Config) *anthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := anthropic.Model(cfg.Model)
	if cfg.Model == "" {
		model = defaultAnthropicModel
	}

	client := anthropic.NewClient(opts...)
	return &anthropicClient{
		client:    &client,
		model:     model,
		maxTokens: int64(cfg.MaxTokens),
	}
}

func (c *anthropicClient) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	content := strings.TrimSpace(sb.String())
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}
