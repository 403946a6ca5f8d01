package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAIModel = openai.ChatModelGPT4oMini

type openAIClient struct {
	client    *openai.Client
	model     openai.ChatModel
	maxTokens int64
}

func newOpenAI(cfg Config) *openAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := openai.ChatModel(cfg.Model)
	if cfg.Model == "" {
		model = defaultOpenAIModel
	}

	client := openai.NewClient(opts...)
	return &openAIClient{
		client:    &client,
		model:     model,
		maxTokens: int64(cfg.MaxTokens),
	}
}

func (c *openAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     c.model,
		MaxTokens: openai.Int(c.maxTokens),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}
