// Package llm talks to hosted chat models behind a single Complete call.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	DefaultMaxTokens = 4096
	DefaultTimeout   = 2 * time.Minute
)

// ErrEmptyResponse is returned when the provider answers without any text.
var ErrEmptyResponse = errors.New("empty model response")

// Client sends one system+user exchange and returns the reply text.
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Func adapts a plain function to Client.
type Func func(ctx context.Context, system, user string) (string, error)

func (f Func) Complete(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}

// Config selects and parameterizes a provider.
type Config struct {
	Provider  string
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
	Timeout   time.Duration
}

// New builds the client for cfg.Provider.
func New(cfg Config) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("llm api key is required")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI, "":
		return newOpenAI(cfg), nil
	case ProviderAnthropic:
		return newAnthropic(cfg), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
