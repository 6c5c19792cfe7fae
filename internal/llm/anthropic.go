package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Default Anthropic models per tier.
const (
	DefaultAnthropicLowModel  = "claude-3-5-haiku-latest"
	DefaultAnthropicHighModel = "claude-sonnet-4-5"
)

// AnthropicConfig configures the Anthropic completer.
type AnthropicConfig struct {
	APIKey  string
	BaseURL string
	Models  Models
}

// Anthropic serves both tiers from the Messages API with different models.
type Anthropic struct {
	client anthropic.Client
	models Models
}

// NewAnthropic creates an Anthropic completer. An empty API key is an error.
func NewAnthropic(cfg AnthropicConfig) (*Anthropic, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: missing API key")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	models := cfg.Models
	if models.Low == "" {
		models.Low = DefaultAnthropicLowModel
	}
	if models.High == "" {
		models.High = DefaultAnthropicHighModel
	}
	return &Anthropic{client: anthropic.NewClient(opts...), models: models}, nil
}

// Complete implements Completer.
func (a *Anthropic) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	model := a.models.forTier(opts.Tier)
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(opts.MaxTokens),
		Temperature: anthropic.Float(opts.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic %s: %w", model, err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
