package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Default OpenAI models per tier.
const (
	DefaultOpenAILowModel  = "gpt-3.5-turbo-instruct"
	DefaultOpenAIHighModel = "gpt-4"
)

// OpenAIConfig configures the OpenAI completer.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Models  Models
}

// OpenAI serves the low tier from the completions endpoint and the high tier
// from chat completions.
type OpenAI struct {
	client openai.Client
	models Models
}

// NewOpenAI creates an OpenAI completer. An empty API key is an error.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: missing API key")
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
		models.Low = DefaultOpenAILowModel
	}
	if models.High == "" {
		models.High = DefaultOpenAIHighModel
	}
	return &OpenAI{client: openai.NewClient(opts...), models: models}, nil
}

// Complete implements Completer.
func (o *OpenAI) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	model := o.models.forTier(opts.Tier)
	if opts.Tier == TierHigh {
		resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:       openai.ChatModel(model),
			Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
			Temperature: openai.Float(opts.Temperature),
			MaxTokens:   openai.Int(int64(opts.MaxTokens)),
			N:           openai.Int(1),
		})
		if err != nil {
			return "", fmt.Errorf("openai chat %s: %w", model, err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("openai chat %s: empty response", model)
		}
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	}

	resp, err := o.client.Completions.New(ctx, openai.CompletionNewParams{
		Model:       openai.CompletionNewParamsModel(model),
		Prompt:      openai.CompletionNewParamsPromptUnion{OfString: openai.String(prompt)},
		Temperature: openai.Float(opts.Temperature),
		MaxTokens:   openai.Int(int64(opts.MaxTokens)),
		TopP:        openai.Float(1),
	})
	if err != nil {
		return "", fmt.Errorf("openai completion %s: %w", model, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai completion %s: empty response", model)
	}
	return strings.TrimSpace(resp.Choices[0].Text), nil
}
