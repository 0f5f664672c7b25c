// Package ai extracts business opportunities from client communications
// using the Anthropic Messages API.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// placeholderAPIKey is the value shipped in .env.example; treating it as
// unset stops the service from booting with dead credentials.
const placeholderAPIKey = "your_anthropic_key_here"

// Defaults for the completion request.
const (
	DefaultModel       = "claude-sonnet-4-5"
	DefaultMaxTokens   = 1500
	DefaultTemperature = 0.3
)

// ClientConfig configures the Anthropic completion client.
type ClientConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int64
	Temperature float64
}

// Client performs single completion calls against the Anthropic API.
// It never retries; retry policy belongs to the Detector.
type Client struct {
	client      anthropic.Client
	model       anthropic.Model
	maxTokens   int64
	temperature float64
}

// NewClient creates a completion client. It fails fast when the API key is
// missing or a placeholder so a misconfigured service never accepts requests.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" || cfg.APIKey == placeholderAPIKey {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}

	return &Client{
		client:      anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:       anthropic.Model(cfg.Model),
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Complete performs exactly one completion call and returns the concatenated
// text blocks of the response.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(c.temperature),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInference, err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: completion contained no text", ErrMalformedResponse)
	}

	return sb.String(), nil
}
