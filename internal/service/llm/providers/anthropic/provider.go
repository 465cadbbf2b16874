// Package anthropic generates responses directly against the Anthropic API,
// bypassing the GraphQL gateway.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"intelligence/internal/prompts"
)

const (
	defaultModel      = "claude-sonnet-4-5"
	responseMaxTokens = 4096
	titleMaxTokens    = 64
)

// Provider implements the response-generation boundary for Claude models.
type Provider struct {
	client  *anthropic.Client
	model   string
	prompts *prompts.Registry
}

// NewProvider creates an Anthropic provider with the given API key. model may
// be empty to use the default.
func NewProvider(apiKey, model string, registry *prompts.Registry) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if model == "" {
		model = defaultModel
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Provider{
		client:  &client,
		model:   model,
		prompts: registry,
	}, nil
}

func (p *Provider) Name() string {
	return "anthropic"
}

func (p *Provider) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	return p.complete(ctx, prompt, responseMaxTokens)
}

// GenerateTitle wraps the first message in the title instruction; unlike the
// gateway there is no dedicated title operation here.
func (p *Provider) GenerateTitle(ctx context.Context, firstMessage string) (string, error) {
	title, err := p.complete(ctx, p.prompts.TitlePrompt(firstMessage), titleMaxTokens)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(title), nil
}

func (p *Provider) complete(ctx context.Context, prompt string, maxTokens int64) (string, error) {
	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("anthropic response contained no text blocks")
	}
	return sb.String(), nil
}
