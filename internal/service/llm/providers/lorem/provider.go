// Package lorem is a mock provider that answers with lorem ipsum text.
// Used for development and tests without real API keys.
package lorem

import (
	"context"
	"time"

	loremgen "github.com/bozaro/golorem"
)

// Provider generates placeholder responses after a short simulated delay.
type Provider struct {
	generator *loremgen.Lorem
	delay     time.Duration
}

// NewProvider creates a lorem provider with a small response delay so the
// loading placeholder is visible during development.
func NewProvider() *Provider {
	return &Provider{
		generator: loremgen.New(),
		delay:     500 * time.Millisecond,
	}
}

func (p *Provider) Name() string {
	return "lorem"
}

func (p *Provider) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	select {
	case <-time.After(p.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return p.generator.Paragraph(2, 4), nil
}

func (p *Provider) GenerateTitle(ctx context.Context, firstMessage string) (string, error) {
	select {
	case <-time.After(p.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return p.generator.Sentence(2, 4), nil
}
