// Package graphql talks to the product's GraphQL gateway, the default
// response-generation backend.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

const (
	responseQuery = `query($prompt: String!) { generateAiResponse(prompt: $prompt) }`
	titleQuery    = `query($message: String!) { generateChatTitle(message: $message) }`

	defaultTimeout = 60 * time.Second
)

// Provider queries the gateway's generateAiResponse and generateChatTitle
// fields over plain HTTP POST.
type Provider struct {
	endpoint string
	client   *http.Client
}

// NewProvider creates a provider for the given GraphQL endpoint.
func NewProvider(endpoint string) (*Provider, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("graphql endpoint is required")
	}
	return &Provider{
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultTimeout},
	}, nil
}

func (p *Provider) Name() string {
	return "graphql"
}

func (p *Provider) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	return p.query(ctx, responseQuery, map[string]string{"prompt": prompt}, "data.generateAiResponse")
}

func (p *Provider) GenerateTitle(ctx context.Context, firstMessage string) (string, error) {
	return p.query(ctx, titleQuery, map[string]string{"message": firstMessage}, "data.generateChatTitle")
}

// query posts a single GraphQL operation and extracts the named field from
// the response envelope.
func (p *Provider) query(ctx context.Context, query string, variables map[string]string, field string) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("graphql request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read graphql response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("graphql endpoint returned status %d", resp.StatusCode)
	}

	if errs := gjson.GetBytes(body, "errors"); errs.Exists() && len(errs.Array()) > 0 {
		return "", fmt.Errorf("graphql error: %s", errs.Array()[0].Get("message").String())
	}

	result := gjson.GetBytes(body, field)
	if !result.Exists() || result.Type == gjson.Null {
		return "", fmt.Errorf("graphql response missing %s", field)
	}
	return result.String(), nil
}
