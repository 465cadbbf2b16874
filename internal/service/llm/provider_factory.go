package llm

import (
	"fmt"

	"intelligence/internal/config"
	domainllm "intelligence/internal/domain/services/llm"
	"intelligence/internal/prompts"
	"intelligence/internal/service/llm/providers/anthropic"
	"intelligence/internal/service/llm/providers/graphql"
	"intelligence/internal/service/llm/providers/lorem"
)

// ProviderFactory creates the configured response-generation provider.
type ProviderFactory struct {
	config  *config.Config
	prompts *prompts.Registry
}

// NewProviderFactory creates a new provider factory.
func NewProviderFactory(cfg *config.Config, registry *prompts.Registry) *ProviderFactory {
	return &ProviderFactory{
		config:  cfg,
		prompts: registry,
	}
}

// GetProvider returns a provider instance for the given provider name.
//
// Supported providers:
//   - "graphql" - the product's GraphQL gateway (default)
//   - "anthropic" - Claude models via the Anthropic API
//   - "lorem" - mock provider for development (no API key required)
func (f *ProviderFactory) GetProvider(providerName string) (domainllm.Provider, error) {
	switch providerName {
	case "graphql":
		return graphql.NewProvider(f.config.GraphQLEndpoint)

	case "anthropic":
		if f.config.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
		return anthropic.NewProvider(f.config.AnthropicAPIKey, f.config.AnthropicModel, f.prompts)

	case "lorem":
		return lorem.NewProvider(), nil

	default:
		return nil, fmt.Errorf("unsupported provider: %s", providerName)
	}
}
