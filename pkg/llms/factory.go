package llms

import "github.com/debatelab/debategraph/pkg/config"

// Factory builds a Provider for one debate participant. The server injects a
// factory into each debate session so tests can substitute scripted
// providers.
type Factory interface {
	NewProvider(cfg *config.LLMProviderConfig) (Provider, error)
}

// OpenAIFactory builds OpenAI providers.
type OpenAIFactory struct{}

// NewProvider implements Factory.
func (OpenAIFactory) NewProvider(cfg *config.LLMProviderConfig) (Provider, error) {
	return NewOpenAIProviderFromConfig(cfg)
}
