package ai

import "fmt"

// NewProvider selects and constructs the Provider named by name
// ("ollama", also used when name is empty, or "anthropic"). cmd/dealsearch
// calls it with the configured expansion.provider; the returned Provider
// is safe for concurrent use.
func NewProvider(config ProviderConfig, name string) (Provider, error) {
	switch name {
	case "ollama", "":
		return NewOllamaProvider(config), nil
	case "anthropic":
		return NewAnthropicProvider(config), nil
	default:
		return nil, fmt.Errorf("ai: unknown provider %q", name)
	}
}
