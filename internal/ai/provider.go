// Package ai provides the query-expansion backends the expansion package
// dispatches to: a small, timeout-bounded term generator that sits in
// front of the core retrieval pipeline, not a general-purpose LLM
// orchestration layer.
package ai

import (
	"context"
	"fmt"
)

// Provider expands a single shopper query into a set of related grocery
// terms. Implementations must respect ctx's deadline — a slow or
// unavailable backend must never block the search path beyond its own
// configured timeout.
type Provider interface {
	// Name identifies the provider for logging ("ollama", "anthropic").
	Name() string

	// Expand returns additional search terms related to query, ordered
	// most-relevant first. An empty, nil-error result is valid: it means
	// the provider found nothing worth adding, not that it failed.
	Expand(ctx context.Context, query string) ([]string, error)
}

// ProviderConfig holds configuration common to every provider
// implementation in this package.
type ProviderConfig struct {
	// Model to use (e.g., "llama3.1:8b", "claude-sonnet-4-20250514").
	Model string

	// Endpoint for the API (mainly for Ollama).
	Endpoint string

	// APIKey for cloud providers (from env var, not stored in config).
	APIKey string

	// TimeoutSeconds bounds a single Expand call.
	TimeoutSeconds int

	// MaxRetries for failed requests.
	MaxRetries int
}

// ErrProviderUnavailable is returned when a provider is not configured or
// not reachable.
type ErrProviderUnavailable struct {
	Provider string
	Reason   string
}

func (e *ErrProviderUnavailable) Error() string {
	return fmt.Sprintf("AI provider %s is unavailable: %s", e.Provider, e.Reason)
}
