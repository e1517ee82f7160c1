package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	anthropicAPIURL     = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion = "2023-06-01"
)

// AnthropicProvider implements Provider using Anthropic's Claude API.
type AnthropicProvider struct {
	config ProviderConfig
	client *http.Client
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(config ProviderConfig) *AnthropicProvider {
	if config.APIKey == "" {
		config.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	return &AnthropicProvider{
		config: config,
		client: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}
}

// Name returns "anthropic".
func (p *AnthropicProvider) Name() string { return "anthropic" }

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type anthropicError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// chat sends a single-turn message to Anthropic and returns the reply text.
func (p *AnthropicProvider) chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	model := p.config.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	reqBody := anthropicRequest{
		Model:     model,
		MaxTokens: 1024,
		System:    systemPrompt,
		Messages:  []anthropicMessage{{Role: "user", Content: userPrompt}},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "POST", anthropicAPIURL, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", p.config.APIKey)
		req.Header.Set("anthropic-version", anthropicAPIVersion)

		resp, err := p.client.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(time.Second * time.Duration(attempt+1))
			continue
		}
		defer resp.Body.Close()

		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			var apiErr anthropicError
			if err := json.Unmarshal(bodyBytes, &apiErr); err == nil {
				lastErr = fmt.Errorf("anthropic API error: %s - %s", apiErr.Error.Type, apiErr.Error.Message)
			} else {
				lastErr = fmt.Errorf("anthropic returned status %d: %s", resp.StatusCode, string(bodyBytes))
			}

			if resp.StatusCode == 401 || resp.StatusCode == 403 {
				return "", &ErrProviderUnavailable{Provider: "anthropic", Reason: lastErr.Error()}
			}

			time.Sleep(time.Second * time.Duration(attempt+1))
			continue
		}

		var anthropicResp anthropicResponse
		if err := json.Unmarshal(bodyBytes, &anthropicResp); err != nil {
			lastErr = err
			continue
		}
		if len(anthropicResp.Content) == 0 {
			lastErr = fmt.Errorf("empty response from anthropic")
			continue
		}

		return anthropicResp.Content[0].Text, nil
	}

	return "", fmt.Errorf("anthropic chat failed after %d attempts: %w", p.config.MaxRetries+1, lastErr)
}

// Expand asks Claude for grocery terms related to query.
func (p *AnthropicProvider) Expand(ctx context.Context, query string) ([]string, error) {
	if p.config.APIKey == "" {
		return nil, &ErrProviderUnavailable{Provider: "anthropic", Reason: "ANTHROPIC_API_KEY not set"}
	}
	response, err := p.chat(ctx, expansionSystemPrompt, query)
	if err != nil {
		return nil, err
	}
	return parseExpansionResponse(response)
}
