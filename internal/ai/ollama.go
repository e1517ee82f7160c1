package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaProvider implements Provider using a local Ollama chat endpoint.
type OllamaProvider struct {
	config ProviderConfig
	client *http.Client
}

// NewOllamaProvider creates a new Ollama provider.
func NewOllamaProvider(config ProviderConfig) *OllamaProvider {
	return &OllamaProvider{
		config: config,
		client: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}
}

// Name returns "ollama".
func (p *OllamaProvider) Name() string { return "ollama" }

const expansionSystemPrompt = `You are a grocery shopping assistant helping expand a shopper's search query into related terms that would appear in grocery deal and coupon listings.

The query may be vague or conversational ("something for a kids birthday party") or already a concrete product name ("2% milk"). Think in terms of these grocery categories: produce, dairy, meat & seafood, bakery, frozen, beverages, snacks, household, health & beauty, deli, pantry, baby, pet, alcohol, floral, seasonal/holiday, bulk, general merchandise.

Return additional search terms that are semantically related: brand names, category synonyms, and common alternate spellings a grocery circular might use. Do not repeat the original query. Do not invent products that don't plausibly exist in a grocery store.

Respond ONLY with a JSON object in this exact format, with no markdown or commentary:
{"terms": ["term one", "term two"]}

If the query is already specific enough that expanding it would only add noise, respond with the single word PASS instead of JSON.`

// ollamaRequest is the request body for Ollama's /api/chat endpoint.
type ollamaRequest struct {
	Model    string                 `json:"model"`
	Messages []ollamaMessage        `json:"messages"`
	Stream   bool                   `json:"stream"`
	Format   string                 `json:"format,omitempty"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ollamaResponse is the response from Ollama's /api/chat endpoint.
type ollamaResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// chat sends a chat request to Ollama and returns the response content.
func (p *OllamaProvider) chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	reqBody := ollamaRequest{
		Model: p.config.Model,
		Messages: []ollamaMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Stream: false,
		Format: "json",
		Options: map[string]interface{}{
			"temperature": 0.1,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "POST", p.config.Endpoint+"/api/chat", bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			bodyBytes, _ := io.ReadAll(resp.Body)
			lastErr = fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(bodyBytes))
			continue
		}

		var ollamaResp ollamaResponse
		if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
			lastErr = err
			continue
		}

		return ollamaResp.Message.Content, nil
	}

	return "", fmt.Errorf("ollama chat failed after %d attempts: %w", p.config.MaxRetries+1, lastErr)
}

// Expand asks the local model for grocery terms related to query.
func (p *OllamaProvider) Expand(ctx context.Context, query string) ([]string, error) {
	response, err := p.chat(ctx, expansionSystemPrompt, query)
	if err != nil {
		return nil, err
	}
	return parseExpansionResponse(response)
}

func parseExpansionResponse(response string) ([]string, error) {
	if strings.EqualFold(strings.TrimSpace(response), "PASS") {
		return nil, nil
	}

	trimmed := extractJSON(response)

	var parsed struct {
		Terms []string `json:"terms"`
	}
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return nil, fmt.Errorf("parsing expansion response: %w\nresponse: %s", err, response)
	}
	return parsed.Terms, nil
}
