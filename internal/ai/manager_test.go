package ai

import "testing"

func TestNewProvider_Ollama(t *testing.T) {
	p, err := NewProvider(ProviderConfig{}, "ollama")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "ollama" {
		t.Errorf("expected ollama, got %s", p.Name())
	}
}

func TestNewProvider_DefaultsToOllama(t *testing.T) {
	p, err := NewProvider(ProviderConfig{}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "ollama" {
		t.Errorf("expected ollama as default, got %s", p.Name())
	}
}

func TestNewProvider_Anthropic(t *testing.T) {
	p, err := NewProvider(ProviderConfig{APIKey: "test-key"}, "anthropic")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "anthropic" {
		t.Errorf("expected anthropic, got %s", p.Name())
	}
}

func TestNewProvider_Unknown(t *testing.T) {
	if _, err := NewProvider(ProviderConfig{}, "unknown"); err == nil {
		t.Error("expected error for unknown provider")
	}
}
