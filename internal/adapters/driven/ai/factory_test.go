package ai

import (
	"testing"
)

func TestFactory_CreateEmbeddingService_Unconfigured(t *testing.T) {
	f := NewFactory()

	svc, err := f.CreateEmbeddingService(Settings{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc != nil {
		t.Error("expected nil service for unconfigured settings")
	}
}

func TestFactory_CreateEmbeddingService_OpenAI(t *testing.T) {
	f := NewFactory()

	svc, err := f.CreateEmbeddingService(Settings{
		Provider: ProviderOpenAI,
		APIKey:   "sk-test",
		Model:    "text-embedding-3-small",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc == nil {
		t.Fatal("expected embedding service")
	}
	if svc.Model() != "text-embedding-3-small" {
		t.Errorf("unexpected model: %s", svc.Model())
	}
}

func TestFactory_CreateEmbeddingService_UnknownProvider(t *testing.T) {
	f := NewFactory()

	_, err := f.CreateEmbeddingService(Settings{Provider: "mystery", APIKey: "key"})
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestFactory_CreateLLMService_Unconfigured(t *testing.T) {
	f := NewFactory()

	svc, err := f.CreateLLMService(Settings{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc != nil {
		t.Error("expected nil service for unconfigured settings")
	}
}

func TestFactory_CreateLLMService_OpenAI(t *testing.T) {
	f := NewFactory()

	svc, err := f.CreateLLMService(Settings{
		Provider: ProviderOpenAI,
		APIKey:   "sk-test",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc == nil {
		t.Fatal("expected LLM service")
	}
	if svc.Model() != "gpt-4o-mini" {
		t.Errorf("expected default model, got %s", svc.Model())
	}
}

func TestFactory_CreateLLMService_UnknownProvider(t *testing.T) {
	f := NewFactory()

	_, err := f.CreateLLMService(Settings{Provider: "mystery", APIKey: "key"})
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}
