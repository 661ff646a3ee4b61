package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"fincrew/internal/domain"
	"fincrew/internal/infra/config"
)

// fakeProvider is a scriptable LLMProvider for tests.
type fakeProvider struct {
	name     string
	chatFunc func(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error)
}

func (f *fakeProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	return f.chatFunc(ctx, req)
}

func (f *fakeProvider) Name() string { return f.name }

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	calls := 0
	inner := &fakeProvider{
		name: "flaky",
		chatFunc: func(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
			calls++
			return nil, fmt.Errorf("%w: boom", domain.ErrProviderDown)
		},
	}

	breaker := NewBreaker("flaky", config.CircuitBreakerConfig{
		MaxFailures: 2,
		Timeout:     time.Minute,
	}, newTestLogger())
	cb := NewCircuitBreakerProvider(inner, breaker, newTestLogger())

	req := domain.ChatRequest{Messages: []domain.Message{{Role: domain.RoleUser, Content: "hi"}}}

	for i := 0; i < 2; i++ {
		if _, err := cb.Chat(context.Background(), req); err == nil {
			t.Fatal("expected failure")
		}
	}

	// Circuit is now open; the inner provider must not be reached.
	_, err := cb.Chat(context.Background(), req)
	if !errors.Is(err, domain.ErrProviderDown) {
		t.Errorf("open circuit err = %v, want ErrProviderDown", err)
	}
	if calls != 2 {
		t.Errorf("inner calls = %d, want 2 (open circuit fails fast)", calls)
	}
}

func TestCircuitBreakerPassesThroughSuccess(t *testing.T) {
	inner := &fakeProvider{
		name: "ok",
		chatFunc: func(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
			return &domain.ChatResponse{Message: domain.Message{Role: domain.RoleAssistant, Content: "hi"}}, nil
		},
	}

	breaker := NewBreaker("ok", config.CircuitBreakerConfig{}, newTestLogger())
	cb := NewCircuitBreakerProvider(inner, breaker, newTestLogger())

	resp, err := cb.Chat(context.Background(), domain.ChatRequest{})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Message.Content != "hi" {
		t.Errorf("Content = %q", resp.Message.Content)
	}
	if cb.Name() != "ok" {
		t.Errorf("Name = %q", cb.Name())
	}
}

func TestFactorySharesBreakerAcrossBuilds(t *testing.T) {
	factory := NewFactory(config.LLMConfig{
		Providers: []config.ProviderConfig{
			{Name: "groq", Type: "openai", Model: "m"},
		},
		CircuitBreaker: config.CircuitBreakerConfig{Enabled: true, MaxFailures: 2},
	}, newTestLogger())

	p1, err := factory.Build("groq", "key-1")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	p2, err := factory.Build("groq", "key-2")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	cb1, ok := p1.(*CircuitBreakerProvider)
	if !ok {
		t.Fatalf("Build returned %T, want *CircuitBreakerProvider", p1)
	}
	cb2 := p2.(*CircuitBreakerProvider)

	if cb1.breaker != cb2.breaker {
		t.Error("breaker must be shared across per-request builds")
	}
}

func TestFactoryUnknownProvider(t *testing.T) {
	factory := NewFactory(config.LLMConfig{
		Providers: []config.ProviderConfig{{Name: "groq", Type: "openai"}},
	}, newTestLogger())

	_, err := factory.Build("nope", "")
	if !errors.Is(err, domain.ErrProviderNotFound) {
		t.Errorf("err = %v, want ErrProviderNotFound", err)
	}
}

func TestFactoryBuildsProviderTypes(t *testing.T) {
	factory := NewFactory(config.LLMConfig{
		Providers: []config.ProviderConfig{
			{Name: "groq", Type: "openai", Model: "m"},
			{Name: "gemini", Type: "gemini", Model: "g"},
		},
	}, newTestLogger())

	p, err := factory.Build("gemini", "k")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := p.(*GeminiProvider); !ok {
		t.Errorf("Build(gemini) returned %T, want *GeminiProvider", p)
	}

	p, err = factory.Build("groq", "k")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := p.(*GroqProvider); !ok {
		t.Errorf("Build(groq) returned %T, want *GroqProvider", p)
	}
}
