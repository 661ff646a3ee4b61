package domain

import (
	"context"
	"time"
)

// LLMProvider is the interface for any LLM backend.
type LLMProvider interface {
	// Chat sends the full conversation plus tool schemas and returns a
	// complete response.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	// Name returns the provider's identifier (e.g., "groq", "gemini").
	Name() string
}

// ProviderState is the health state of a single backend.
type ProviderState string

const (
	ProviderActive         ProviderState = "Active"
	ProviderDown           ProviderState = "Down"
	ProviderQuotaExhausted ProviderState = "QuotaExhausted"
)

// ProviderHealth is a read-only snapshot of one backend's health record.
// ResetTime is meaningful only when State != ProviderActive.
type ProviderHealth struct {
	Name      string        `json:"name"`
	State     ProviderState `json:"state"`
	ResetTime time.Time     `json:"reset_time,omitempty"`
}

// CredentialSource resolves an ambient API credential for a backend.
type CredentialSource interface {
	// Lookup returns the credential for the named backend, if one exists.
	Lookup(provider string) (string, bool)
}
