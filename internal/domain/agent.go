package domain

import "context"

// AgentResult is the terminal output of one agent loop invocation.
type AgentResult struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Agent is the contract shared by worker and manager agents. Identity and
// capability set are fixed at construction.
type Agent interface {
	Name() string
	// Process runs the agent's full loop for one query against the given
	// backend. Turn budget exhaustion is reported through the AgentResult,
	// not as an error; a returned error always means the backend call
	// itself failed.
	Process(ctx context.Context, query string, provider LLMProvider) (*AgentResult, error)
}
