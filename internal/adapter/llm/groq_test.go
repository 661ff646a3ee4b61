package llm

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"fincrew/internal/domain"
	"fincrew/internal/infra/config"
)

func newTestLogger() *slog.Logger {
	return slog.Default()
}

func TestGroqProviderChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth: %s", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content-type: %s", r.Header.Get("Content-Type"))
		}

		resp := openaiResponse{
			ID:    "chatcmpl-123",
			Model: "llama-3.1-8b-instant",
			Choices: []openaiChoice{
				{
					Index: 0,
					Message: openaiMessage{
						Role:    "assistant",
						Content: "Hello! How can I help?",
					},
					FinishReason: "stop",
				},
			},
			Usage: openaiUsage{
				PromptTokens:     10,
				CompletionTokens: 8,
				TotalTokens:      18,
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider := NewGroqProvider(config.ProviderConfig{
		Name:    "groq",
		BaseURL: server.URL,
		Model:   "llama-3.1-8b-instant",
	}, "test-key", newTestLogger())

	req := domain.ChatRequest{
		Messages: []domain.Message{
			{Role: domain.RoleUser, Content: "Hello"},
		},
	}

	resp, err := provider.Chat(context.Background(), req)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if resp.Message.Content != "Hello! How can I help?" {
		t.Errorf("Content = %q, want %q", resp.Message.Content, "Hello! How can I help?")
	}
	if resp.Usage.TotalTokens != 18 {
		t.Errorf("TotalTokens = %d, want 18", resp.Usage.TotalTokens)
	}
}

func TestGroqProviderChatWithToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := openaiResponse{
			ID:    "chatcmpl-456",
			Model: "llama-3.1-8b-instant",
			Choices: []openaiChoice{
				{
					Index: 0,
					Message: openaiMessage{
						Role: "assistant",
						ToolCalls: []openaiToolCall{
							{
								ID:   "call_1",
								Type: "function",
								Function: openaiToolCallFunction{
									Name:      "calculator",
									Arguments: `{"operation":"add","a":1,"b":2}`,
								},
							},
						},
					},
					FinishReason: "tool_calls",
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider := NewGroqProvider(config.ProviderConfig{
		Name:    "groq",
		BaseURL: server.URL,
		Model:   "llama-3.1-8b-instant",
	}, "test-key", newTestLogger())

	resp, err := provider.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "add 1 and 2"}},
		Tools: []domain.ToolSchema{
			{Name: "calculator", Description: "arithmetic", Parameters: json.RawMessage(`{"type":"object"}`)},
		},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if len(resp.Message.ToolCalls) != 1 {
		t.Fatalf("ToolCalls = %d, want 1", len(resp.Message.ToolCalls))
	}
	tc := resp.Message.ToolCalls[0]
	if tc.Name != "calculator" {
		t.Errorf("tool name = %q, want calculator", tc.Name)
	}
	if tc.ID != "call_1" {
		t.Errorf("tool call id = %q, want call_1", tc.ID)
	}
}

func TestGroqProviderKeepsFirstToolCallOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := openaiResponse{
			Choices: []openaiChoice{
				{
					Message: openaiMessage{
						Role: "assistant",
						ToolCalls: []openaiToolCall{
							{
								ID:   "call_1",
								Type: "function",
								Function: openaiToolCallFunction{
									Name:      "get_stock_price",
									Arguments: `{"ticker":"AAPL"}`,
								},
							},
							{
								ID:   "call_2",
								Type: "function",
								Function: openaiToolCallFunction{
									Name:      "get_company_news",
									Arguments: `{"ticker":"AAPL"}`,
								},
							},
						},
					},
					FinishReason: "tool_calls",
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider := NewGroqProvider(config.ProviderConfig{
		Name: "groq", BaseURL: server.URL, Model: "llama-3.1-8b-instant",
	}, "k", newTestLogger())

	resp, err := provider.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "AAPL?"}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if len(resp.Message.ToolCalls) != 1 {
		t.Fatalf("ToolCalls = %d, want 1", len(resp.Message.ToolCalls))
	}
	if resp.Message.ToolCalls[0].ID != "call_1" {
		t.Errorf("kept call id = %q, want call_1", resp.Message.ToolCalls[0].ID)
	}
	if resp.Message.ToolCalls[0].Name != "get_stock_price" {
		t.Errorf("kept call = %q, want get_stock_price", resp.Message.ToolCalls[0].Name)
	}
}

func TestGroqProviderSendsToolResultMessages(t *testing.T) {
	var captured openaiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openaiResponse{
			Choices: []openaiChoice{{Message: openaiMessage{Role: "assistant", Content: "3"}}},
		})
	}))
	defer server.Close()

	provider := NewGroqProvider(config.ProviderConfig{
		Name: "groq", BaseURL: server.URL, Model: "llama-3.1-8b-instant",
	}, "k", newTestLogger())

	_, err := provider.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{
			{Role: domain.RoleUser, Content: "add 1 and 2"},
			{Role: domain.RoleAssistant, ToolCalls: []domain.ToolCall{
				{ID: "call_1", Name: "calculator", Arguments: json.RawMessage(`{"a":1,"b":2}`)},
			}},
			{Role: domain.RoleTool, Name: "calculator", Content: "3", ToolCalls: []domain.ToolCall{{ID: "call_1"}}},
		},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if len(captured.Messages) != 3 {
		t.Fatalf("messages sent = %d, want 3", len(captured.Messages))
	}
	if captured.Messages[1].ToolCalls[0].ID != "call_1" {
		t.Errorf("assistant tool call id = %q, want call_1", captured.Messages[1].ToolCalls[0].ID)
	}
	if captured.Messages[2].ToolCallID != "call_1" {
		t.Errorf("tool result tool_call_id = %q, want call_1", captured.Messages[2].ToolCallID)
	}
}

func TestMapHTTPError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{"429 is quota", http.StatusTooManyRequests, `{"error":"slow down"}`, domain.ErrQuotaExhausted},
		{"quota keyword in body", http.StatusBadRequest, `{"error":"you exceeded your current quota"}`, domain.ErrQuotaExhausted},
		{"500 is down", http.StatusInternalServerError, "boom", domain.ErrProviderDown},
		{"503 is down", http.StatusServiceUnavailable, "maintenance", domain.ErrProviderDown},
		{"401 is provider error", http.StatusUnauthorized, `{"error":"bad key"}`, domain.ErrProvider},
		{"400 is provider error", http.StatusBadRequest, `{"error":"bad request"}`, domain.ErrProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapHTTPError(tt.status, []byte(tt.body))
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("mapHTTPError(%d, %q) = %v, want %v", tt.status, tt.body, err, tt.sentinel)
			}
		})
	}
}

func TestGroqProviderMapsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	}))
	defer server.Close()

	provider := NewGroqProvider(config.ProviderConfig{
		Name: "groq", BaseURL: server.URL, Model: "m",
	}, "k", newTestLogger())

	_, err := provider.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
	})
	if !errors.Is(err, domain.ErrProviderDown) {
		t.Errorf("err = %v, want ErrProviderDown", err)
	}
}

func TestGroqProviderNetworkErrorIsDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // force connection refused

	provider := NewGroqProvider(config.ProviderConfig{
		Name: "groq", BaseURL: server.URL, Model: "m",
	}, "k", newTestLogger())

	_, err := provider.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
	})
	if !errors.Is(err, domain.ErrProviderDown) {
		t.Errorf("err = %v, want ErrProviderDown", err)
	}
}
