package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"fincrew/internal/domain"
	"fincrew/internal/infra/config"
	"fincrew/internal/infra/tracer"
)

// GeminiProvider implements domain.LLMProvider for the Google Gemini
// generateContent API. Gemini has no native multi-turn tool transcript
// compatible with our message shape, so the conversation history is
// flattened into a single role-prefixed prompt per request.
type GeminiProvider struct {
	name    string
	model   string
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewGeminiProvider creates a provider with configured timeouts. The apiKey
// argument overrides any key in cfg.
func NewGeminiProvider(cfg config.ProviderConfig, apiKey string, logger *slog.Logger) *GeminiProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if apiKey == "" {
		apiKey = cfg.APIKey
	}

	return &GeminiProvider{
		name:    cfg.Name,
		model:   cfg.Model,
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  NewHTTPClient(cfg),
		logger:  logger,
	}
}

// Chat implements domain.LLMProvider.
func (p *GeminiProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	ctx, span := tracer.StartSpan(ctx, "llm.chat",
		trace.WithAttributes(
			tracer.StringAttr("llm.provider", p.name),
			tracer.StringAttr("llm.model", req.Model),
		),
	)
	defer span.End()

	if req.Model == "" {
		req.Model = p.model
	}

	body, err := json.Marshal(toGeminiRequest(req))
	if err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	headers := map[string]string{}
	if p.apiKey != "" {
		headers["x-goog-api-key"] = p.apiKey
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, req.Model)
	respBody, err := doJSONRequest(ctx, p.client, url, body, headers)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	var gemResp geminiResponse
	if err := json.Unmarshal(respBody, &gemResp); err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("%w: unmarshal response: %v", domain.ErrProviderDown, err)
	}

	result := fromGeminiResponse(req.Model, gemResp)
	setUsageAttrs(span, result.Usage)
	tracer.SetOK(span)
	logChatCompleted(p.logger, p.name, result)

	return result, nil
}

// Name implements domain.LLMProvider.
func (p *GeminiProvider) Name() string { return p.name }

var _ domain.LLMProvider = (*GeminiProvider)(nil)

// --- Gemini API wire types ---

type geminiRequest struct {
	Contents          []geminiContent  `json:"contents"`
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	Tools             []geminiTool     `json:"tools,omitempty"`
	GenerationConfig  *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text         string              `json:"text,omitempty"`
	FunctionCall *geminiFunctionCall `json:"functionCall,omitempty"`
}

type geminiFunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

type geminiTool struct {
	FunctionDeclarations []geminiFunctionDecl `json:"functionDeclarations"`
}

type geminiFunctionDecl struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type geminiGenConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

type geminiResponse struct {
	Candidates    []geminiCandidate    `json:"candidates"`
	UsageMetadata *geminiUsageMetadata `json:"usageMetadata"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

func toGeminiRequest(req domain.ChatRequest) geminiRequest {
	gemReq := geminiRequest{
		Contents: []geminiContent{
			{
				Role:  "user",
				Parts: []geminiPart{{Text: flattenHistory(req.Messages)}},
			},
		},
	}

	if sys := systemText(req.Messages); sys != "" {
		gemReq.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: sys}},
		}
	}

	if len(req.Tools) > 0 {
		decls := make([]geminiFunctionDecl, len(req.Tools))
		for i, t := range req.Tools {
			decls[i] = geminiFunctionDecl{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			}
		}
		gemReq.Tools = []geminiTool{{FunctionDeclarations: decls}}
	}

	if req.MaxTokens > 0 || req.Temperature > 0 {
		gc := &geminiGenConfig{MaxOutputTokens: req.MaxTokens}
		if req.Temperature > 0 {
			gc.Temperature = &req.Temperature
		}
		gemReq.GenerationConfig = gc
	}

	return gemReq
}

// flattenHistory joins non-system messages into one role-prefixed prompt.
func flattenHistory(msgs []domain.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		if m.Role == domain.RoleSystem {
			continue
		}
		label := roleLabel(m)
		content := m.Content
		if content == "" && len(m.ToolCalls) > 0 && m.Role == domain.RoleAssistant {
			calls := make([]string, 0, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				calls = append(calls, fmt.Sprintf("%s(%s)", tc.Name, string(tc.Arguments)))
			}
			content = "called " + strings.Join(calls, ", ")
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(content)
	}
	return b.String()
}

func roleLabel(m domain.Message) string {
	switch m.Role {
	case domain.RoleUser:
		return "User"
	case domain.RoleAssistant:
		return "Assistant"
	case domain.RoleTool:
		if m.Name != "" {
			return "Tool " + m.Name
		}
		return "Tool"
	default:
		return m.Role
	}
}

// systemText concatenates system message contents.
func systemText(msgs []domain.Message) string {
	var parts []string
	for _, m := range msgs {
		if m.Role == domain.RoleSystem && m.Content != "" {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n")
}

func fromGeminiResponse(model string, resp geminiResponse) *domain.ChatResponse {
	now := time.Now()
	result := &domain.ChatResponse{
		ID:        "gemini-" + ulid.Make().String(),
		Model:     model,
		CreatedAt: now,
	}

	if resp.UsageMetadata != nil {
		result.Usage = domain.Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		}
	}

	msg := domain.Message{
		Role:      domain.RoleAssistant,
		Timestamp: now,
	}

	if len(resp.Candidates) > 0 {
		var texts []string
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				texts = append(texts, part.Text)
			}
			if part.FunctionCall != nil {
				// The agent loop runs one tool call per turn, so stop at
				// the first function call. Gemini does not assign call
				// IDs; mint one so tool results can be correlated in the
				// transcript.
				msg.ToolCalls = []domain.ToolCall{{
					ID:        "call-" + ulid.Make().String(),
					Name:      part.FunctionCall.Name,
					Arguments: part.FunctionCall.Args,
				}}
				break
			}
		}
		msg.Content = strings.Join(texts, "\n")
	}

	result.Message = msg
	return result
}
