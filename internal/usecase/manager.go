package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"fincrew/internal/domain"
	"fincrew/internal/infra/tracer"
)

// delegatePrefix prefixes the synthetic tool name exposed for each worker.
const delegatePrefix = "delegate_to_"

// TeamMember is a worker as seen by the manager: an agent plus the
// capability summary shown in the manager's roster.
type TeamMember interface {
	domain.Agent
	Description() string
}

// Manager coordinates a team of workers. The LLM sees one synthetic
// delegate_to_<worker> tool per team member; the manager runs delegations
// and feeds results back into its conversation. Only the user's query and
// the manager's final answer are persisted to shared memory; the delegation
// transcript is request-scoped.
type Manager struct {
	name         string
	systemPrompt string
	workers      []TeamMember
	byName       map[string]TeamMember
	memory       domain.Memory
	maxTurns     int
	logger       *slog.Logger
}

// ManagerDeps holds construction parameters for a Manager.
type ManagerDeps struct {
	Name         string
	SystemPrompt string
	Workers      []TeamMember
	Memory       domain.Memory
	MaxTurns     int
	Logger       *slog.Logger
}

// NewManager creates the manager agent.
func NewManager(deps ManagerDeps) *Manager {
	maxTurns := deps.MaxTurns
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	byName := make(map[string]TeamMember, len(deps.Workers))
	for _, w := range deps.Workers {
		byName[w.Name()] = w
	}
	return &Manager{
		name:         deps.Name,
		systemPrompt: deps.SystemPrompt,
		workers:      deps.Workers,
		byName:       byName,
		memory:       deps.Memory,
		maxTurns:     maxTurns,
		logger:       deps.Logger,
	}
}

// Name implements domain.Agent.
func (m *Manager) Name() string { return m.name }

// Process implements domain.Agent.
func (m *Manager) Process(ctx context.Context, query string, provider domain.LLMProvider) (*domain.AgentResult, error) {
	ctx, span := tracer.StartSpan(ctx, "manager.process",
		trace.WithAttributes(tracer.StringAttr("agent.name", m.name)),
	)
	defer span.End()

	m.memory.Add(domain.RoleUser, query)

	// The conversation starts from the full shared history so follow-up
	// questions see earlier exchanges. Delegation traffic below stays local.
	msgs := []domain.Message{
		{Role: domain.RoleSystem, Content: m.systemText(), Timestamp: time.Now()},
	}
	msgs = append(msgs, m.memory.History()...)

	schemas := m.delegationSchemas()

	for turn := 0; turn < m.maxTurns; turn++ {
		span.AddEvent("manager.turn", trace.WithAttributes(tracer.IntAttr("turn", turn)))

		resp, err := provider.Chat(ctx, domain.ChatRequest{
			Messages: msgs,
			Tools:    schemas,
		})
		if err != nil {
			tracer.RecordError(span, err)
			return nil, err
		}

		msgs = append(msgs, resp.Message)

		m.logger.Debug("manager turn",
			"turn", turn,
			"tool_calls", len(resp.Message.ToolCalls),
		)

		if len(resp.Message.ToolCalls) == 0 {
			m.memory.Add(domain.RoleAssistant, resp.Message.Content)
			tracer.SetOK(span)
			return &domain.AgentResult{Content: resp.Message.Content}, nil
		}

		for _, call := range resp.Message.ToolCalls {
			msgs = append(msgs, m.delegate(ctx, call, provider))
		}
	}

	tracer.RecordError(span, domain.ErrMaxTurns)
	return &domain.AgentResult{
		Content:  "I could not assemble a final answer within the allowed number of steps.",
		Metadata: map[string]string{"error": "max_turns"},
	}, nil
}

// delegate runs one delegation call and returns the outcome as a tool
// message. Worker failures of any kind are absorbed into the record so the
// manager can route around a broken specialist.
func (m *Manager) delegate(ctx context.Context, call domain.ToolCall, provider domain.LLMProvider) domain.Message {
	ctx, span := tracer.StartSpan(ctx, "manager.delegate",
		trace.WithAttributes(tracer.StringAttr("delegate.target", call.Name)),
	)
	defer span.End()

	record := func(content string) domain.Message {
		return domain.Message{
			Role:    domain.RoleTool,
			Name:    call.Name,
			Content: content,
			ToolCalls: []domain.ToolCall{{
				ID:   call.ID,
				Name: call.Name,
			}},
			Timestamp: time.Now(),
		}
	}

	if !strings.HasPrefix(call.Name, delegatePrefix) {
		err := domain.NewDomainError("Manager.delegate", domain.ErrAgentNotFound, call.Name)
		tracer.RecordError(span, err)
		return record(err.Error())
	}
	target := strings.TrimPrefix(call.Name, delegatePrefix)
	worker, ok := m.byName[target]
	if !ok {
		err := domain.NewDomainError("Manager.delegate", domain.ErrAgentNotFound, call.Name)
		tracer.RecordError(span, err)
		return record(err.Error())
	}

	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(call.Arguments, &args); err != nil {
		tracer.RecordError(span, err)
		return record(fmt.Sprintf("invalid delegation arguments: %v", err))
	}

	result, err := worker.Process(ctx, args.Query, provider)
	if err != nil {
		tracer.RecordError(span, err)
		return record(fmt.Sprintf("error from %s: %v", target, err))
	}

	tracer.SetOK(span)
	return record(result.Content)
}

// delegationSchemas builds one synthetic tool schema per worker.
func (m *Manager) delegationSchemas() []domain.ToolSchema {
	schemas := make([]domain.ToolSchema, 0, len(m.workers))
	for _, w := range m.workers {
		schemas = append(schemas, domain.ToolSchema{
			Name:        delegatePrefix + w.Name(),
			Description: fmt.Sprintf("Delegate a task to the %s agent. %s", w.Name(), w.Description()),
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "The task or question for the agent"}
				},
				"required": ["query"]
			}`),
		})
	}
	return schemas
}

// systemText is the manager's system prompt plus the team roster.
func (m *Manager) systemText() string {
	var b strings.Builder
	b.WriteString(m.systemPrompt)
	if len(m.workers) > 0 {
		b.WriteString("\n\nYour team:")
		for _, w := range m.workers {
			fmt.Fprintf(&b, "\n- %s: %s", w.Name(), w.Description())
		}
	}
	return b.String()
}

var _ domain.Agent = (*Manager)(nil)
