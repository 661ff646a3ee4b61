package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"fincrew/internal/domain"
	"fincrew/internal/infra/tracer"
)

// defaultMaxTurns bounds the think-act loop of every agent.
const defaultMaxTurns = 5

// Worker is a specialist agent. Each Process call runs a fresh conversation
// seeded from the worker's system prompt; workers hold no memory between
// invocations. Tool failures are fed back to the model as tool results and
// never abort the loop; only backend failures escape as errors.
type Worker struct {
	name         string
	description  string
	systemPrompt string
	tools        []domain.Tool
	maxTurns     int
	logger       *slog.Logger
}

// WorkerDeps holds construction parameters for a Worker.
type WorkerDeps struct {
	Name         string
	Description  string
	SystemPrompt string
	Tools        []domain.Tool
	MaxTurns     int
	Logger       *slog.Logger
}

// NewWorker creates a worker agent.
func NewWorker(deps WorkerDeps) *Worker {
	maxTurns := deps.MaxTurns
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	return &Worker{
		name:         deps.Name,
		description:  deps.Description,
		systemPrompt: deps.SystemPrompt,
		tools:        deps.Tools,
		maxTurns:     maxTurns,
		logger:       deps.Logger,
	}
}

// Name implements domain.Agent.
func (w *Worker) Name() string { return w.name }

// Description returns the worker's capability summary for the manager roster.
func (w *Worker) Description() string { return w.description }

// Process implements domain.Agent.
func (w *Worker) Process(ctx context.Context, query string, provider domain.LLMProvider) (*domain.AgentResult, error) {
	ctx, span := tracer.StartSpan(ctx, "agent.process",
		trace.WithAttributes(tracer.StringAttr("agent.name", w.name)),
	)
	defer span.End()

	msgs := []domain.Message{
		{Role: domain.RoleSystem, Content: w.systemPrompt, Timestamp: time.Now()},
		{Role: domain.RoleUser, Content: query, Timestamp: time.Now()},
	}

	schemas := make([]domain.ToolSchema, 0, len(w.tools))
	for _, t := range w.tools {
		schemas = append(schemas, t.Schema())
	}

	for turn := 0; turn < w.maxTurns; turn++ {
		span.AddEvent("agent.turn", trace.WithAttributes(tracer.IntAttr("turn", turn)))

		resp, err := provider.Chat(ctx, domain.ChatRequest{
			Messages: msgs,
			Tools:    schemas,
		})
		if err != nil {
			tracer.RecordError(span, err)
			return nil, err
		}

		msgs = append(msgs, resp.Message)

		w.logger.Debug("worker turn",
			"agent", w.name,
			"turn", turn,
			"tool_calls", len(resp.Message.ToolCalls),
		)

		if len(resp.Message.ToolCalls) == 0 {
			tracer.SetOK(span)
			return &domain.AgentResult{Content: resp.Message.Content}, nil
		}

		for _, call := range resp.Message.ToolCalls {
			msgs = append(msgs, w.executeTool(ctx, call))
		}
	}

	tracer.RecordError(span, domain.ErrMaxTurns)
	return &domain.AgentResult{
		Content:  "I could not reach a final answer within the allowed number of steps.",
		Metadata: map[string]string{"error": "max_turns"},
	}, nil
}

// executeTool runs a single tool call and returns the result as a message.
// Unknown tools and tool failures are recorded as error results.
func (w *Worker) executeTool(ctx context.Context, call domain.ToolCall) domain.Message {
	ctx, span := tracer.StartSpan(ctx, "agent.execute_tool",
		trace.WithAttributes(tracer.StringAttr("tool.name", call.Name)),
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

	tool := w.findTool(call.Name)
	if tool == nil {
		err := domain.NewDomainError("Worker.executeTool", domain.ErrToolNotFound, call.Name)
		tracer.RecordError(span, err)
		return record(err.Error())
	}

	result, err := tool.Execute(ctx, call.Arguments)
	if err != nil {
		tracer.RecordError(span, err)
		return record(fmt.Sprintf("tool %s failed: %v", call.Name, err))
	}

	tracer.SetOK(span)
	return record(result.Content)
}

func (w *Worker) findTool(name string) domain.Tool {
	for _, t := range w.tools {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

var _ domain.Agent = (*Worker)(nil)
