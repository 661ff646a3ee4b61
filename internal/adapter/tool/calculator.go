package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"fincrew/internal/domain"
)

// Calculator performs basic arithmetic. Operand errors (division by zero,
// unknown operation) are reported in the ToolResult, never as Go errors, so
// the agent loop can show them to the model.
type Calculator struct{}

// NewCalculator creates the calculator tool.
func NewCalculator() *Calculator { return &Calculator{} }

func (c *Calculator) Name() string { return "calculator" }

func (c *Calculator) Description() string {
	return "Performs basic arithmetic: add, subtract, multiply, divide."
}

func (c *Calculator) Categories() []string { return []string{"math"} }

func (c *Calculator) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        c.Name(),
		Description: c.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"operation": {
					"type": "string",
					"enum": ["add", "subtract", "multiply", "divide"],
					"description": "The arithmetic operation to perform"
				},
				"a": {"type": "number", "description": "First operand"},
				"b": {"type": "number", "description": "Second operand"}
			},
			"required": ["operation", "a", "b"]
		}`),
	}
}

type calculatorParams struct {
	Operation string  `json:"operation"`
	A         float64 `json:"a"`
	B         float64 `json:"b"`
}

func (c *Calculator) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	var p calculatorParams
	if err := json.Unmarshal(params, &p); err != nil {
		return &domain.ToolResult{
			IsError: true,
			Content: fmt.Sprintf("invalid parameters: %v", err),
		}, nil
	}

	var result float64
	switch p.Operation {
	case "add":
		result = p.A + p.B
	case "subtract":
		result = p.A - p.B
	case "multiply":
		result = p.A * p.B
	case "divide":
		if p.B == 0 {
			return &domain.ToolResult{
				IsError: true,
				Content: "division by zero",
			}, nil
		}
		result = p.A / p.B
	default:
		return &domain.ToolResult{
			IsError: true,
			Content: fmt.Sprintf("unknown operation %q", p.Operation),
		}, nil
	}

	return &domain.ToolResult{
		Content: strconv.FormatFloat(result, 'f', -1, 64),
	}, nil
}

var _ domain.Tool = (*Calculator)(nil)
