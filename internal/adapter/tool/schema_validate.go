package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"fincrew/internal/domain"
)

// validatedTool checks incoming arguments against the tool's declared
// parameter schema before running it. Bad arguments come back as error
// results so the agent loop can feed them to the model instead of aborting.
type validatedTool struct {
	inner  domain.Tool
	schema *jsonschema.Schema
}

// WithSchemaValidation compiles the tool's parameter schema and returns a
// wrapper that rejects non-conforming arguments. Tools that declare no
// parameters are returned unwrapped. A schema that does not compile is a
// registration-time error.
func WithSchemaValidation(t domain.Tool) (domain.Tool, error) {
	raw := t.Schema().Parameters
	if len(raw) == 0 || string(raw) == "null" {
		return t, nil
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("params.json", bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("tool %q parameter schema: %w", t.Name(), err)
	}
	schema, err := compiler.Compile("params.json")
	if err != nil {
		return nil, fmt.Errorf("tool %q parameter schema: %w", t.Name(), err)
	}

	return &validatedTool{inner: t, schema: schema}, nil
}

func (v *validatedTool) Name() string              { return v.inner.Name() }
func (v *validatedTool) Description() string       { return v.inner.Description() }
func (v *validatedTool) Categories() []string      { return v.inner.Categories() }
func (v *validatedTool) Schema() domain.ToolSchema { return v.inner.Schema() }

func (v *validatedTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	var decoded any
	if err := json.Unmarshal(params, &decoded); err != nil {
		return &domain.ToolResult{
			IsError: true,
			Content: fmt.Sprintf("arguments are not valid JSON: %v", err),
		}, nil
	}
	if err := v.schema.Validate(decoded); err != nil {
		return &domain.ToolResult{
			IsError: true,
			Content: fmt.Sprintf("arguments rejected by schema: %v", err),
		}, nil
	}
	return v.inner.Execute(ctx, params)
}
