package tool

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"fincrew/internal/domain"
)

// stubTool is a minimal Tool for registry tests.
type stubTool struct {
	name       string
	categories []string
}

func (s *stubTool) Name() string          { return s.name }
func (s *stubTool) Description() string   { return "stub" }
func (s *stubTool) Categories() []string  { return s.categories }
func (s *stubTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{Name: s.name, Description: "stub"}
}
func (s *stubTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return &domain.ToolResult{Content: "ok"}, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry(slog.Default())

	if err := r.Register(&stubTool{name: "alpha"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	tool, err := r.Get("alpha")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if tool.Name() != "alpha" {
		t.Errorf("Name = %q", tool.Name())
	}
}

func TestRegistryDuplicateRejected(t *testing.T) {
	r := NewRegistry(slog.Default())

	if err := r.Register(&stubTool{name: "alpha"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	err := r.Register(&stubTool{name: "alpha"})
	if !errors.Is(err, domain.ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry(slog.Default())

	_, err := r.Get("missing")
	if !errors.Is(err, domain.ErrToolNotFound) {
		t.Errorf("err = %v, want ErrToolNotFound", err)
	}
}

func TestRegistryForCategories(t *testing.T) {
	r := NewRegistry(slog.Default())

	mustRegister := func(tl domain.Tool) {
		t.Helper()
		if err := r.Register(tl); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	mustRegister(&stubTool{name: "calc", categories: []string{"math"}})
	mustRegister(&stubTool{name: "price", categories: []string{"market"}})
	mustRegister(&stubTool{name: "news", categories: []string{"market", "research"}})

	got := r.ForCategories([]string{"market", "research"})
	if len(got) != 2 {
		t.Fatalf("tools = %d, want 2 (deduplicated)", len(got))
	}
	if got[0].Name() != "price" || got[1].Name() != "news" {
		t.Errorf("order = %q, %q; want price, news", got[0].Name(), got[1].Name())
	}

	if got := r.ForCategories([]string{"unknown"}); len(got) != 0 {
		t.Errorf("unknown category returned %d tools", len(got))
	}
}

func TestRegistrySchemaValidationWrapping(t *testing.T) {
	r := NewRegistry(slog.Default())

	if err := r.Register(NewCalculator()); err != nil {
		t.Fatalf("Register: %v", err)
	}

	tool, err := r.Get("calculator")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	// Parameters failing the schema must surface as a tool error, not reach
	// the calculator.
	result, err := tool.Execute(context.Background(), json.RawMessage(`{"operation":"add","a":"not a number","b":2}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.IsError {
		t.Error("schema-invalid params should produce an error result")
	}
}
