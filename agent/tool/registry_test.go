package tool

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/botero-soto/sotobot/agent/contract"
)

func TestNewRegistryRejectsBadTools(t *testing.T) {
	t.Parallel()

	handler := func(context.Context, map[string]any) (any, error) { return nil, nil }

	if _, err := NewRegistry(Tool{Name: "", Handler: handler}); err == nil {
		t.Fatal("expected error for empty name")
	}
	if _, err := NewRegistry(Tool{Name: "a"}); err == nil {
		t.Fatal("expected error for missing handler")
	}
	if _, err := NewRegistry(Tool{Name: "a", Terminal: true, Handler: handler}); err == nil {
		t.Fatal("expected error for terminal tool without reply")
	}
	if _, err := NewRegistry(
		Tool{Name: "a", Handler: handler},
		Tool{Name: "a", Handler: handler},
	); err == nil {
		t.Fatal("expected error for duplicate name")
	}
}

func TestRegistrySpecsUnknownTool(t *testing.T) {
	t.Parallel()

	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if _, err := r.Specs([]string{"nope"}); !errors.Is(err, contractx.ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
}

func TestRegistryExecuteReportsHandlerFailureAsResult(t *testing.T) {
	t.Parallel()

	r, err := NewRegistry(Tool{
		Name: "boom",
		Handler: func(context.Context, map[string]any) (any, error) {
			return nil, errors.New("exploded")
		},
	})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	res, err := r.Execute(context.Background(), contractx.ToolCall{ID: "c1", Name: "boom"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Error != "exploded" {
		t.Fatalf("unexpected result error: %q", res.Error)
	}
	if res.CallID != "c1" {
		t.Fatalf("unexpected call id: %q", res.CallID)
	}
}

func TestRegistryExecuteUnknownTool(t *testing.T) {
	t.Parallel()

	r, _ := NewRegistry()
	if _, err := r.Execute(context.Background(), contractx.ToolCall{Name: "ghost"}); !errors.Is(err, contractx.ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
}
