package state

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	contractx "github.com/botero-soto/sotobot/agent/contract"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	sess := NewSession("s1", time.Now())
	sess.Category = contractx.CategoryLead
	sess.State = "AWAITING_NIT"
	sess.Append(contractx.UserMessage("hola"))
	sess.SetData("search_nit_result", map[string]any{"encontrado": true})

	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Category != contractx.CategoryLead || loaded.State != "AWAITING_NIT" {
		t.Fatalf("unexpected session: %+v", loaded)
	}
	if len(loaded.Messages) != 1 || loaded.Messages[0].Content != "hola" {
		t.Fatalf("history did not survive: %+v", loaded.Messages)
	}
	if _, ok := loaded.Data["search_nit_result"]; !ok {
		t.Fatal("business data did not survive")
	}

	// Mutating the loaded copy must not leak into the store.
	loaded.Append(contractx.UserMessage("extra"))
	again, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(again.Messages) != 1 {
		t.Fatalf("store shares mutable state, history length = %d", len(again.Messages))
	}
}

func TestMemoryStoreLoadMissing(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if _, err := store.Load(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Load(context.Background(), "  "); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}

func TestMemoryStoreResetArchives(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	sess := NewSession("573001112233", time.Now())
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Reset(ctx, "573001112233"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	if _, err := store.Load(ctx, "573001112233"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("reset session should be gone under its key, got %v", err)
	}
	if err := store.Reset(ctx, "573001112233"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double reset should report missing, got %v", err)
	}
}

func TestArchiveKeyReKeys(t *testing.T) {
	t.Parallel()

	k1 := ArchiveKey("s1")
	k2 := ArchiveKey("s1")
	if !strings.HasPrefix(k1, "s1#") {
		t.Fatalf("archive key should keep the original id prefix: %s", k1)
	}
	if k1 == k2 {
		t.Fatal("archive keys must be unique per reset")
	}
}

func TestSessionValidate(t *testing.T) {
	t.Parallel()

	var nilSess *Session
	if err := nilSess.Validate(); !errors.Is(err, ErrNilSession) {
		t.Fatalf("expected ErrNilSession, got %v", err)
	}

	sess := NewSession("", time.Now())
	if err := sess.Validate(); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}

	sess = NewSession("s1", time.Now())
	sess.State = "AWAITING_NIT"
	if err := sess.Validate(); err == nil {
		t.Fatal("a state without a category should not validate")
	}

	sess = NewSession("s1", time.Now())
	sess.Category = contractx.CategoryLead
	sess.State = "AWAITING_NIT"
	sess.Append(
		contractx.UserMessage("hola"),
		contractx.Message{Role: contractx.RoleAssistant, ToolCalls: []contractx.ToolCall{{Name: "search_nit"}}},
		contractx.Message{Role: contractx.RoleTool, ToolResults: []contractx.ToolResult{{Name: "search_nit"}}},
	)
	if err := sess.Validate(); err != nil {
		t.Fatalf("well-formed session should validate, got %v", err)
	}

	sess = NewSession("s1", time.Now())
	sess.Category = contractx.CategoryLead
	sess.Append(
		contractx.UserMessage("hola"),
		contractx.Message{Role: contractx.RoleTool, ToolResults: []contractx.ToolResult{{Name: "search_nit"}}},
	)
	if err := sess.Validate(); err == nil {
		t.Fatal("an orphan tool message should not validate")
	}
}
