package llm

import (
	"testing"

	contractx "github.com/botero-soto/sotobot/agent/contract"
)

func TestBuildMessagesOrdering(t *testing.T) {
	t.Parallel()

	req := contractx.CompletionRequest{
		Instruction: "eres el asistente",
		History: []contractx.Message{
			contractx.UserMessage("hola"),
			{
				Role: contractx.RoleAssistant,
				ToolCalls: []contractx.ToolCall{{
					ID:   "c1",
					Name: "search_nit",
					Args: map[string]any{"nit": "901535329"},
				}},
			},
			{
				Role: contractx.RoleTool,
				ToolResults: []contractx.ToolResult{{
					CallID: "c1",
					Name:   "search_nit",
					Result: map[string]any{"encontrado": true},
				}},
			},
			contractx.AssistantMessage("encontré tu empresa"),
		},
	}

	msgs := buildMessages(req)
	// system + user + assistant(tool call) + tool + assistant
	if len(msgs) != 5 {
		t.Fatalf("expected 5 wire messages, got %d", len(msgs))
	}
	if msgs[0].OfSystem == nil {
		t.Fatal("first message must be the instruction")
	}
	if msgs[1].OfUser == nil {
		t.Fatal("second message must be the user turn")
	}
	if msgs[2].OfAssistant == nil || len(msgs[2].OfAssistant.ToolCalls) != 1 {
		t.Fatal("third message must carry the tool call")
	}
	if msgs[3].OfTool == nil {
		t.Fatal("fourth message must be the tool result")
	}
	if msgs[4].OfAssistant == nil {
		t.Fatal("fifth message must be the prose reply")
	}
}

func TestBuildMessagesSkipsEmptyInstruction(t *testing.T) {
	t.Parallel()

	msgs := buildMessages(contractx.CompletionRequest{
		History: []contractx.Message{contractx.UserMessage("hola")},
	})
	if len(msgs) != 1 {
		t.Fatalf("expected only the user turn, got %d", len(msgs))
	}
}

func TestEncodeToolResult(t *testing.T) {
	t.Parallel()

	got := encodeToolResult(contractx.ToolResult{Result: map[string]any{"ok": true}})
	if got != `{"ok":true}` {
		t.Fatalf("unexpected encoding: %s", got)
	}

	got = encodeToolResult(contractx.ToolResult{Error: "ciudad fuera de cobertura"})
	if got != `{"error":"ciudad fuera de cobertura"}` {
		t.Fatalf("failed tool calls must surface the error: %s", got)
	}
}
