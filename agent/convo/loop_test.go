package convo

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/botero-soto/sotobot/agent/contract"
	"github.com/botero-soto/sotobot/agent/export"
	"github.com/botero-soto/sotobot/agent/tool"
)

type scriptedCompleter struct {
	responses []contractx.CompletionResponse
	err       error
	calls     int
	requests  []contractx.CompletionRequest
}

func (s *scriptedCompleter) Complete(_ context.Context, req contractx.CompletionRequest) (contractx.CompletionResponse, error) {
	s.calls++
	s.requests = append(s.requests, req)
	if s.err != nil {
		return contractx.CompletionResponse{}, s.err
	}
	if s.calls > len(s.responses) {
		return contractx.CompletionResponse{Text: "sin guion"}, nil
	}
	return s.responses[s.calls-1], nil
}

func testRegistry(t *testing.T) *tool.Registry {
	t.Helper()
	reg, err := tool.Catalog(tool.NewStaticNITDirectory(), export.NewMemoryExporter())
	if err != nil {
		t.Fatalf("Catalog() error = %v", err)
	}
	return reg
}

func TestLoopProseEndsTheTurn(t *testing.T) {
	t.Parallel()

	completer := &scriptedCompleter{
		responses: []contractx.CompletionResponse{{Text: "¿Cuál es el NIT de tu empresa?"}},
	}
	loop := &Loop{Completer: completer, Registry: testRegistry(t)}

	res, err := loop.Run(context.Background(), "instrucciones", nil, []string{tool.NameSearchNIT})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.FinalText != "¿Cuál es el NIT de tu empresa?" {
		t.Fatalf("unexpected reply: %q", res.FinalText)
	}
	if res.Terminal != nil {
		t.Fatal("prose turn should not be terminal")
	}
	if completer.calls != 1 {
		t.Fatalf("expected one completion, got %d", completer.calls)
	}
}

func TestLoopExecutesToolAndReconsultsModel(t *testing.T) {
	t.Parallel()

	completer := &scriptedCompleter{
		responses: []contractx.CompletionResponse{
			{ToolCalls: []contractx.ToolCall{{
				ID:   "c1",
				Name: tool.NameSearchNIT,
				Args: map[string]any{"nit": "901535329"},
			}}},
			{Text: "Encontré tu empresa, continuemos."},
		},
	}
	loop := &Loop{Completer: completer, Registry: testRegistry(t)}

	res, err := loop.Run(context.Background(), "instrucciones", nil, []string{tool.NameSearchNIT})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if completer.calls != 2 {
		t.Fatalf("expected two completions, got %d", completer.calls)
	}
	if len(res.Messages) != 2 {
		t.Fatalf("expected assistant and tool messages, got %d", len(res.Messages))
	}
	if res.Messages[0].Role != contractx.RoleAssistant || len(res.Messages[0].ToolCalls) != 1 {
		t.Fatalf("first appended message should carry the tool call: %+v", res.Messages[0])
	}
	if res.Messages[1].Role != contractx.RoleTool || len(res.Messages[1].ToolResults) != 1 {
		t.Fatalf("second appended message should carry the tool result: %+v", res.Messages[1])
	}
	if res.Called[0] != tool.NameSearchNIT {
		t.Fatalf("unexpected called set: %v", res.Called)
	}
	if _, ok := res.Data[tool.DataKeyNITResult]; !ok {
		t.Fatal("nit lookup result should land in the business data")
	}

	// The second completion must see the tool exchange.
	second := completer.requests[1]
	if len(second.History) != 2 {
		t.Fatalf("second completion history length = %d", len(second.History))
	}
}

func TestLoopTerminalToolStopsWithoutReconsulting(t *testing.T) {
	t.Parallel()

	completer := &scriptedCompleter{
		responses: []contractx.CompletionResponse{
			{ToolCalls: []contractx.ToolCall{{
				ID:   "c1",
				Name: tool.NameHumanHelp,
				Args: map[string]any{"motivo": "usuario molesto"},
			}}},
		},
	}
	loop := &Loop{Completer: completer, Registry: testRegistry(t)}

	res, err := loop.Run(context.Background(), "instrucciones", nil, []string{tool.NameHumanHelp})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if completer.calls != 1 {
		t.Fatalf("terminal tool must not reconsult the model, calls = %d", completer.calls)
	}
	if res.Terminal == nil || res.Terminal.Name != tool.NameHumanHelp {
		t.Fatalf("expected the escalation tool to end the turn: %+v", res.Terminal)
	}
	if res.Terminal.Reply == "" {
		t.Fatal("terminal tool should carry its canned reply")
	}
}

func TestLoopOverrunIsBounded(t *testing.T) {
	t.Parallel()

	// The model keeps calling the same non-terminal tool forever.
	endless := contractx.CompletionResponse{
		ToolCalls: []contractx.ToolCall{{
			Name: tool.NameValidCity,
			Args: map[string]any{"ciudad": "Bogotá"},
		}},
	}
	completer := &scriptedCompleter{
		responses: []contractx.CompletionResponse{
			endless, endless, endless, endless, endless,
		},
	}
	loop := &Loop{Completer: completer, Registry: testRegistry(t), MaxRounds: 4}

	_, err := loop.Run(context.Background(), "instrucciones", nil, []string{tool.NameValidCity})
	if !errors.Is(err, contractx.ErrLoopOverrun) {
		t.Fatalf("expected ErrLoopOverrun, got %v", err)
	}
	if completer.calls != 4 {
		t.Fatalf("expected exactly 4 rounds, got %d", completer.calls)
	}
}

func TestLoopRejectsUnknownToolCall(t *testing.T) {
	t.Parallel()

	completer := &scriptedCompleter{
		responses: []contractx.CompletionResponse{
			{ToolCalls: []contractx.ToolCall{{Name: "tool_inventada"}}},
		},
	}
	loop := &Loop{Completer: completer, Registry: testRegistry(t)}

	_, err := loop.Run(context.Background(), "instrucciones", nil, []string{tool.NameSearchNIT})
	if !errors.Is(err, contractx.ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
}
