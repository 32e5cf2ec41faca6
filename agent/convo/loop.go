// Package convo runs one conversation turn: the bounded model/tool loop
// and the state-machine dispatch around it.
package convo

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/botero-soto/sotobot/agent/contract"
	"github.com/botero-soto/sotobot/agent/tool"
)

// DefaultMaxRounds bounds the completion/tool cycles inside one turn.
const DefaultMaxRounds = 10

// Loop drives one model turn to completion. Every completion call offers
// the state's tools; requested calls are executed locally and fed back
// until the model answers with prose or a terminal tool ends the turn.
type Loop struct {
	Completer   contractx.Completer
	Registry    *tool.Registry
	MaxRounds   int
	Temperature float64
}

// Result is everything one turn produced. Messages holds the assistant
// and tool entries appended during the loop, final outward reply
// excluded. Terminal is set when a terminal tool ended the turn. Data
// collects every DataKey-tagged tool result.
type Result struct {
	Messages  []contractx.Message
	FinalText string
	Terminal  *tool.Tool
	Called    []string
	Data      map[string]any
}

func (l *Loop) rounds() int {
	if l.MaxRounds > 0 {
		return l.MaxRounds
	}
	return DefaultMaxRounds
}

// Run executes the loop over a copy of the history. The caller owns
// persisting Result.Messages.
func (l *Loop) Run(ctx context.Context, instruction string, history []contractx.Message, toolNames []string) (Result, error) {
	specs, err := l.Registry.Specs(toolNames)
	if err != nil {
		return Result{}, err
	}

	working := make([]contractx.Message, len(history), len(history)+4)
	copy(working, history)

	res := Result{Data: map[string]any{}}
	for round := 0; round < l.rounds(); round++ {
		resp, err := l.Completer.Complete(ctx, contractx.CompletionRequest{
			Instruction: instruction,
			History:     working,
			Tools:       specs,
			Temperature: l.Temperature,
		})
		if err != nil {
			return Result{}, err
		}

		if len(resp.ToolCalls) == 0 {
			res.FinalText = resp.Text
			return res, nil
		}

		assistant := contractx.Message{
			Role:      contractx.RoleAssistant,
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
		}
		toolMsg := contractx.Message{Role: contractx.RoleTool}

		var terminal *tool.Tool
		for _, call := range resp.ToolCalls {
			t, ok := l.Registry.Get(call.Name)
			if !ok {
				return Result{}, fmt.Errorf("%w: %s", contractx.ErrUnknownTool, call.Name)
			}
			result, err := l.Registry.Execute(ctx, call)
			if err != nil {
				return Result{}, err
			}
			if result.Error != "" {
				log.Warn().Str("tool", call.Name).Str("error", result.Error).Msg("tool call failed")
			}
			toolMsg.ToolResults = append(toolMsg.ToolResults, result)
			res.Called = append(res.Called, call.Name)
			if t.DataKey != "" && result.Error == "" {
				res.Data[t.DataKey] = result.Result
			}
			if t.Terminal && terminal == nil {
				captured := t
				terminal = &captured
			}
		}

		res.Messages = append(res.Messages, assistant, toolMsg)
		working = append(working, assistant, toolMsg)

		// A terminal tool ends the turn immediately; its canned reply is
		// the outward message and the model is not consulted again.
		if terminal != nil {
			res.Terminal = terminal
			return res, nil
		}
	}

	return Result{}, fmt.Errorf("%w: exceeded %d rounds", contractx.ErrLoopOverrun, l.rounds())
}
