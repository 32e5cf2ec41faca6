// Package category declares the per-category conversation flows as data.
// Each category is a small finite-state machine; the dispatcher
// interprets it without knowing any category by name.
package category

import (
	"fmt"

	contractx "github.com/botero-soto/sotobot/agent/contract"
)

// States shared by every flow.
const (
	StateFinished   contractx.StateName = "CONVERSATION_FINISHED"
	StateEscalation contractx.StateName = "HUMAN_ESCALATION"
)

// Terminal marks a state as conversation-ending and how.
type Terminal int

const (
	TerminalNone Terminal = iota
	TerminalFinished
	TerminalEscalation
)

// TransitionRule maps a set of tools called during a turn to the next
// state. Rules are evaluated in order; the first rule whose OnTools
// intersects the called set wins.
type TransitionRule struct {
	OnTools []string
	Next    contractx.StateName
}

// StateConfig fully describes one state of a flow. Instruction is the
// system prompt driving the turn. Tools is what the model may call from
// this state. NoToolNext applies when the model answered with prose only.
type StateConfig struct {
	Instruction string
	Tools       []string
	Terminal    Terminal
	NoToolNext  contractx.StateName
	Rules       []TransitionRule
}

// Definition is one category flow. Initial names the state a freshly
// classified session starts in.
type Definition struct {
	Category contractx.Category
	Initial  contractx.StateName
	States   map[contractx.StateName]StateConfig
}

// Validate checks internal consistency: the initial state exists, every
// rule target exists, and terminal states declare no outgoing rules.
func (d Definition) Validate() error {
	if _, ok := d.States[d.Initial]; !ok {
		return fmt.Errorf("%w: category %s initial state %s undefined",
			contractx.ErrValidation, d.Category, d.Initial)
	}
	for name, st := range d.States {
		if st.Terminal != TerminalNone && len(st.Rules) > 0 {
			return fmt.Errorf("%w: category %s terminal state %s has outgoing rules",
				contractx.ErrValidation, d.Category, name)
		}
		for _, rule := range st.Rules {
			if _, ok := d.States[rule.Next]; !ok {
				return fmt.Errorf("%w: category %s state %s targets undefined state %s",
					contractx.ErrValidation, d.Category, name, rule.Next)
			}
			if len(rule.OnTools) == 0 {
				return fmt.Errorf("%w: category %s state %s has a rule with no tools",
					contractx.ErrValidation, d.Category, name)
			}
		}
		if st.NoToolNext != "" {
			if _, ok := d.States[st.NoToolNext]; !ok {
				return fmt.Errorf("%w: category %s state %s no-tool target %s undefined",
					contractx.ErrValidation, d.Category, name, st.NoToolNext)
			}
		}
	}
	return nil
}

// State looks up a state config by name.
func (d Definition) State(name contractx.StateName) (StateConfig, error) {
	st, ok := d.States[name]
	if !ok {
		return StateConfig{}, fmt.Errorf("%w: %s/%s", contractx.ErrUnknownState, d.Category, name)
	}
	return st, nil
}

// Resolve picks the next state for the set of tools called this turn.
// A turn with no tool calls stays put unless NoToolNext redirects it.
// A called-tool set no rule covers is a flow defect surfaced as
// ErrUnmappedTransition so the dispatcher can escalate.
func (d Definition) Resolve(current contractx.StateName, called []string) (contractx.StateName, error) {
	st, err := d.State(current)
	if err != nil {
		return "", err
	}
	if len(called) == 0 {
		if st.NoToolNext != "" {
			return st.NoToolNext, nil
		}
		return current, nil
	}

	calledSet := make(map[string]struct{}, len(called))
	for _, name := range called {
		calledSet[name] = struct{}{}
	}
	for _, rule := range st.Rules {
		for _, name := range rule.OnTools {
			if _, ok := calledSet[name]; ok {
				return rule.Next, nil
			}
		}
	}
	return "", fmt.Errorf("%w: category %s state %s tools %v",
		contractx.ErrUnmappedTransition, d.Category, current, called)
}
