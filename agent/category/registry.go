package category

import (
	"fmt"

	contractx "github.com/botero-soto/sotobot/agent/contract"
	"github.com/botero-soto/sotobot/agent/prompt"
	"github.com/botero-soto/sotobot/agent/tool"
)

// Flow-specific state names. CONVERSATION_FINISHED and HUMAN_ESCALATION
// are shared by every flow.
const (
	StateAwaitingNIT           contractx.StateName = "AWAITING_NIT"
	StateAwaitingRemainingInfo contractx.StateName = "AWAITING_REMAINING_INFORMATION"
	StateAwaitingNaturalInfo   contractx.StateName = "AWAITING_PERSONA_NATURAL_FREIGHT_INFO"
	StateAwaitingRequestType   contractx.StateName = "AWAITING_REQUEST_TYPE"
	StateAwaitingServiceType   contractx.StateName = "AWAITING_SERVICE_TYPE"
	StateAwaitingNeedType      contractx.StateName = "AWAITING_NEED_TYPE"
	StateAwaitingVacancy       contractx.StateName = "AWAITING_VACANCY"
)

// Catalog builds the validated flow definition for every category,
// including the reserved ambiguous bucket whose only state is human
// escalation.
func Catalog(p prompt.Set) (map[contractx.Category]Definition, error) {
	defs := map[contractx.Category]Definition{
		contractx.CategoryLead:           leadFlow(p),
		contractx.CategoryActiveCustomer: singleStateFlow(contractx.CategoryActiveCustomer, StateAwaitingRequestType, p.ActiveCustomer, tool.NameActiveRequestClass, p),
		contractx.CategoryCarrier:        singleStateFlow(contractx.CategoryCarrier, StateAwaitingRequestType, p.Carrier, tool.NameRequestType, p),
		contractx.CategoryVendor:         singleStateFlow(contractx.CategoryVendor, StateAwaitingServiceType, p.Vendor, tool.NameServiceType, p),
		contractx.CategoryStaff:          singleStateFlow(contractx.CategoryStaff, StateAwaitingNeedType, p.Staff, tool.NameNeedType, p),
		contractx.CategoryCandidate:      singleStateFlow(contractx.CategoryCandidate, StateAwaitingVacancy, p.Candidate, tool.NameVacancy, p),
		contractx.CategoryOther:          otherFlow(),
	}
	for cat, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("flow %s: %w", cat, err)
		}
	}
	return defs, nil
}

func sharedStates(finishedInstruction string) map[contractx.StateName]StateConfig {
	return map[contractx.StateName]StateConfig{
		StateFinished: {
			Instruction: finishedInstruction,
			Tools:       []string{tool.NameHumanHelp},
			Terminal:    TerminalFinished,
		},
		StateEscalation: {
			Terminal: TerminalEscalation,
		},
	}
}

// leadFlow qualifies a potential customer. Companies go through a NIT
// lookup before the cargo questionnaire; natural persons are screened
// for moves and parcel work before being either discarded or quoted.
func leadFlow(p prompt.Set) Definition {
	states := sharedStates(p.Finished)

	states[StateAwaitingNIT] = StateConfig{
		Instruction: p.Lead,
		Tools: []string{
			tool.NameSearchNIT,
			tool.NameIsPersonaNatural,
			tool.NameHumanHelp,
		},
		Rules: []TransitionRule{
			{OnTools: []string{tool.NameHumanHelp}, Next: StateEscalation},
			{OnTools: []string{tool.NameSearchNIT}, Next: StateAwaitingRemainingInfo},
			{OnTools: []string{tool.NameIsPersonaNatural}, Next: StateAwaitingNaturalInfo},
		},
	}

	states[StateAwaitingRemainingInfo] = StateConfig{
		Instruction: p.Lead,
		Tools: []string{
			tool.NameValidCity,
			tool.NameValidMerchandise,
			tool.NameNeedsFreightForwarder,
			tool.NameCommercialHandoff,
			tool.NameHumanHelp,
		},
		Rules: []TransitionRule{
			{OnTools: []string{tool.NameHumanHelp}, Next: StateEscalation},
			{OnTools: []string{tool.NameNeedsFreightForwarder, tool.NameCommercialHandoff}, Next: StateFinished},
			{OnTools: []string{tool.NameValidCity, tool.NameValidMerchandise}, Next: StateAwaitingRemainingInfo},
		},
	}

	states[StateAwaitingNaturalInfo] = StateConfig{
		Instruction: p.Lead,
		Tools: []string{
			tool.NameMovingRequest,
			tool.NameParcelRequest,
			tool.NameDiscardRequest,
			tool.NameCommercialHandoff,
			tool.NameHumanHelp,
		},
		Rules: []TransitionRule{
			{OnTools: []string{tool.NameHumanHelp}, Next: StateEscalation},
			{OnTools: []string{tool.NameDiscardRequest, tool.NameCommercialHandoff}, Next: StateFinished},
			{OnTools: []string{tool.NameMovingRequest, tool.NameParcelRequest}, Next: StateAwaitingNaturalInfo},
		},
	}

	return Definition{
		Category: contractx.CategoryLead,
		Initial:  StateAwaitingNIT,
		States:   states,
	}
}

// singleStateFlow covers the categories whose whole job is extracting one
// classification and routing it: a single awaiting state whose terminal
// tool ends the conversation.
func singleStateFlow(cat contractx.Category, initial contractx.StateName, instruction, terminalTool string, p prompt.Set) Definition {
	states := sharedStates(p.Finished)
	states[initial] = StateConfig{
		Instruction: instruction,
		Tools:       []string{terminalTool, tool.NameHumanHelp},
		Rules: []TransitionRule{
			{OnTools: []string{tool.NameHumanHelp}, Next: StateEscalation},
			{OnTools: []string{terminalTool}, Next: StateFinished},
		},
	}
	return Definition{Category: cat, Initial: initial, States: states}
}

// otherFlow is the reserved ambiguous bucket. A session routed here goes
// straight to a human.
func otherFlow() Definition {
	return Definition{
		Category: contractx.CategoryOther,
		Initial:  StateEscalation,
		States: map[contractx.StateName]StateConfig{
			StateEscalation: {Terminal: TerminalEscalation},
		},
	}
}
