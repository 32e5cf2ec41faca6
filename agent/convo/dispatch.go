package convo

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/botero-soto/sotobot/agent/category"
	contractx "github.com/botero-soto/sotobot/agent/contract"
	"github.com/botero-soto/sotobot/agent/prompt"
	"github.com/botero-soto/sotobot/agent/state"
	"github.com/botero-soto/sotobot/agent/tool"
)

const (
	// DefaultFinishedLimit is how many user turns a finished conversation
	// tolerates before a human takes over.
	DefaultFinishedLimit = 3

	// DefaultUnclassifiedLimit is how many turns a session may stay
	// unrouted before escalating.
	DefaultUnclassifiedLimit = 5
)

// Dispatcher interprets the category flow definitions: it runs the turn
// loop for the session's current state, applies the transition rules,
// and enforces the finished and unclassified turn limits. Any dead end
// (loop overrun, upstream exhaustion, unmapped transition, empty reply)
// degrades to human escalation instead of an error to the user.
type Dispatcher struct {
	Loop              *Loop
	Flows             map[contractx.Category]category.Definition
	ClarifyPrompt     string
	FinishedLimit     int
	UnclassifiedLimit int
}

func (d *Dispatcher) finishedLimit() int {
	if d.FinishedLimit > 0 {
		return d.FinishedLimit
	}
	return DefaultFinishedLimit
}

func (d *Dispatcher) unclassifiedLimit() int {
	if d.UnclassifiedLimit > 0 {
		return d.UnclassifiedLimit
	}
	return DefaultUnclassifiedLimit
}

// Advance runs one turn for a classified session. The inbound user
// message must already be appended to the session history.
func (d *Dispatcher) Advance(ctx context.Context, sess *state.Session) (contractx.Outcome, error) {
	def, ok := d.Flows[sess.Category]
	if !ok {
		log.Error().Str("session", sess.ID).Str("category", string(sess.Category)).Msg("session routed to an undefined flow")
		return d.Escalate(sess), nil
	}
	if sess.State == "" {
		sess.State = def.Initial
	}
	st, err := def.State(sess.State)
	if err != nil {
		log.Error().Err(err).Str("session", sess.ID).Msg("session sits in an unknown state")
		return d.Escalate(sess), nil
	}

	switch st.Terminal {
	case category.TerminalEscalation:
		// A human owns the conversation; the assistant stays silent.
		return contractx.Outcome{NextState: sess.State}, nil
	case category.TerminalFinished:
		return d.finishedTurn(ctx, sess, st)
	default:
		return d.flowTurn(ctx, sess, def, st)
	}
}

func (d *Dispatcher) flowTurn(ctx context.Context, sess *state.Session, def category.Definition, st category.StateConfig) (contractx.Outcome, error) {
	res, err := d.runLoop(ctx, sess, st)
	if err != nil {
		return d.degrade(sess, err), nil
	}

	sess.Append(res.Messages...)
	for k, v := range res.Data {
		sess.SetData(k, v)
	}

	next, err := def.Resolve(sess.State, res.Called)
	if err != nil {
		log.Warn().Err(err).Str("session", sess.ID).Msg("turn produced an unmapped transition")
		return d.Escalate(sess), nil
	}

	var replyText, calledTool string
	if res.Terminal != nil {
		replyText = res.Terminal.Reply
		calledTool = res.Terminal.Name
	} else {
		replyText = strings.TrimSpace(res.FinalText)
		if replyText == "" {
			log.Warn().Str("session", sess.ID).Msg("turn ended with an empty reply")
			return d.Escalate(sess), nil
		}
	}

	if next == category.StateFinished && sess.State != category.StateFinished {
		sess.TurnsAfterFinished = 0
	}
	sess.State = next

	reply := contractx.AssistantMessage(replyText)
	sess.Append(reply)
	return contractx.Outcome{
		Messages:  []contractx.Message{reply},
		NextState: next,
		ToolCall:  calledTool,
		Data:      res.Data,
	}, nil
}

// finishedTurn handles messages arriving after the conversation already
// closed. The model may only ask for a human; persistence past the limit
// escalates without asking.
func (d *Dispatcher) finishedTurn(ctx context.Context, sess *state.Session, st category.StateConfig) (contractx.Outcome, error) {
	sess.TurnsAfterFinished++
	if sess.TurnsAfterFinished >= d.finishedLimit() {
		log.Info().Str("session", sess.ID).Int("turns", sess.TurnsAfterFinished).Msg("finished-conversation turn limit reached")
		return d.Escalate(sess), nil
	}

	res, err := d.runLoop(ctx, sess, st)
	if err != nil {
		return d.degrade(sess, err), nil
	}
	sess.Append(res.Messages...)
	if res.Terminal != nil {
		return d.Escalate(sess), nil
	}

	replyText := strings.TrimSpace(res.FinalText)
	if replyText == "" {
		return d.Escalate(sess), nil
	}
	reply := contractx.AssistantMessage(replyText)
	sess.Append(reply)
	return contractx.Outcome{Messages: []contractx.Message{reply}, NextState: sess.State}, nil
}

// Clarify handles a turn on a session no classification has stuck to
// yet: ask the user to elaborate, give up to a human after the limit.
func (d *Dispatcher) Clarify(ctx context.Context, sess *state.Session) (contractx.Outcome, error) {
	sess.UnclassifiedTurns++
	if sess.UnclassifiedTurns >= d.unclassifiedLimit() {
		log.Info().Str("session", sess.ID).Int("turns", sess.UnclassifiedTurns).Msg("unclassified turn limit reached")
		return d.Escalate(sess), nil
	}

	res, err := d.runLoop(ctx, sess, category.StateConfig{
		Instruction: d.ClarifyPrompt,
		Tools:       []string{tool.NameHumanHelp},
	})
	if err != nil {
		return d.degrade(sess, err), nil
	}
	sess.Append(res.Messages...)
	if res.Terminal != nil {
		return d.Escalate(sess), nil
	}

	replyText := strings.TrimSpace(res.FinalText)
	if replyText == "" {
		return d.Escalate(sess), nil
	}
	reply := contractx.AssistantMessage(replyText)
	sess.Append(reply)
	return contractx.Outcome{Messages: []contractx.Message{reply}}, nil
}

func (d *Dispatcher) runLoop(ctx context.Context, sess *state.Session, st category.StateConfig) (Result, error) {
	return d.Loop.Run(tool.WithSessionID(ctx, sess.ID), st.Instruction, sess.Messages, st.Tools)
}

// degrade converts a turn failure into an escalation so the user is
// never left without an answer.
func (d *Dispatcher) degrade(sess *state.Session, err error) contractx.Outcome {
	evt := log.Error().Err(err).Str("session", sess.ID)
	if errors.Is(err, contractx.ErrUpstream) || errors.Is(err, contractx.ErrLoopOverrun) {
		evt.Msg("turn exhausted its provider budget, handing over to a human")
	} else {
		evt.Msg("turn failed unexpectedly, handing over to a human")
	}
	return d.Escalate(sess)
}

// Escalate moves the session to human escalation and emits the handoff
// reply. Calling it on an already escalated session repeats neither the
// state change cost nor duplicates history beyond the handoff notice.
func (d *Dispatcher) Escalate(sess *state.Session) contractx.Outcome {
	sess.State = category.StateEscalation
	msg := contractx.AssistantMessage(prompt.ReplyHumanHandoff)
	sess.Append(msg)
	return contractx.Outcome{
		Messages:  []contractx.Message{msg},
		NextState: category.StateEscalation,
		ToolCall:  tool.NameHumanHelp,
	}
}
