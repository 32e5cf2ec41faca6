// Package nodes holds the graph steps of the message-handling pipeline.
// Each step is a plain function over GraphState so it can be tested
// without compiling the graph.
package nodes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/botero-soto/sotobot/agent/classify"
	contractx "github.com/botero-soto/sotobot/agent/contract"
	"github.com/botero-soto/sotobot/agent/convo"
	statex "github.com/botero-soto/sotobot/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidSession = errors.New("session id is empty")
)

type GraphInput struct {
	SessionID string
	Text      string
}

type GraphOutput struct {
	Reply   string
	Outcome contractx.Outcome
}

type GraphState struct {
	SessionID string
	Text      string
	Now       time.Time

	Session *statex.Session

	// Routing verdict for this turn, only meaningful before dispatch.
	Ambiguous    bool
	Unclassified bool

	Outcome contractx.Outcome
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		SessionID: sessionID,
		Text:      text,
		Now:       nowFn().UTC(),
	}, nil
}

// LoadOrCreateState fetches the session and appends the inbound user
// message to its history.
func LoadOrCreateState(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	sess, err := store.Load(ctx, in.SessionID)
	if errors.Is(err, statex.ErrNotFound) {
		sess = statex.NewSession(in.SessionID, in.Now)
	} else if err != nil {
		return nil, err
	}

	sess.Append(contractx.UserMessage(in.Text))
	in.Session = sess
	return in, nil
}

// ClassifyInbound routes a not-yet-classified session. A session already
// carrying a category keeps it for its whole life; unclassified sessions
// are rescored every turn until something sticks or the clarify limit
// trips.
func ClassifyInbound(ctx context.Context, in *GraphState, classifier *classify.Classifier, threshold float64) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph state has no session", contractx.ErrValidation)
	}
	if in.Session.Classified() {
		return in, nil
	}

	cl, err := classifier.Classify(ctx, in.Session.Messages)
	if err != nil {
		return nil, err
	}

	decision := classify.Route(cl, threshold)
	switch {
	case decision.Ambiguous:
		in.Ambiguous = true
	case decision.Unclassified:
		in.Unclassified = true
	default:
		in.Session.Category = decision.Category
	}
	return in, nil
}

// Dispatch runs the turn against the routed flow. Ambiguous sessions go
// straight to a human under the reserved bucket; unclassified ones get a
// clarification turn.
func Dispatch(ctx context.Context, in *GraphState, dispatcher *convo.Dispatcher) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph state has no session", contractx.ErrValidation)
	}

	switch {
	case in.Ambiguous:
		in.Session.Category = contractx.CategoryOther
		in.Outcome = dispatcher.Escalate(in.Session)
		return in, nil
	case in.Unclassified:
		out, err := dispatcher.Clarify(ctx, in.Session)
		if err != nil {
			return nil, err
		}
		in.Outcome = out
		return in, nil
	default:
		out, err := dispatcher.Advance(ctx, in.Session)
		if err != nil {
			return nil, err
		}
		in.Outcome = out
		return in, nil
	}
}

// SaveState validates and persists the session after the turn.
func SaveState(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph state has no session", contractx.ErrValidation)
	}
	if err := in.Session.Validate(); err != nil {
		return nil, err
	}
	in.Session.Touch(in.Now)
	if err := store.Save(ctx, in.Session); err != nil {
		return nil, err
	}
	return in, nil
}

// FinalizeReply projects the outcome into the outward reply. An empty
// reply is legal only for sessions a human already owns.
func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	var parts []string
	for _, m := range in.Outcome.Messages {
		if text := strings.TrimSpace(m.Content); text != "" {
			parts = append(parts, text)
		}
	}
	return GraphOutput{
		Reply:   strings.Join(parts, "\n\n"),
		Outcome: in.Outcome,
	}, nil
}
