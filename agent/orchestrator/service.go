// Package orchestrator wires classification, dispatch, and persistence
// into the message-handling pipeline exposed to the transports.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/botero-soto/sotobot/agent/category"
	"github.com/botero-soto/sotobot/agent/classify"
	contractx "github.com/botero-soto/sotobot/agent/contract"
	"github.com/botero-soto/sotobot/agent/convo"
	nodex "github.com/botero-soto/sotobot/agent/nodes"
	"github.com/botero-soto/sotobot/agent/prompt"
	statex "github.com/botero-soto/sotobot/agent/state"
	"github.com/botero-soto/sotobot/agent/tool"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = nodex.ErrInvalidSession
)

// Config tunes the conversation policy. Loaded under the AGENT prefix.
type Config struct {
	ClassificationThreshold float64 `envconfig:"CLASSIFICATION_THRESHOLD" split_words:"true" default:"0.7"`
	MaxToolRounds           int     `envconfig:"MAX_TOOL_ROUNDS" split_words:"true" default:"10"`
	FinishedTurnLimit       int     `envconfig:"FINISHED_TURN_LIMIT" split_words:"true" default:"3"`
	UnclassifiedTurnLimit   int     `envconfig:"UNCLASSIFIED_TURN_LIMIT" split_words:"true" default:"5"`
	Temperature             float64 `envconfig:"TEMPERATURE" split_words:"true" default:"0.2"`
}

type Orchestrator struct {
	store      statex.Store
	classifier *classify.Classifier
	dispatcher *convo.Dispatcher
	threshold  float64

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

func New(
	store statex.Store,
	completer contractx.Completer,
	registry *tool.Registry,
	prompts prompt.Set,
	cfg Config,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if completer == nil {
		return nil, errors.New("completer is required")
	}
	if registry == nil {
		return nil, errors.New("tool registry is required")
	}

	flows, err := category.Catalog(prompts)
	if err != nil {
		return nil, err
	}

	threshold := cfg.ClassificationThreshold
	if threshold <= 0 || threshold >= 1 {
		threshold = classify.DefaultThreshold
	}

	o := &Orchestrator{
		store:      store,
		classifier: classify.New(completer, prompts.Classifier),
		dispatcher: &convo.Dispatcher{
			Loop: &convo.Loop{
				Completer:   completer,
				Registry:    registry,
				MaxRounds:   cfg.MaxToolRounds,
				Temperature: cfg.Temperature,
			},
			Flows:             flows,
			ClarifyPrompt:     prompts.Clarify,
			FinishedLimit:     cfg.FinishedTurnLimit,
			UnclassifiedLimit: cfg.UnclassifiedTurnLimit,
		},
		threshold: threshold,
		now:       time.Now,
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleMessage runs one full turn and returns the outward outcome. The
// reply text of Outcome.Messages is what goes back on the channel; an
// empty message list means the session is with a human and the assistant
// stays silent.
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID string, text string) (contractx.Outcome, error) {
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID: sessionID,
		Text:      text,
	})
	if err != nil {
		return contractx.Outcome{}, err
	}
	return out.Outcome, nil
}

// Reset archives the session so the next inbound message starts a fresh
// conversation under the same channel key.
func (o *Orchestrator) Reset(ctx context.Context, sessionID string) error {
	return o.store.Reset(ctx, sessionID)
}
