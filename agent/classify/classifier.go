// Package classify scores inbound conversations against the business
// categories and turns the scores into a routing decision.
package classify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/botero-soto/sotobot/agent/contract"
)

// ToolClassify is the forced tool the scoring model must answer with.
const ToolClassify = "clasificar_interaccion"

// DefaultThreshold is the minimum confidence a category must strictly
// exceed to be routed to.
const DefaultThreshold = 0.7

// Classifier runs the scoring call. The completion is forced to emit the
// classification tool so the result is structured, never prose.
type Classifier struct {
	completer   contractx.Completer
	instruction string
}

func New(completer contractx.Completer, instruction string) *Classifier {
	return &Classifier{completer: completer, instruction: instruction}
}

// Classify scores the conversation so far. A malformed or missing tool
// answer degrades to an empty classification rather than an error: the
// caller treats it as unclassified and keeps the session alive.
func (c *Classifier) Classify(ctx context.Context, history []contractx.Message) (contractx.Classification, error) {
	resp, err := c.completer.Complete(ctx, contractx.CompletionRequest{
		Instruction: c.instruction,
		History:     history,
		Tools:       []contractx.ToolSpec{classifySpec()},
		Temperature: 0,
		ForceTool:   ToolClassify,
	})
	if err != nil {
		return contractx.Classification{}, fmt.Errorf("classify: %w", err)
	}

	for _, call := range resp.ToolCalls {
		if call.Name != ToolClassify {
			continue
		}
		cl, err := parseClassification(call.Args)
		if err != nil {
			log.Warn().Err(err).Msg("classifier returned an unparseable payload")
			return contractx.Classification{}, nil
		}
		return cl, nil
	}
	log.Warn().Msg("classifier answered without the classification tool")
	return contractx.Classification{}, nil
}

func parseClassification(args map[string]any) (contractx.Classification, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return contractx.Classification{}, err
	}
	var cl contractx.Classification
	if err := json.Unmarshal(raw, &cl); err != nil {
		return contractx.Classification{}, err
	}
	return cl, nil
}

func classifySpec() contractx.ToolSpec {
	categories := make([]string, 0, len(contractx.AllCategories())+1)
	for _, cat := range contractx.AllCategories() {
		categories = append(categories, string(cat))
	}
	categories = append(categories, string(contractx.CategoryOther))

	scoreItem := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"categoria": map[string]any{
				"type": "string",
				"enum": categories,
			},
			"puntuacionDeConfianza": map[string]any{
				"type":        "number",
				"description": "Confianza entre 0 y 1.",
			},
			"razonamiento": map[string]any{
				"type":        "string",
				"description": "Por qué la conversación encaja en la categoría.",
			},
			"indicadoresClave": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Frases del usuario que soportan la puntuación.",
			},
		},
		"required": []string{"categoria", "puntuacionDeConfianza"},
	}

	return contractx.ToolSpec{
		Name:        ToolClassify,
		Description: "Puntúa la conversación contra todas las categorías de negocio.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"puntuacionesPorCategoria": map[string]any{
					"type":  "array",
					"items": scoreItem,
				},
				"clasificacionPrimaria": map[string]any{
					"type": "string",
				},
				"clasificacionesAlternativas": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
			},
			"required": []string{"puntuacionesPorCategoria", "clasificacionPrimaria"},
		},
	}
}

// RouteDecision is the projection of a classification onto the routing
// rules: exactly one of Category, Ambiguous, Unclassified is meaningful.
type RouteDecision struct {
	Category     contractx.Category
	Ambiguous    bool
	Unclassified bool
}

// Route applies the confidence rules. Exactly one category strictly above
// the threshold routes there; more than one is ambiguous and goes to a
// human; none leaves the session unclassified.
func Route(cl contractx.Classification, threshold float64) RouteDecision {
	winners := cl.AboveThreshold(threshold)
	switch len(winners) {
	case 0:
		return RouteDecision{Unclassified: true}
	case 1:
		return RouteDecision{Category: winners[0]}
	default:
		return RouteDecision{Ambiguous: true}
	}
}
