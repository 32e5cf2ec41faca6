package tool

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/botero-soto/sotobot/agent/contract"
)

// Handler executes one tool call. Handlers are pure transformations of
// their arguments; anything needing I/O receives it as an injected
// capability at catalog build time.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Tool is a typed registry entry. Terminal tools end the turn immediately:
// the outward message comes from Reply, never from model prose, and no
// further completion call is made. Non-terminal tools feed their result
// back to the model. DataKey, when set, is the session business-data key
// the result is stored under.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Terminal    bool
	Reply       string
	DataKey     string
	Handler     Handler
}

// Registry maps tool names to handlers. Built once at startup; safe for
// concurrent reads.
type Registry struct {
	tools map[string]Tool
}

func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: tool name is empty", contractx.ErrValidation)
		}
		if t.Handler == nil {
			return nil, fmt.Errorf("%w: tool %s has no handler", contractx.ErrValidation, name)
		}
		if t.Terminal && strings.TrimSpace(t.Reply) == "" {
			return nil, fmt.Errorf("%w: terminal tool %s has no reply template", contractx.ErrValidation, name)
		}
		if _, dup := r.tools[name]; dup {
			return nil, fmt.Errorf("%w: duplicate tool %s", contractx.ErrValidation, name)
		}
		r.tools[name] = t
	}
	return r, nil
}

func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Specs resolves a list of tool names into completion-service specs.
func (r *Registry) Specs(names []string) ([]contractx.ToolSpec, error) {
	specs := make([]contractx.ToolSpec, 0, len(names))
	for _, name := range names {
		t, ok := r.tools[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", contractx.ErrUnknownTool, name)
		}
		specs = append(specs, contractx.ToolSpec{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	return specs, nil
}

// Execute runs one requested tool call. Handler failures are reported in
// the result, not as an error: the model sees them as tool output.
func (r *Registry) Execute(ctx context.Context, call contractx.ToolCall) (contractx.ToolResult, error) {
	t, ok := r.tools[call.Name]
	if !ok {
		return contractx.ToolResult{}, fmt.Errorf("%w: %s", contractx.ErrUnknownTool, call.Name)
	}

	out, err := t.Handler(ctx, call.Args)
	res := contractx.ToolResult{CallID: call.ID, Name: call.Name}
	if err != nil {
		res.Error = err.Error()
		return res, nil
	}
	res.Result = out
	return res, nil
}

// stringArg extracts a required string argument.
func stringArg(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok {
		return "", fmt.Errorf("%s is required", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%s is empty", key)
	}
	return s, nil
}

func stringParam(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func objectSchema(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
