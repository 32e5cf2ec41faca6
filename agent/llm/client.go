// Package llm adapts the OpenAI-compatible chat API to the completion
// contract the conversation core consumes.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openaisdk "github.com/openai/openai-go"

	contractx "github.com/botero-soto/sotobot/agent/contract"
)

// Config selects the chat model. Loaded under the LLM prefix.
type Config struct {
	Model string `envconfig:"MODEL" split_words:"true" required:"true"`
}

// Client implements the completion contract on top of the chat API. Tool
// calls come back unexecuted; the conversation loop runs them.
type Client struct {
	api   *openaisdk.Client
	model string
}

func NewClient(api *openaisdk.Client, model string) *Client {
	return &Client{api: api, model: model}
}

func (c *Client) Complete(ctx context.Context, req contractx.CompletionRequest) (contractx.CompletionResponse, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model:       openaisdk.ChatModel(c.model),
		Messages:    buildMessages(req),
		Temperature: openaisdk.Float(req.Temperature),
	}
	for _, spec := range req.Tools {
		if req.ForceTool != "" && spec.Name != req.ForceTool {
			continue
		}
		params.Tools = append(params.Tools, toolParam(spec))
	}
	if req.ForceTool != "" {
		params.ToolChoice = openaisdk.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openaisdk.String("required"),
		}
	}

	completion, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return contractx.CompletionResponse{}, classifyAPIError(err)
	}
	if len(completion.Choices) == 0 {
		return contractx.CompletionResponse{}, fmt.Errorf("%w: completion has no choices", contractx.ErrUpstream)
	}

	msg := completion.Choices[0].Message
	resp := contractx.CompletionResponse{Text: msg.Content}
	for _, call := range msg.ToolCalls {
		args := map[string]any{}
		if raw := call.Function.Arguments; raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return contractx.CompletionResponse{}, fmt.Errorf("tool %s arguments: %w", call.Function.Name, err)
			}
		}
		resp.ToolCalls = append(resp.ToolCalls, contractx.ToolCall{
			ID:   call.ID,
			Name: call.Function.Name,
			Args: args,
		})
	}
	return resp, nil
}

func buildMessages(req contractx.CompletionRequest) []openaisdk.ChatCompletionMessageParamUnion {
	msgs := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(req.History)+1)
	if req.Instruction != "" {
		msgs = append(msgs, openaisdk.SystemMessage(req.Instruction))
	}
	for _, m := range req.History {
		switch m.Role {
		case contractx.RoleUser:
			msgs = append(msgs, openaisdk.UserMessage(m.Content))
		case contractx.RoleAssistant:
			if len(m.ToolCalls) == 0 {
				msgs = append(msgs, openaisdk.AssistantMessage(m.Content))
				continue
			}
			msgs = append(msgs, assistantWithToolCalls(m))
		case contractx.RoleTool:
			for _, res := range m.ToolResults {
				msgs = append(msgs, openaisdk.ToolMessage(encodeToolResult(res), res.CallID))
			}
		}
	}
	return msgs
}

func assistantWithToolCalls(m contractx.Message) openaisdk.ChatCompletionMessageParamUnion {
	assistant := openaisdk.ChatCompletionAssistantMessageParam{}
	if m.Content != "" {
		assistant.Content.OfString = openaisdk.String(m.Content)
	}
	for _, call := range m.ToolCalls {
		args, _ := json.Marshal(call.Args)
		assistant.ToolCalls = append(assistant.ToolCalls, openaisdk.ChatCompletionMessageToolCallParam{
			ID: call.ID,
			Function: openaisdk.ChatCompletionMessageToolCallFunctionParam{
				Name:      call.Name,
				Arguments: string(args),
			},
		})
	}
	return openaisdk.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
}

func encodeToolResult(res contractx.ToolResult) string {
	if res.Error != "" {
		raw, _ := json.Marshal(map[string]any{"error": res.Error})
		return string(raw)
	}
	raw, err := json.Marshal(res.Result)
	if err != nil {
		return fmt.Sprintf("%v", res.Result)
	}
	return string(raw)
}

func toolParam(spec contractx.ToolSpec) openaisdk.ChatCompletionToolParam {
	return openaisdk.ChatCompletionToolParam{
		Function: openaisdk.FunctionDefinitionParam{
			Name:        spec.Name,
			Description: openaisdk.String(spec.Description),
			Parameters:  openaisdk.FunctionParameters(spec.Parameters),
		},
	}
}

// classifyAPIError folds transient provider failures into ErrUpstream so
// the retry layer knows what is worth retrying.
func classifyAPIError(err error) error {
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= 500 || apiErr.StatusCode == 429 {
			return fmt.Errorf("%w: %v", contractx.ErrUpstream, err)
		}
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", contractx.ErrUpstream, err)
	}
	return err
}
