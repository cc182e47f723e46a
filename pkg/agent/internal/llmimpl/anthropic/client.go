// Package anthropic provides the Claude implementation of llm.LLMClient.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/AkibDa/Code-Genesis/pkg/agent/llm"
	"github.com/AkibDa/Code-Genesis/pkg/agent/llmerrors"
	"github.com/AkibDa/Code-Genesis/pkg/tools"
)

// ClaudeClient wraps the Anthropic API client to implement llm.LLMClient.
type ClaudeClient struct {
	client anthropic.Client
	model  string
}

// NewClaudeClientWithModel creates a raw Claude client; middleware is applied by the caller.
func NewClaudeClientWithModel(apiKey, model string, opts ...option.RequestOption) llm.LLMClient {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &ClaudeClient{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

// Complete implements llm.LLMClient.
//
//nolint:gocritic // CompletionRequest passed by value to match the interface
func (c *ClaudeClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	params, err := buildParams(c.model, &in)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeBadPrompt, err, "pre-send validation failed")
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		status := 0
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		return llm.CompletionResponse{}, llmerrors.Classify(err, status)
	}
	if resp == nil || len(resp.Content) == 0 {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "received empty or nil response from Claude API")
	}

	out := llm.CompletionResponse{StopReason: string(resp.StopReason)}
	for i := range resp.Content {
		block := &resp.Content[i]
		switch block.Type {
		case "text":
			out.Content += block.AsText().Text
		case "tool_use":
			toolUse := block.AsToolUse()
			var args map[string]any
			if len(toolUse.Input) > 0 {
				if err := json.Unmarshal(toolUse.Input, &args); err != nil {
					return llm.CompletionResponse{}, llmerrors.NewToolValidationError(
						fmt.Sprintf("tool %q arguments are not a JSON object: %v", toolUse.Name, err))
				}
			}
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				ID:         toolUse.ID,
				Name:       toolUse.Name,
				Parameters: args,
			})
		}
	}
	return out, nil
}

// GetModelName returns the model name for this client.
func (c *ClaudeClient) GetModelName() string {
	return c.model
}

func buildParams(model string, in *llm.CompletionRequest) (anthropic.MessageNewParams, error) {
	system, turns, err := ensureAlternation(in.Messages)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	messages := make([]anthropic.MessageParam, 0, len(turns))
	for i := range turns {
		messages = append(messages, convertMessage(&turns[i]))
	}

	maxTokens := in.MaxTokens
	if maxTokens <= 0 {
		maxTokens = llm.DefaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		Messages:    messages,
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(float64(in.Temperature)),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	if len(in.Tools) > 0 {
		params.Tools = convertTools(in.Tools)
		if in.ToolChoice == llm.ToolChoiceAny {
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAny: &anthropic.ToolChoiceAnyParam{}}
		} else {
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
		}
	}
	return params, nil
}

func convertMessage(msg *llm.CompletionMessage) anthropic.MessageParam {
	var blocks []anthropic.ContentBlockParamUnion
	for j := range msg.ToolResults {
		tr := &msg.ToolResults[j]
		blocks = append(blocks, anthropic.NewToolResultBlock(tr.ToolCallID, tr.Content, tr.IsError))
	}
	if msg.Content != "" {
		blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
	}
	for j := range msg.ToolCalls {
		tc := &msg.ToolCalls[j]
		args := tc.Parameters
		if args == nil {
			args = map[string]any{}
		}
		blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, args, tc.Name))
	}
	if msg.Role == llm.RoleAssistant {
		return anthropic.NewAssistantMessage(blocks...)
	}
	return anthropic.NewUserMessage(blocks...)
}

func convertTools(defs []tools.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for i := range defs {
		def := &defs[i]
		param := anthropic.ToolUnionParamOfTool(anthropic.ToolInputSchemaParam{
			Properties: def.InputSchema.PropertiesSchema(),
			Required:   def.InputSchema.Required,
		}, def.Name)
		if def.Description != "" && param.OfTool != nil {
			param.OfTool.Description = anthropic.String(def.Description)
		}
		out = append(out, param)
	}
	return out
}

// ensureAlternation pulls system messages into a single system prompt and merges
// consecutive same-role turns, since the Messages API requires strict user/assistant
// alternation starting with a user turn.
func ensureAlternation(messages []llm.CompletionMessage) (string, []llm.CompletionMessage, error) {
	var system string
	turns := make([]llm.CompletionMessage, 0, len(messages))

	for i := range messages {
		msg := messages[i]
		switch msg.Role {
		case llm.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
			continue
		case llm.RoleUser, llm.RoleAssistant:
		default:
			return "", nil, fmt.Errorf("unsupported message role %q", msg.Role)
		}

		if msg.Content == "" && len(msg.ToolCalls) == 0 && len(msg.ToolResults) == 0 {
			continue
		}

		if n := len(turns); n > 0 && turns[n-1].Role == msg.Role {
			prev := &turns[n-1]
			switch {
			case prev.Content == "":
				prev.Content = msg.Content
			case msg.Content != "":
				prev.Content += "\n\n" + msg.Content
			}
			prev.ToolCalls = append(prev.ToolCalls[:len(prev.ToolCalls):len(prev.ToolCalls)], msg.ToolCalls...)
			prev.ToolResults = append(prev.ToolResults[:len(prev.ToolResults):len(prev.ToolResults)], msg.ToolResults...)
			continue
		}
		turns = append(turns, msg)
	}

	if len(turns) == 0 {
		return "", nil, errors.New("no user or assistant messages to send")
	}
	if turns[0].Role != llm.RoleUser {
		return "", nil, errors.New("conversation must start with a user message")
	}
	return system, turns, nil
}
