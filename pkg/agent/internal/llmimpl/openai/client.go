// Package openai provides a Chat Completions client for OpenAI-compatible endpoints
// (OpenAI itself, Groq and the Hugging Face router) on top of go-openai.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/AkibDa/Code-Genesis/pkg/agent/llm"
	"github.com/AkibDa/Code-Genesis/pkg/agent/llmerrors"
	"github.com/AkibDa/Code-Genesis/pkg/tools"
)

// GroqBaseURL is Groq's OpenAI-compatible API root.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// HuggingFaceBaseURL is the Hugging Face inference router's OpenAI-compatible API root.
const HuggingFaceBaseURL = "https://router.huggingface.co/v1"

// ChatClient wraps go-openai to implement llm.LLMClient.
type ChatClient struct {
	client *openai.Client
	model  string
}

// NewChatClient creates a raw chat client. An empty baseURL targets api.openai.com.
func NewChatClient(apiKey, baseURL, model string) llm.LLMClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &ChatClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Complete implements llm.LLMClient.
//
//nolint:gocritic // CompletionRequest passed by value to match the interface
func (c *ChatClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	req, err := buildRequest(c.model, &in)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeBadPrompt, err, "message conversion failed")
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "no choices in chat completion response")
	}

	choice := resp.Choices[0]
	out := llm.CompletionResponse{
		Content:    choice.Message.Content,
		StopReason: string(choice.FinishReason),
	}
	for _, tc := range choice.Message.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return llm.CompletionResponse{}, llmerrors.NewToolValidationError(
					fmt.Sprintf("tool %q arguments are not a JSON object: %v", tc.Function.Name, err))
			}
		}
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
			ID:         tc.ID,
			Name:       tc.Function.Name,
			Parameters: args,
		})
	}
	if out.Content == "" && len(out.ToolCalls) == 0 {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "empty chat completion message")
	}
	return out, nil
}

// GetModelName returns the model name for this client.
func (c *ChatClient) GetModelName() string {
	return c.model
}

func buildRequest(model string, in *llm.CompletionRequest) (openai.ChatCompletionRequest, error) {
	messages, err := convertMessages(in.Messages)
	if err != nil {
		return openai.ChatCompletionRequest{}, err
	}
	req := openai.ChatCompletionRequest{
		Model:               model,
		Messages:            messages,
		MaxCompletionTokens: in.MaxTokens,
		Temperature:         in.Temperature,
	}
	if len(in.Tools) > 0 {
		req.Tools = convertTools(in.Tools)
		if in.ToolChoice == llm.ToolChoiceAny {
			req.ToolChoice = "required"
		} else {
			req.ToolChoice = "auto"
		}
	}
	return req, nil
}

// convertMessages maps the history onto chat roles. Tool results become one
// "tool" message per result, keyed by the call ID they answer.
func convertMessages(in []llm.CompletionMessage) ([]openai.ChatCompletionMessage, error) {
	out := make([]openai.ChatCompletionMessage, 0, len(in))
	for i := range in {
		msg := &in[i]
		switch msg.Role {
		case llm.RoleSystem:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: msg.Content})
		case llm.RoleAssistant:
			am := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: msg.Content}
			for j := range msg.ToolCalls {
				tc := &msg.ToolCalls[j]
				args, err := json.Marshal(tc.Parameters)
				if err != nil {
					return nil, fmt.Errorf("encode arguments for %s: %w", tc.Name, err)
				}
				am.ToolCalls = append(am.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(args),
					},
				})
			}
			out = append(out, am)
		case llm.RoleUser:
			for j := range msg.ToolResults {
				tr := &msg.ToolResults[j]
				out = append(out, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    tr.Content,
					ToolCallID: tr.ToolCallID,
				})
			}
			if msg.Content != "" {
				out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: msg.Content})
			}
		default:
			return nil, fmt.Errorf("unsupported message role %q", msg.Role)
		}
	}
	return out, nil
}

func convertTools(defs []tools.ToolDefinition) []openai.Tool {
	out := make([]openai.Tool, len(defs))
	for i := range defs {
		def := &defs[i]
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.InputSchema.Schema(),
			},
		}
	}
	return out
}

func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return llmerrors.Classify(err, apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return llmerrors.Classify(err, reqErr.HTTPStatusCode)
	}
	return llmerrors.Classify(err, 0)
}
