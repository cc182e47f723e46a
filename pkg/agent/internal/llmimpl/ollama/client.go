// Package ollama provides the Ollama (local model) implementation of llm.LLMClient.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/AkibDa/Code-Genesis/pkg/agent/llm"
	"github.com/AkibDa/Code-Genesis/pkg/agent/llmerrors"
	"github.com/AkibDa/Code-Genesis/pkg/tools"
)

// DefaultHost is used when no host URL is configured.
const DefaultHost = "http://localhost:11434"

// Client wraps the Ollama API client to implement llm.LLMClient.
type Client struct {
	client *api.Client
	model  string
}

// NewOllamaClientWithModel creates a raw Ollama client. An unparsable host falls
// back to DefaultHost.
func NewOllamaClientWithModel(hostURL, model string) llm.LLMClient {
	parsed, err := url.Parse(hostURL)
	if err != nil || hostURL == "" {
		parsed, _ = url.Parse(DefaultHost)
	}
	return &Client{
		client: api.NewClient(parsed, http.DefaultClient),
		model:  model,
	}
}

// Complete implements llm.LLMClient.
//
//nolint:gocritic // CompletionRequest passed by value to match the interface
func (o *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	messages, err := convertMessages(in.Messages)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeBadPrompt, err, "message conversion error")
	}

	stream := false
	req := &api.ChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": in.Temperature,
			"num_predict": in.MaxTokens,
		},
	}
	if len(in.Tools) > 0 {
		converted, err := convertTools(in.Tools)
		if err != nil {
			return llm.CompletionResponse{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeBadPrompt, err, "tool conversion error")
		}
		req.Tools = converted
	}

	var response api.ChatResponse
	err = o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}

	calls, err := convertToolCalls(response.Message.ToolCalls)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.NewToolValidationError(err.Error())
	}
	out := llm.CompletionResponse{
		Content:    response.Message.Content,
		ToolCalls:  calls,
		StopReason: stopReason(&response),
	}
	if out.Content == "" && len(out.ToolCalls) == 0 {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "empty message from Ollama")
	}
	return out, nil
}

// GetModelName returns the model name for this client.
func (o *Client) GetModelName() string {
	return o.model
}

// wireToolCall is the JSON shape Ollama uses for tool calls. Converting through it
// keeps this package independent of how the SDK represents argument maps.
type wireToolCall struct {
	ID       string `json:"id,omitempty"`
	Function struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"function"`
}

func convertMessages(messages []llm.CompletionMessage) ([]api.Message, error) {
	if len(messages) == 0 {
		return nil, errors.New("message list cannot be empty")
	}

	out := make([]api.Message, 0, len(messages))
	for i := range messages {
		msg := &messages[i]

		for j := range msg.ToolResults {
			tr := &msg.ToolResults[j]
			out = append(out, api.Message{
				Role:       "tool",
				Content:    tr.Content,
				ToolCallID: tr.ToolCallID,
			})
		}
		if len(msg.ToolResults) > 0 && msg.Content == "" {
			continue
		}

		om := api.Message{Role: string(msg.Role), Content: msg.Content}
		for j := range msg.ToolCalls {
			tc := &msg.ToolCalls[j]
			var wire wireToolCall
			wire.ID = tc.ID
			wire.Function.Name = tc.Name
			wire.Function.Arguments = tc.Parameters
			var call api.ToolCall
			if err := roundTrip(wire, &call); err != nil {
				return nil, fmt.Errorf("convert tool call %s: %w", tc.Name, err)
			}
			om.ToolCalls = append(om.ToolCalls, call)
		}
		out = append(out, om)
	}
	return out, nil
}

func convertTools(defs []tools.ToolDefinition) (api.Tools, error) {
	wire := make([]map[string]any, len(defs))
	for i := range defs {
		def := &defs[i]
		wire[i] = map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        def.Name,
				"description": def.Description,
				"parameters":  def.InputSchema.Schema(),
			},
		}
	}
	var out api.Tools
	if err := roundTrip(wire, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func convertToolCalls(calls []api.ToolCall) ([]llm.ToolCall, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	var wire []wireToolCall
	if err := roundTrip(calls, &wire); err != nil {
		return nil, fmt.Errorf("decode tool calls: %w", err)
	}
	out := make([]llm.ToolCall, len(wire))
	for i := range wire {
		id := wire[i].ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}
		args := wire[i].Function.Arguments
		if args == nil {
			args = map[string]any{}
		}
		out[i] = llm.ToolCall{ID: id, Name: wire[i].Function.Name, Parameters: args}
	}
	return out, nil
}

func roundTrip(in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func stopReason(resp *api.ChatResponse) string {
	if !resp.Done {
		return "incomplete"
	}
	switch resp.DoneReason {
	case "stop", "":
		return "end_turn"
	case "length":
		return "max_tokens"
	default:
		return resp.DoneReason
	}
}

func classifyError(err error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return llmerrors.Classify(err, statusErr.StatusCode)
	}
	errStr := err.Error()
	if strings.Contains(errStr, "model") && strings.Contains(errStr, "not found") {
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeBadPrompt, err, "Ollama model not found")
	}
	return llmerrors.Classify(err, 0)
}
