// Package llmtest provides a scripted LLMClient for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/AkibDa/Code-Genesis/pkg/agent/llm"
)

// Step is one scripted reply: either a response or an error.
type Step struct {
	Err      error
	Response llm.CompletionResponse
}

// MockClient replays scripted steps in order and records every request.
type MockClient struct {
	Model string

	mu       sync.Mutex
	steps    []Step
	requests []llm.CompletionRequest
}

// NewMockClient creates a mock that answers with the given steps.
func NewMockClient(model string, steps ...Step) *MockClient {
	return &MockClient{Model: model, steps: steps}
}

// Reply is shorthand for a text-only step.
func Reply(content string) Step {
	return Step{Response: llm.CompletionResponse{Content: content, StopReason: "end_turn"}}
}

// CallTool is shorthand for a step that requests a single tool call.
func CallTool(id, name string, params map[string]any) Step {
	return Step{Response: llm.CompletionResponse{
		ToolCalls:  []llm.ToolCall{{ID: id, Name: name, Parameters: params}},
		StopReason: "tool_use",
	}}
}

// Fail is shorthand for an error step.
func Fail(err error) Step {
	return Step{Err: err}
}

// Push appends more steps.
func (m *MockClient) Push(steps ...Step) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, steps...)
}

// Complete implements llm.LLMClient.
func (m *MockClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, in)
	if err := ctx.Err(); err != nil {
		return llm.CompletionResponse{}, err
	}
	if len(m.steps) == 0 {
		return llm.CompletionResponse{}, fmt.Errorf("mock %s: no scripted response for call %d", m.Model, len(m.requests))
	}
	step := m.steps[0]
	m.steps = m.steps[1:]
	return step.Response, step.Err
}

// GetModelName implements llm.LLMClient.
func (m *MockClient) GetModelName() string {
	return m.Model
}

// Requests returns a copy of every request received so far.
func (m *MockClient) Requests() []llm.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.CompletionRequest(nil), m.requests...)
}

// Remaining reports how many scripted steps have not been consumed.
func (m *MockClient) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.steps)
}
