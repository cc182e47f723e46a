package agent

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AkibDa/Code-Genesis/pkg/agent/llm"
	"github.com/AkibDa/Code-Genesis/pkg/agent/llm/llmtest"
	"github.com/AkibDa/Code-Genesis/pkg/tools"
	"github.com/AkibDa/Code-Genesis/pkg/workflow"
)

func newTestToolset(t *testing.T) *tools.Toolset {
	t.Helper()
	ws, err := tools.NewWorkspace(t.TempDir(), 0)
	require.NoError(t, err)
	return tools.NewToolset(ws, nil, 0)
}

func TestToolAgent_WritesFileAndReturnsFinalMessage(t *testing.T) {
	toolset := newTestToolset(t)
	mock := llmtest.NewMockClient("coder-model",
		llmtest.CallTool("c1", tools.ToolWriteFile, map[string]any{"path": "index.html", "content": "<h1>Todo</h1>"}),
		llmtest.Reply("Wrote index.html"),
	)
	agent := NewToolAgent(mock, toolset, ToolAgentConfig{MaxIterations: 5}, nil)

	reply, err := agent.Invoke(context.Background(), workflow.AgentRequest{
		SystemPrompt: "You are a coder.",
		Messages:     []string{"Task: write the page"},
		Tools:        tools.CoderTools,
	})
	require.NoError(t, err)
	assert.Equal(t, "Wrote index.html", reply)

	data, err := os.ReadFile(filepath.Join(toolset.Workspace().Root(), "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<h1>Todo</h1>", string(data))

	reqs := mock.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, llm.RoleSystem, reqs[0].Messages[0].Role)
	assert.Equal(t, llm.RoleUser, reqs[0].Messages[1].Role)
	assert.Len(t, reqs[0].Tools, len(tools.CoderTools))
}

func TestToolAgent_DisallowedToolIsToolValidation(t *testing.T) {
	mock := llmtest.NewMockClient("debugger-model",
		llmtest.CallTool("c1", tools.ToolWriteFile, map[string]any{"path": "a.js", "content": "x"}),
	)
	agent := NewToolAgent(mock, newTestToolset(t), ToolAgentConfig{}, nil)

	_, err := agent.Invoke(context.Background(), workflow.AgentRequest{
		Messages: []string{"review"},
		Tools:    tools.DebuggerTools,
	})
	require.Error(t, err)
	assert.Equal(t, workflow.ClassTransientTool, workflow.Classify(err))
}

func TestToolAgent_UnknownToolName(t *testing.T) {
	agent := NewToolAgent(llmtest.NewMockClient("m"), newTestToolset(t), ToolAgentConfig{}, nil)
	_, err := agent.Invoke(context.Background(), workflow.AgentRequest{Tools: []string{"web_search"}})
	assert.Error(t, err)
}
