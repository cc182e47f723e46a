package toolloop

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AkibDa/Code-Genesis/pkg/agent/llm"
	"github.com/AkibDa/Code-Genesis/pkg/agent/llm/llmtest"
	"github.com/AkibDa/Code-Genesis/pkg/agent/llmerrors"
	"github.com/AkibDa/Code-Genesis/pkg/tools"
)

func newProvider(t *testing.T, allowed []string) (*tools.ToolProvider, string) {
	t.Helper()
	root := t.TempDir()
	ws, err := tools.NewWorkspace(root, 0)
	require.NoError(t, err)
	provider, err := tools.NewToolset(ws, nil, 0).Provider(allowed)
	require.NoError(t, err)
	return provider, root
}

func startMessages() []llm.CompletionMessage {
	return []llm.CompletionMessage{
		llm.NewSystemMessage("You are the coder."),
		llm.NewUserMessage("Create hello.txt"),
	}
}

func TestRunFinalMessageWithoutTools(t *testing.T) {
	provider, _ := newProvider(t, tools.CoderTools)
	client := llmtest.NewMockClient("mock", llmtest.Reply("nothing to do"))

	out, err := New(client, nil).Run(context.Background(), &Config{ToolProvider: provider, Messages: startMessages()})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, out.Kind)
	assert.Equal(t, "nothing to do", out.Content)
	assert.Equal(t, 1, out.Iteration)
	assert.Len(t, out.Messages, 3)

	reqs := client.Requests()
	require.Len(t, reqs, 1)
	assert.Len(t, reqs[0].Tools, 5)
	assert.Equal(t, llm.DefaultMaxTokens, reqs[0].MaxTokens)
}

func TestRunExecutesToolsAndFeedsResultsBack(t *testing.T) {
	provider, root := newProvider(t, tools.CoderTools)
	client := llmtest.NewMockClient("mock",
		llmtest.CallTool("c1", tools.ToolWriteFile, map[string]any{"path": "hello.txt", "content": "hi"}),
		llmtest.Reply("wrote hello.txt"),
	)

	out, err := New(client, nil).Run(context.Background(), &Config{ToolProvider: provider, Messages: startMessages()})
	require.NoError(t, err)
	assert.Equal(t, "wrote hello.txt", out.Content)
	assert.Equal(t, 1, out.ToolCalls)
	assert.Equal(t, 2, out.Iteration)

	data, err := os.ReadFile(filepath.Join(root, "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))

	second := client.Requests()[1]
	last := second.Messages[len(second.Messages)-1]
	require.Len(t, last.ToolResults, 1)
	assert.Equal(t, "c1", last.ToolResults[0].ToolCallID)
	assert.False(t, last.ToolResults[0].IsError)
	assert.Contains(t, last.ToolResults[0].Content, `"success":true`)
}

func TestRunInvalidToolNameIsToolValidation(t *testing.T) {
	provider, _ := newProvider(t, tools.DebuggerTools)
	client := llmtest.NewMockClient("mock",
		llmtest.CallTool("c1", "repo_browser.write_file", map[string]any{"path": "x"}),
	)

	out, err := New(client, nil).Run(context.Background(), &Config{ToolProvider: provider, Messages: startMessages()})
	require.Error(t, err)
	assert.Equal(t, OutcomeToolValidation, out.Kind)
	assert.True(t, llmerrors.IsToolValidation(err))
	assert.Contains(t, err.Error(), "repo_browser.write_file")
	assert.Contains(t, err.Error(), "read_file, list_file, get_current_directory, run_cmd")
}

func TestRunMissingArgumentIsToolValidation(t *testing.T) {
	provider, root := newProvider(t, tools.CoderTools)
	client := llmtest.NewMockClient("mock",
		llmtest.Step{Response: llm.CompletionResponse{ToolCalls: []llm.ToolCall{
			{ID: "ok", Name: tools.ToolWriteFile, Parameters: map[string]any{"path": "a.txt", "content": "a"}},
			{ID: "bad", Name: tools.ToolWriteFile, Parameters: map[string]any{"path": "b.txt"}},
		}}},
	)

	_, err := New(client, nil).Run(context.Background(), &Config{ToolProvider: provider, Messages: startMessages()})
	require.Error(t, err)
	assert.True(t, llmerrors.IsToolValidation(err))

	_, statErr := os.Stat(filepath.Join(root, "a.txt"))
	assert.True(t, os.IsNotExist(statErr), "no call of a rejected batch may run")
}

func TestRunToolFailureIsFedBack(t *testing.T) {
	provider, _ := newProvider(t, tools.CoderTools)
	client := llmtest.NewMockClient("mock",
		llmtest.CallTool("c1", tools.ToolRunCmd, map[string]any{"command": "exit 3"}),
		llmtest.CallTool("c2", tools.ToolReadFile, map[string]any{"path": "../escape.txt"}),
		llmtest.Reply("done"),
	)

	out, err := New(client, nil).Run(context.Background(), &Config{ToolProvider: provider, Messages: startMessages()})
	require.NoError(t, err)
	assert.Equal(t, "done", out.Content)

	reqs := client.Requests()
	require.Len(t, reqs, 3)
	cmdResult := reqs[1].Messages[len(reqs[1].Messages)-1].ToolResults[0]
	assert.Contains(t, cmdResult.Content, `"exit_code":3`)

	readResult := reqs[2].Messages[len(reqs[2].Messages)-1].ToolResults[0]
	assert.True(t, readResult.IsError)
}

func TestRunMaxIterations(t *testing.T) {
	provider, _ := newProvider(t, tools.CoderTools)
	client := llmtest.NewMockClient("mock")
	for i := 0; i < 3; i++ {
		client.Push(llmtest.CallTool("c", tools.ToolGetCurrentDirectory, map[string]any{}))
	}

	out, err := New(client, nil).Run(context.Background(), &Config{
		ToolProvider:  provider,
		Messages:      startMessages(),
		MaxIterations: 3,
	})
	require.Error(t, err)
	assert.Equal(t, OutcomeMaxIterations, out.Kind)
	assert.ErrorIs(t, err, ErrMaxIterations)
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeUnknown))
	assert.False(t, llmerrors.IsToolValidation(err))
	assert.Equal(t, 3, out.ToolCalls)
}

func TestRunLLMErrorPassesThrough(t *testing.T) {
	provider, _ := newProvider(t, tools.CoderTools)
	boom := llmerrors.NewError(llmerrors.ErrorTypeAuth, "bad key")
	client := llmtest.NewMockClient("mock", llmtest.Fail(boom))

	out, err := New(client, nil).Run(context.Background(), &Config{ToolProvider: provider, Messages: startMessages()})
	assert.Equal(t, OutcomeLLMError, out.Kind)
	assert.Same(t, boom, err)
}

func TestRunProviderToolRejectionKind(t *testing.T) {
	provider, _ := newProvider(t, tools.CoderTools)
	client := llmtest.NewMockClient("mock", llmtest.Fail(llmerrors.NewToolValidationError("tool call validation failed")))

	out, err := New(client, nil).Run(context.Background(), &Config{ToolProvider: provider, Messages: startMessages()})
	assert.Equal(t, OutcomeToolValidation, out.Kind)
	assert.True(t, llmerrors.IsToolValidation(err))
}

func TestRunCanceledContext(t *testing.T) {
	provider, _ := newProvider(t, tools.CoderTools)
	client := llmtest.NewMockClient("mock", llmtest.Reply("never"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := New(client, nil).Run(ctx, &Config{ToolProvider: provider, Messages: startMessages()})
	assert.Equal(t, OutcomeCanceled, out.Kind)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, client.Requests())
}

func TestRunRequiresProvider(t *testing.T) {
	_, err := New(llmtest.NewMockClient("mock"), nil).Run(context.Background(), &Config{})
	assert.ErrorIs(t, err, ErrNoToolProvider)
}

func TestFormatToolResult(t *testing.T) {
	content, isErr := formatToolResult(&tools.ExecResult{Content: `{"success":false,"error":"x"}`}, nil)
	assert.True(t, isErr)
	assert.Equal(t, `{"success":false,"error":"x"}`, content)

	_, isErr = formatToolResult(&tools.ExecResult{Content: `{"success":true}`}, nil)
	assert.False(t, isErr)

	content, isErr = formatToolResult(nil, errors.New("boom"))
	assert.True(t, isErr)
	assert.Equal(t, "Tool failed: boom", content)
}

func TestOutcomeKindString(t *testing.T) {
	assert.Equal(t, "ToolValidation", OutcomeToolValidation.String())
	assert.Equal(t, "OutcomeKind(42)", OutcomeKind(42).String())
}
