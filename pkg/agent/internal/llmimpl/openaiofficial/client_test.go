package openaiofficial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AkibDa/Code-Genesis/pkg/agent/llm"
	"github.com/AkibDa/Code-Genesis/pkg/tools"
)

func TestFlattenTranscriptIncludesToolTraffic(t *testing.T) {
	msgs := []llm.CompletionMessage{
		llm.NewSystemMessage("You are the coder."),
		llm.NewUserMessage("Implement main.py"),
		llm.NewAssistantMessage("", []llm.ToolCall{{ID: "c1", Name: "read_file", Parameters: map[string]any{"path": "main.py"}}}),
		llm.NewToolResultMessage([]llm.ToolResult{{ToolCallID: "c1", Content: `{"found":false}`, IsError: false}}),
	}

	text := flattenTranscript(msgs, llm.ToolChoiceAny)
	assert.Contains(t, text, "System: You are the coder.")
	assert.Contains(t, text, "User: Implement main.py")
	assert.Contains(t, text, `Assistant called tool read_file (id c1) with {"path":"main.py"}`)
	assert.Contains(t, text, `Tool result for call c1: {"found":false}`)
	assert.Contains(t, text, "must respond by calling one of the provided tools")
}

func TestConvertTools(t *testing.T) {
	defs := []tools.ToolDefinition{{
		Name:        "run_cmd",
		Description: "Run a shell command",
		InputSchema: tools.InputSchema{
			Type:       "object",
			Properties: map[string]tools.Property{"cmd": {Type: "string"}},
			Required:   []string{"cmd"},
		},
	}}

	out := convertTools(defs)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].OfFunction)
	assert.Equal(t, "run_cmd", out[0].OfFunction.Name)
	assert.Equal(t, "object", out[0].OfFunction.Parameters["type"])
	assert.Equal(t, []string{"cmd"}, out[0].OfFunction.Parameters["required"])
}
