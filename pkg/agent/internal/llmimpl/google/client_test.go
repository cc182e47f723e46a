package google

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/AkibDa/Code-Genesis/pkg/agent/llm"
	"github.com/AkibDa/Code-Genesis/pkg/tools"
)

func TestConvertMessagesResolvesFunctionNames(t *testing.T) {
	msgs := []llm.CompletionMessage{
		llm.NewSystemMessage("sys"),
		llm.NewUserMessage("start"),
		llm.NewAssistantMessage("", []llm.ToolCall{{ID: "abc", Name: "read_file", Parameters: map[string]any{"path": "x"}}}),
		llm.NewToolResultMessage([]llm.ToolResult{{ToolCallID: "abc", Content: "data"}}),
	}

	contents, system, err := convertMessages(msgs)
	require.NoError(t, err)
	assert.Equal(t, "sys", system)
	require.Len(t, contents, 3)
	assert.Equal(t, "model", contents[1].Role)
	require.NotNil(t, contents[1].Parts[0].FunctionCall)
	assert.Equal(t, "read_file", contents[1].Parts[0].FunctionCall.Name)

	resp := contents[2].Parts[0].FunctionResponse
	require.NotNil(t, resp)
	assert.Equal(t, "read_file", resp.Name)
	assert.Equal(t, "data", resp.Response["content"])
}

func TestConvertMessagesRejectsUnknownRole(t *testing.T) {
	_, _, err := convertMessages([]llm.CompletionMessage{{Role: "tool", Content: "x"}})
	assert.Error(t, err)
}

func TestConvertToolsNested(t *testing.T) {
	decls := convertTools([]tools.ToolDefinition{{
		Name: "submit_plan",
		InputSchema: tools.InputSchema{
			Type: "object",
			Properties: map[string]tools.Property{
				"files": {Type: "array", Items: &tools.Property{
					Type:       "object",
					Properties: map[string]tools.Property{"path": {Type: "string"}},
				}},
				"count": {Type: "integer"},
			},
			Required: []string{"files"},
		},
	}})

	require.Len(t, decls, 1)
	params := decls[0].Parameters
	assert.Equal(t, genai.TypeObject, params.Type)
	assert.Equal(t, genai.TypeArray, params.Properties["files"].Type)
	assert.Equal(t, genai.TypeString, params.Properties["files"].Items.Properties["path"].Type)
	assert.Equal(t, genai.TypeInteger, params.Properties["count"].Type)
}

func TestConvertFunctionCallsDefaultsID(t *testing.T) {
	calls := convertFunctionCalls([]*genai.FunctionCall{{Name: "list_file"}, nil})
	require.Len(t, calls, 1)
	assert.Equal(t, "list_file", calls[0].ID)
	assert.NotNil(t, calls[0].Parameters)
}
