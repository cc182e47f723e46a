package tools

import "context"

// GetCurrentDirectoryTool reports the project root.
type GetCurrentDirectoryTool struct {
	workspace *Workspace
}

// NewGetCurrentDirectoryTool creates a new get_current_directory tool.
func NewGetCurrentDirectoryTool(workspace *Workspace) *GetCurrentDirectoryTool {
	return &GetCurrentDirectoryTool{workspace: workspace}
}

// Name returns the tool name.
func (t *GetCurrentDirectoryTool) Name() string {
	return ToolGetCurrentDirectory
}

// PromptDocumentation returns formatted tool documentation for prompts.
func (t *GetCurrentDirectoryTool) PromptDocumentation() string {
	return `- **get_current_directory** - Return the absolute path of the project root
  - Parameters: none`
}

// Definition returns the tool definition for LLM.
func (t *GetCurrentDirectoryTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolGetCurrentDirectory,
		Description: "Return the absolute path of the project root directory.",
		InputSchema: InputSchema{
			Type:       "object",
			Properties: map[string]Property{},
		},
	}
}

// Exec executes the tool with the given arguments.
func (t *GetCurrentDirectoryTool) Exec(_ context.Context, _ map[string]any) (*ExecResult, error) {
	return successResult(map[string]any{
		"path": t.workspace.Root(),
	})
}
