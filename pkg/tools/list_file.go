package tools

import (
	"context"
	"fmt"
)

// ListFileTool lists the files below a project directory.
type ListFileTool struct {
	workspace *Workspace
}

// NewListFileTool creates a new list_file tool.
func NewListFileTool(workspace *Workspace) *ListFileTool {
	return &ListFileTool{workspace: workspace}
}

// Name returns the tool name.
func (t *ListFileTool) Name() string {
	return ToolListFile
}

// PromptDocumentation returns formatted tool documentation for prompts.
func (t *ListFileTool) PromptDocumentation() string {
	return `- **list_file** - List all files below a directory, recursively and sorted
  - Parameters: directory (string, optional, default "."): path relative to the project root`
}

// Definition returns the tool definition for LLM.
func (t *ListFileTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolListFile,
		Description: "List all files below a directory of the project, recursively, in sorted order.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"directory": {
					Type:        "string",
					Description: "Directory relative to the project root. Defaults to \".\".",
				},
			},
		},
	}
}

// Exec executes the tool with the given arguments.
func (t *ListFileTool) Exec(_ context.Context, args map[string]any) (*ExecResult, error) {
	directory, ok := stringArg(args, "directory")
	if !ok || directory == "" {
		directory = "."
	}

	files, err := t.workspace.List(directory)
	if err != nil {
		return errorResult(fmt.Sprintf("cannot list %s: %v", directory, err))
	}

	return successResult(map[string]any{
		"directory": directory,
		"files":     files,
	})
}
