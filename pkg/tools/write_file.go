package tools

import (
	"context"
	"fmt"
)

// WriteFileTool replaces the full content of a project file.
type WriteFileTool struct {
	workspace *Workspace
}

// NewWriteFileTool creates a new write_file tool.
func NewWriteFileTool(workspace *Workspace) *WriteFileTool {
	return &WriteFileTool{workspace: workspace}
}

// Name returns the tool name.
func (t *WriteFileTool) Name() string {
	return ToolWriteFile
}

// PromptDocumentation returns formatted tool documentation for prompts.
func (t *WriteFileTool) PromptDocumentation() string {
	return `- **write_file** - Write the full and complete content of a file
  - Parameters: path (string, REQUIRED), content (string, REQUIRED)
  - Parent directories are created; an existing file is replaced`
}

// Definition returns the tool definition for LLM.
func (t *WriteFileTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolWriteFile,
		Description: "Write the full and complete content of a file in the project, replacing any existing content.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"path": {
					Type:        "string",
					Description: "Path relative to the project root",
				},
				"content": {
					Type:        "string",
					Description: "The complete new file content",
				},
			},
			Required: []string{"path", "content"},
		},
	}
}

// Exec executes the tool with the given arguments.
func (t *WriteFileTool) Exec(_ context.Context, args map[string]any) (*ExecResult, error) {
	path, _ := stringArg(args, "path")
	content, _ := stringArg(args, "content")

	if err := t.workspace.WriteFile(path, content); err != nil {
		return errorResult(fmt.Sprintf("cannot write %s: %v", path, err))
	}

	return successResult(map[string]any{
		"path":          path,
		"bytes_written": len(content),
	})
}
