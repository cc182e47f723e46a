package tools

import (
	"context"
	"errors"
	"fmt"
)

// ReadFileTool returns the content of a project file.
type ReadFileTool struct {
	workspace *Workspace
}

// NewReadFileTool creates a new read_file tool.
func NewReadFileTool(workspace *Workspace) *ReadFileTool {
	return &ReadFileTool{workspace: workspace}
}

// Name returns the tool name.
func (t *ReadFileTool) Name() string {
	return ToolReadFile
}

// PromptDocumentation returns formatted tool documentation for prompts.
func (t *ReadFileTool) PromptDocumentation() string {
	return `- **read_file** - Read the content of a file in the project
  - Parameters: path (string, REQUIRED): path relative to the project root
  - A missing file is not an error: the result has found=false and empty content`
}

// Definition returns the tool definition for LLM.
func (t *ReadFileTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolReadFile,
		Description: "Read the content of a file in the project.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"path": {
					Type:        "string",
					Description: "Path relative to the project root",
				},
			},
			Required: []string{"path"},
		},
	}
}

// Exec executes the tool with the given arguments.
func (t *ReadFileTool) Exec(ctx context.Context, args map[string]any) (*ExecResult, error) {
	path, _ := stringArg(args, "path")

	content, err := t.workspace.ReadFile(ctx, path)
	if errors.Is(err, ErrNotFound) {
		return successResult(map[string]any{
			"path":    path,
			"found":   false,
			"content": "",
		})
	}
	if err != nil {
		return errorResult(fmt.Sprintf("cannot read %s: %v", path, err))
	}

	return successResult(map[string]any{
		"path":    path,
		"found":   true,
		"content": content,
	})
}
