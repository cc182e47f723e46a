package tools

import (
	"context"
	"fmt"
	"time"

	execpkg "github.com/AkibDa/Code-Genesis/pkg/exec"
)

// DefaultCommandTimeout bounds a single run_cmd invocation.
const DefaultCommandTimeout = 2 * time.Minute

// RunCmdTool runs a shell command in the project root.
type RunCmdTool struct {
	executor  execpkg.Executor
	workspace *Workspace
	timeout   time.Duration
}

// NewRunCmdTool creates a new run_cmd tool.
func NewRunCmdTool(executor execpkg.Executor, workspace *Workspace, timeout time.Duration) *RunCmdTool {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &RunCmdTool{
		executor:  executor,
		workspace: workspace,
		timeout:   timeout,
	}
}

// Name returns the tool name.
func (t *RunCmdTool) Name() string {
	return ToolRunCmd
}

// PromptDocumentation returns formatted tool documentation for prompts.
func (t *RunCmdTool) PromptDocumentation() string {
	return fmt.Sprintf(`- **run_cmd** - Run a shell command in the project root
  - Parameters: command (string, REQUIRED)
  - Returns stdout, stderr and exit_code; commands are killed after %s`, t.timeout)
}

// Definition returns the tool definition for LLM.
func (t *RunCmdTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolRunCmd,
		Description: "Run a shell command in the project root and return its stdout, stderr and exit code.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"command": {
					Type:        "string",
					Description: "Shell command line, run with sh -c",
				},
			},
			Required: []string{"command"},
		},
	}
}

// Exec executes the tool with the given arguments.
func (t *RunCmdTool) Exec(ctx context.Context, args map[string]any) (*ExecResult, error) {
	command, _ := stringArg(args, "command")
	if command == "" {
		return errorResult("command cannot be empty")
	}

	result, err := t.executor.Run(ctx, execpkg.ShellCommand(command), &execpkg.Opts{
		WorkDir: t.workspace.Root(),
		Timeout: t.timeout,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("run_cmd interrupted: %w", err)
		}
		return errorResult(fmt.Sprintf("command failed to start: %v", err))
	}

	return successResult(map[string]any{
		"stdout":    result.Stdout,
		"stderr":    result.Stderr,
		"exit_code": result.ExitCode,
	})
}
