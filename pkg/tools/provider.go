package tools

import (
	"fmt"
	"strings"
	"time"

	execpkg "github.com/AkibDa/Code-Genesis/pkg/exec"
)

// Toolset builds tool providers over one workspace.
type Toolset struct {
	workspace      *Workspace
	executor       execpkg.Executor
	commandTimeout time.Duration
}

// NewToolset creates a toolset. A nil executor runs commands locally.
func NewToolset(workspace *Workspace, executor execpkg.Executor, commandTimeout time.Duration) *Toolset {
	if executor == nil {
		executor = execpkg.NewLocalExec()
	}
	return &Toolset{
		workspace:      workspace,
		executor:       executor,
		commandTimeout: commandTimeout,
	}
}

// Workspace returns the workspace the tools operate in.
func (s *Toolset) Workspace() *Workspace {
	return s.workspace
}

func (s *Toolset) build(name string) (Tool, error) {
	switch name {
	case ToolReadFile:
		return NewReadFileTool(s.workspace), nil
	case ToolWriteFile:
		return NewWriteFileTool(s.workspace), nil
	case ToolListFile:
		return NewListFileTool(s.workspace), nil
	case ToolGetCurrentDirectory:
		return NewGetCurrentDirectoryTool(s.workspace), nil
	case ToolRunCmd:
		return NewRunCmdTool(s.executor, s.workspace, s.commandTimeout), nil
	default:
		return nil, fmt.Errorf("unknown tool %q", name)
	}
}

// Provider returns a provider exposing only the named tools.
func (s *Toolset) Provider(allowed []string) (*ToolProvider, error) {
	p := &ToolProvider{
		tools: make(map[string]Tool, len(allowed)),
	}
	for _, name := range allowed {
		if _, dup := p.tools[name]; dup {
			continue
		}
		tool, err := s.build(name)
		if err != nil {
			return nil, err
		}
		p.tools[name] = tool
		p.order = append(p.order, name)
	}
	return p, nil
}

// ToolProvider holds the tools one agent is allowed to call.
type ToolProvider struct {
	tools map[string]Tool
	order []string
}

// Names returns the allowed tool names in registration order.
func (p *ToolProvider) Names() []string {
	return append([]string(nil), p.order...)
}

// Get retrieves an allowed tool.
func (p *ToolProvider) Get(name string) (Tool, error) {
	tool, ok := p.tools[name]
	if !ok {
		return nil, &CallError{Tool: name, Reason: "tool is not available", Allowed: p.Names()}
	}
	return tool, nil
}

// Definitions returns the definitions of all allowed tools.
func (p *ToolProvider) Definitions() []ToolDefinition {
	defs := make([]ToolDefinition, 0, len(p.order))
	for _, name := range p.order {
		defs = append(defs, p.tools[name].Definition())
	}
	return defs
}

// GenerateToolDocumentation renders the prompt documentation of every allowed tool.
func (p *ToolProvider) GenerateToolDocumentation() string {
	if len(p.order) == 0 {
		return "No tools available"
	}
	var doc strings.Builder
	doc.WriteString("## Available Tools\n\n")
	for _, name := range p.order {
		doc.WriteString(p.tools[name].PromptDocumentation())
		doc.WriteString("\n")
	}
	doc.WriteString("\n")
	doc.WriteString(PromptDocumentation(p.order))
	return doc.String()
}

// PromptDocumentation states the exact tool vocabulary an agent may use.
func PromptDocumentation(names []string) string {
	return fmt.Sprintf("You may call ONLY these tools, using these exact names: %s. "+
		"No other tool names or name prefixes (for example \"repo_browser.\" or \"functions.\") are valid.",
		strings.Join(names, ", "))
}
