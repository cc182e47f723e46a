// Package templates provides the prompt templates of the planner, architect, coder and debugger.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed *.tpl.md
var templateFS embed.FS

// TemplateData holds the data for template rendering. Templates read only the fields they need.
type TemplateData struct {
	UserPrompt        string `json:"user_prompt,omitempty"`
	Plan              string `json:"plan,omitempty"`
	SchemaName        string `json:"schema_name,omitempty"`
	TaskDescription   string `json:"task_description,omitempty"`
	FilePath          string `json:"file_path,omitempty"`
	ExistingContent   string `json:"existing_content,omitempty"`
	BugReport         string `json:"bug_report,omitempty"`
	ToolDocumentation string `json:"tool_documentation,omitempty"`
	ApprovalToken     string `json:"approval_token,omitempty"`
	// Correction is the rendered correction preamble, empty when no error is pending.
	Correction string `json:"correction,omitempty"`
	LastError  string `json:"last_error,omitempty"`
}

// StateTemplate names one prompt template.
type StateTemplate string

const (
	// PlannerTemplate asks for a project plan.
	PlannerTemplate StateTemplate = "planner.tpl.md"
	// ArchitectTemplate asks for the implementation steps of a plan.
	ArchitectTemplate StateTemplate = "architect.tpl.md"
	// CoderSystemTemplate is the system prompt of the coding agent.
	CoderSystemTemplate StateTemplate = "coder_system.tpl.md"
	// CoderTaskTemplate is the per-step prompt of the coding agent.
	CoderTaskTemplate StateTemplate = "coder_task.tpl.md"
	// DebuggerSystemTemplate is the system prompt of the review agent.
	DebuggerSystemTemplate StateTemplate = "debugger_system.tpl.md"
	// DebuggerReviewTemplate asks the review agent to check the project.
	DebuggerReviewTemplate StateTemplate = "debugger_review.tpl.md"
	// DebuggerFixTemplate turns a bug report into corrective steps.
	DebuggerFixTemplate StateTemplate = "debugger_fix.tpl.md"
	// CorrectionTemplate is prepended after a failed tool invocation.
	CorrectionTemplate StateTemplate = "correction.tpl.md"
)

// Renderer handles template rendering for workflow states.
type Renderer struct {
	templates map[StateTemplate]*template.Template
}

// NewRenderer creates a new template renderer with every template parsed.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{
		templates: make(map[StateTemplate]*template.Template),
	}

	templateNames := []StateTemplate{
		PlannerTemplate,
		ArchitectTemplate,
		CoderSystemTemplate,
		CoderTaskTemplate,
		DebuggerSystemTemplate,
		DebuggerReviewTemplate,
		DebuggerFixTemplate,
		CorrectionTemplate,
	}

	for _, name := range templateNames {
		content, err := templateFS.ReadFile(string(name))
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", name, err)
		}

		tmpl, err := template.New(string(name)).Option("missingkey=error").Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}

		r.templates[name] = tmpl
	}

	return r, nil
}

// Render renders the specified template with the given data.
func (r *Renderer) Render(templateName StateTemplate, data *TemplateData) (string, error) {
	tmpl, exists := r.templates[templateName]
	if !exists {
		return "", fmt.Errorf("template %s not found", templateName)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", templateName, err)
	}

	return strings.TrimSpace(buf.String()), nil
}

// GetAvailableTemplates returns a list of all available templates.
func (r *Renderer) GetAvailableTemplates() []StateTemplate {
	templates := make([]StateTemplate, 0, len(r.templates))
	for name := range r.templates {
		templates = append(templates, name)
	}
	return templates
}
