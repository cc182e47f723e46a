// Package tools implements the five file and shell tools available to the coding
// and review agents, rooted at a single project directory.
package tools

import "context"

// Property describes one parameter of a tool's input schema.
type Property struct {
	Items       *Property           `json:"items,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
	Type        string              `json:"type"`
	Description string              `json:"description,omitempty"`
	Enum        []string            `json:"enum,omitempty"`
}

// InputSchema is the JSON schema of a tool's arguments object.
type InputSchema struct {
	Properties map[string]Property `json:"properties"`
	Type       string              `json:"type"`
	Required   []string            `json:"required,omitempty"`
}

// ToolDefinition is what a model is told about a tool.
type ToolDefinition struct {
	InputSchema InputSchema `json:"input_schema"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
}

// ExecResult carries the JSON-encoded outcome of a tool call back to the model.
type ExecResult struct {
	Content string
}

// Tool is a single callable tool.
type Tool interface {
	Name() string
	Definition() ToolDefinition
	PromptDocumentation() string
	// Exec runs the tool. Expected failures (missing file, non-zero exit) are
	// reported inside the result with success=false; a returned error means
	// the tool itself could not produce a result.
	Exec(ctx context.Context, args map[string]any) (*ExecResult, error)
}

// Schema renders the property as a plain JSON-schema map for provider SDKs
// that take untyped parameters.
func (p *Property) Schema() map[string]any {
	out := map[string]any{"type": p.Type}
	if p.Description != "" {
		out["description"] = p.Description
	}
	if len(p.Enum) > 0 {
		out["enum"] = p.Enum
	}
	if p.Items != nil {
		out["items"] = p.Items.Schema()
	}
	if len(p.Properties) > 0 {
		props := make(map[string]any, len(p.Properties))
		for name := range p.Properties {
			child := p.Properties[name]
			props[name] = child.Schema()
		}
		out["properties"] = props
	}
	return out
}

// PropertiesSchema renders the schema's properties keyed by argument name.
func (s *InputSchema) PropertiesSchema() map[string]any {
	props := make(map[string]any, len(s.Properties))
	for name := range s.Properties {
		prop := s.Properties[name]
		props[name] = prop.Schema()
	}
	return props
}

// Schema renders the whole input schema as a JSON-schema object.
func (s *InputSchema) Schema() map[string]any {
	out := map[string]any{
		"type":       "object",
		"properties": s.PropertiesSchema(),
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	return out
}
