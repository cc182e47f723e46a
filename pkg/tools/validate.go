package tools

import (
	"fmt"
	"strings"
)

// CallError describes a tool call that cannot be dispatched.
type CallError struct {
	Tool    string
	Reason  string
	Allowed []string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("invalid call to tool %q: %s (allowed tools: %s)",
		e.Tool, e.Reason, strings.Join(e.Allowed, ", "))
}

// Validate checks a call against the tool's input schema before execution:
// the tool must be allowed, required arguments present and argument types correct.
// Unknown extra arguments are ignored.
func (p *ToolProvider) Validate(name string, args map[string]any) error {
	tool, err := p.Get(name)
	if err != nil {
		return err
	}
	schema := tool.Definition().InputSchema

	for _, required := range schema.Required {
		if _, ok := args[required]; !ok {
			return &CallError{Tool: name, Reason: fmt.Sprintf("missing required argument %q", required), Allowed: p.Names()}
		}
	}

	for key, value := range args {
		prop, known := schema.Properties[key]
		if !known {
			continue
		}
		if !matchesType(prop.Type, value) {
			return &CallError{
				Tool:    name,
				Reason:  fmt.Sprintf("argument %q must be of type %s, got %T", key, prop.Type, value),
				Allowed: p.Names(),
			}
		}
	}
	return nil
}

// matchesType reports whether a JSON-decoded value fits a schema type.
func matchesType(schemaType string, value any) bool {
	switch schemaType {
	case "string":
		_, ok := value.(string)
		return ok
	case "integer":
		switch v := value.(type) {
		case int, int64:
			return true
		case float64:
			return v == float64(int64(v))
		}
		return false
	case "number":
		switch value.(type) {
		case int, int64, float64:
			return true
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}
