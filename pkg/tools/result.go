package tools

import (
	"encoding/json"
	"fmt"
)

// successResult encodes fields plus success=true.
func successResult(fields map[string]any) (*ExecResult, error) {
	fields["success"] = true
	content, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return &ExecResult{Content: string(content)}, nil
}

// errorResult creates a JSON error response the model can read and act on.
func errorResult(msg string) (*ExecResult, error) {
	response := map[string]any{
		"success": false,
		"error":   msg,
	}
	content, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal error response: %w", err)
	}
	return &ExecResult{Content: string(content)}, nil
}

func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key].(string)
	return v, ok
}
