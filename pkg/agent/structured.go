package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/AkibDa/Code-Genesis/pkg/agent/llm"
	"github.com/AkibDa/Code-Genesis/pkg/agent/llmerrors"
	"github.com/AkibDa/Code-Genesis/pkg/logx"
	"github.com/AkibDa/Code-Genesis/pkg/tools"
	"github.com/AkibDa/Code-Genesis/pkg/workflow"
)

// StructuredModel implements workflow.Model. The schema is offered as the only tool
// and the model is forced to call it; the call's arguments are the value.
type StructuredModel struct {
	client      llm.LLMClient
	validate    *validator.Validate
	logger      *logx.Logger
	maxTokens   int
	temperature float32
}

// NewStructuredModel creates a structured model over client.
func NewStructuredModel(client llm.LLMClient, maxTokens int, temperature float32, logger *logx.Logger) *StructuredModel {
	if maxTokens <= 0 {
		maxTokens = llm.DefaultMaxTokens
	}
	if logger == nil {
		logger = logx.NewLogger("structured")
	}
	return &StructuredModel{
		client:      client,
		validate:    validator.New(),
		logger:      logger,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

// Invoke implements workflow.Model. Transport failures are returned unchanged;
// a missing, undecodable or invalid value is a schema_validation error.
func (m *StructuredModel) Invoke(ctx context.Context, schema workflow.Schema, prompt string, out any) error {
	req := llm.CompletionRequest{
		Messages: []llm.CompletionMessage{llm.NewUserMessage(prompt)},
		Tools: []tools.ToolDefinition{{
			Name:        schema.Name,
			Description: schema.Description,
			InputSchema: schema.InputSchema,
		}},
		ToolChoice:  llm.ToolChoiceAny,
		MaxTokens:   m.maxTokens,
		Temperature: m.temperature,
	}

	m.logger.Debug("Structured call %s with prompt: %s", schema.Name, llmerrors.SanitizePrompt(prompt, 2000))
	resp, err := m.client.Complete(ctx, req)
	if err != nil {
		return err //nolint:wrapcheck // callers classify the client's error
	}

	raw, err := payload(schema.Name, resp)
	if err != nil {
		return llmerrors.NewSchemaValidationError(err, fmt.Sprintf("%s: %v", schema.Name, err))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return llmerrors.NewSchemaValidationError(err, fmt.Sprintf("%s: value does not match schema: %v", schema.Name, err))
	}
	if err := m.validate.Struct(out); err != nil {
		var invalid *validator.InvalidValidationError
		if !errors.As(err, &invalid) {
			return llmerrors.NewSchemaValidationError(err, fmt.Sprintf("%s: %s", schema.Name, describeValidation(err)))
		}
	}
	return nil
}

// payload returns the JSON value of the response: the arguments of the schema's
// tool call, or else the first JSON object in the text.
func payload(toolName string, resp llm.CompletionResponse) (json.RawMessage, error) {
	for i := range resp.ToolCalls {
		call := &resp.ToolCalls[i]
		if call.Name != toolName && len(resp.ToolCalls) > 1 {
			continue
		}
		if len(call.Parameters) == 0 {
			return nil, fmt.Errorf("tool call %s carried no arguments", call.Name)
		}
		data, err := json.Marshal(call.Parameters)
		if err != nil {
			return nil, fmt.Errorf("failed to encode arguments of %s: %w", call.Name, err)
		}
		return data, nil
	}

	start := strings.IndexByte(resp.Content, '{')
	if start < 0 {
		return nil, errors.New("model returned no value")
	}
	var raw json.RawMessage
	if err := json.NewDecoder(strings.NewReader(resp.Content[start:])).Decode(&raw); err != nil {
		return nil, fmt.Errorf("model returned malformed JSON: %w", err)
	}
	return raw, nil
}

func describeValidation(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// SchemaRouter implements workflow.Model by sending each schema to its own model,
// so the planner and architect can use different models.
type SchemaRouter struct {
	routes   map[string]workflow.Model
	fallback workflow.Model
}

// NewSchemaRouter routes schemas by name; unrouted schemas go to fallback.
func NewSchemaRouter(fallback workflow.Model, routes map[string]workflow.Model) *SchemaRouter {
	return &SchemaRouter{routes: routes, fallback: fallback}
}

// Invoke implements workflow.Model.
func (r *SchemaRouter) Invoke(ctx context.Context, schema workflow.Schema, prompt string, out any) error {
	if m, ok := r.routes[schema.Name]; ok {
		return m.Invoke(ctx, schema, prompt, out) //nolint:wrapcheck // routing is transparent
	}
	if r.fallback == nil {
		return fmt.Errorf("no model configured for %s", schema.Name)
	}
	return r.fallback.Invoke(ctx, schema, prompt, out) //nolint:wrapcheck // routing is transparent
}
