// Package toolloop runs a tool-using model conversation: the model is sent the
// history and tool definitions, its tool calls are validated and executed, and the
// results are fed back until it answers without calling a tool.
package toolloop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AkibDa/Code-Genesis/pkg/agent/llm"
	"github.com/AkibDa/Code-Genesis/pkg/agent/llmerrors"
	"github.com/AkibDa/Code-Genesis/pkg/logx"
	"github.com/AkibDa/Code-Genesis/pkg/tools"
)

// DefaultMaxIterations bounds the model turns of one run.
const DefaultMaxIterations = 25

// ToolProvider is what the loop needs from a tool provider.
type ToolProvider interface {
	Definitions() []tools.ToolDefinition
	Validate(name string, args map[string]any) error
	Get(name string) (tools.Tool, error)
}

// ToolLoop drives one model through tool-calling turns.
type ToolLoop struct {
	llmClient llm.LLMClient
	logger    *logx.Logger
}

// New creates a new ToolLoop instance.
func New(llmClient llm.LLMClient, logger *logx.Logger) *ToolLoop {
	if logger == nil {
		logger = logx.NewLogger("toolloop")
	}
	return &ToolLoop{
		llmClient: llmClient,
		logger:    logger,
	}
}

// Config defines how the tool loop behaves.
//
//nolint:govet // fieldalignment: ordered for clarity
type Config struct {
	ToolProvider ToolProvider

	// Messages is the starting conversation, usually a system and a user message.
	Messages []llm.CompletionMessage

	MaxIterations int
	MaxTokens     int
	Temperature   float32

	// DebugLogging logs every message sent to the model.
	DebugLogging bool
}

// Run executes the loop. The returned error equals Outcome.Err:
//   - tool_validation llmerrors.Error when the model makes an invalid call,
//   - unknown llmerrors.Error wrapping ErrMaxIterations when turns run out,
//   - the client's error, unchanged, when a completion fails.
func (tl *ToolLoop) Run(ctx context.Context, cfg *Config) (Outcome, error) {
	if cfg.ToolProvider == nil {
		return Outcome{Kind: OutcomeLLMError, Err: ErrNoToolProvider}, ErrNoToolProvider
	}
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = llm.DefaultMaxTokens
	}

	toolDefs := cfg.ToolProvider.Definitions()
	messages := append([]llm.CompletionMessage(nil), cfg.Messages...)
	out := Outcome{}

	for iteration := 1; iteration <= maxIterations; iteration++ {
		out.Iteration = iteration
		if err := ctx.Err(); err != nil {
			return tl.finish(out, messages, OutcomeCanceled, err)
		}

		req := llm.CompletionRequest{
			Messages:    messages,
			Tools:       toolDefs,
			MaxTokens:   maxTokens,
			Temperature: cfg.Temperature,
		}

		tl.logger.Info("🔄 LLM call to model '%s' with %d messages, %d tools (iteration %d)",
			tl.llmClient.GetModelName(), len(messages), len(toolDefs), iteration)
		if cfg.DebugLogging {
			tl.logMessages(messages)
		}

		start := time.Now()
		resp, err := tl.llmClient.Complete(ctx, req)
		if err != nil {
			tl.logger.Error("❌ LLM call failed after %.3gs: %v", time.Since(start).Seconds(), err)
			kind := OutcomeLLMError
			switch {
			case errors.Is(err, context.Canceled):
				kind = OutcomeCanceled
			case llmerrors.IsToolValidation(err):
				kind = OutcomeToolValidation
			}
			return tl.finish(out, messages, kind, err)
		}
		tl.logger.Info("✅ LLM call completed in %.3gs, response length: %d chars, tool calls: %d",
			time.Since(start).Seconds(), len(resp.Content), len(resp.ToolCalls))

		messages = append(messages, llm.NewAssistantMessage(resp.Content, resp.ToolCalls))

		if len(resp.ToolCalls) == 0 {
			out.Content = resp.Content
			return tl.finish(out, messages, OutcomeSuccess, nil)
		}

		// Validate the whole turn before running any of it, so an invalid call
		// never leaves a half-executed batch behind.
		for i := range resp.ToolCalls {
			call := &resp.ToolCalls[i]
			if verr := cfg.ToolProvider.Validate(call.Name, call.Parameters); verr != nil {
				tl.logger.Warn("Rejected tool call %s: %v", call.Name, verr)
				return tl.finish(out, messages, OutcomeToolValidation,
					llmerrors.NewErrorWithCause(llmerrors.ErrorTypeToolValidation, verr, verr.Error()))
			}
		}

		results := make([]llm.ToolResult, 0, len(resp.ToolCalls))
		for i := range resp.ToolCalls {
			call := &resp.ToolCalls[i]
			result, err := tl.execute(ctx, cfg.ToolProvider, call)
			if err != nil {
				return tl.finish(out, messages, OutcomeCanceled, err)
			}
			out.ToolCalls++
			results = append(results, result)
		}
		messages = append(messages, llm.NewToolResultMessage(results))
	}

	tl.logger.Warn("⚠️  Maximum tool iterations (%d) reached", maxIterations)
	return tl.finish(out, messages, OutcomeMaxIterations,
		llmerrors.NewErrorWithCause(llmerrors.ErrorTypeUnknown, ErrMaxIterations,
			fmt.Sprintf("model made tool calls for %d turns without a final answer", maxIterations)))
}

func (tl *ToolLoop) finish(out Outcome, messages []llm.CompletionMessage, kind OutcomeKind, err error) (Outcome, error) {
	out.Kind = kind
	out.Messages = messages
	out.Err = err
	return out, err
}

// execute runs one validated call. Tool failures become error results for the
// model; only context cancellation is returned as an error.
func (tl *ToolLoop) execute(ctx context.Context, provider ToolProvider, call *llm.ToolCall) (llm.ToolResult, error) {
	tool, err := provider.Get(call.Name)
	if err != nil {
		return llm.ToolResult{ToolCallID: call.ID, Content: err.Error(), IsError: true}, nil
	}

	start := time.Now()
	res, err := tool.Exec(ctx, call.Parameters)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return llm.ToolResult{}, fmt.Errorf("tool %s interrupted: %w", call.Name, ctxErr)
		}
		tl.logger.Error("Tool %s failed after %.3fs: %v", call.Name, time.Since(start).Seconds(), err)
	} else {
		tl.logger.Info("Tool %s completed in %.3fs", call.Name, time.Since(start).Seconds())
	}

	content, isError := formatToolResult(res, err)
	return llm.ToolResult{ToolCallID: call.ID, Content: content, IsError: isError}, nil
}

// formatToolResult renders a tool outcome for the model. JSON results carrying
// "success": false are flagged as errors.
func formatToolResult(result *tools.ExecResult, err error) (string, bool) {
	if err != nil {
		return fmt.Sprintf("Tool failed: %v", err), true
	}
	if result == nil {
		return "", false
	}

	var status struct {
		Success *bool `json:"success"`
	}
	if json.Unmarshal([]byte(result.Content), &status) == nil && status.Success != nil && !*status.Success {
		return result.Content, true
	}
	return result.Content, false
}

func (tl *ToolLoop) logMessages(messages []llm.CompletionMessage) {
	tl.logger.Info("📝 DEBUG - Messages sent to LLM:")
	for i := range messages {
		msg := &messages[i]
		tl.logger.Info("  [%d] Role: %s, Content: %q, ToolCalls: %d, ToolResults: %d",
			i, msg.Role, llmerrors.SanitizePrompt(msg.Content, 200), len(msg.ToolCalls), len(msg.ToolResults))
		for j := range msg.ToolCalls {
			tc := &msg.ToolCalls[j]
			tl.logger.Info("    ToolCall[%d] ID=%s Name=%s Params=%v", j, tc.ID, tc.Name, tc.Parameters)
		}
		for j := range msg.ToolResults {
			tr := &msg.ToolResults[j]
			tl.logger.Info("    ToolResult[%d] ID=%s IsError=%v Content=%q",
				j, tr.ToolCallID, tr.IsError, llmerrors.SanitizePrompt(tr.Content, 200))
		}
	}
}
