package toolloop

import (
	"fmt"

	"github.com/AkibDa/Code-Genesis/pkg/agent/llm"
)

// OutcomeKind categorizes how a loop run ended.
type OutcomeKind int

const (
	// OutcomeSuccess means the model produced a final message without tool calls.
	OutcomeSuccess OutcomeKind = iota

	// OutcomeToolValidation means the model issued a call that failed validation
	// (unknown tool, missing or mistyped argument). The loop stops without executing it.
	OutcomeToolValidation

	// OutcomeMaxIterations means MaxIterations turns passed without a final message.
	OutcomeMaxIterations

	// OutcomeLLMError means the client failed.
	OutcomeLLMError

	// OutcomeCanceled means the context ended mid-loop.
	OutcomeCanceled
)

// String returns human-readable name for OutcomeKind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "Success"
	case OutcomeToolValidation:
		return "ToolValidation"
	case OutcomeMaxIterations:
		return "MaxIterations"
	case OutcomeLLMError:
		return "LLMError"
	case OutcomeCanceled:
		return "Canceled"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", k)
	}
}

// Outcome is the result of one loop run.
//
//nolint:govet // field order kept for readability
type Outcome struct {
	Kind OutcomeKind

	// Content is the model's final message. Only set for OutcomeSuccess.
	Content string

	// Messages is the full conversation, including tool traffic.
	Messages []llm.CompletionMessage

	// Err is non-nil for every kind except OutcomeSuccess.
	Err error

	// Iteration is the 1-indexed turn at which the loop stopped.
	Iteration int

	// ToolCalls counts tool executions across all turns.
	ToolCalls int
}
