package workflow

import (
	"context"
	"time"
)

// Model makes structured model calls.
type Model interface {
	// Invoke asks for a value matching schema and decodes it into out.
	// A missing or non-conforming value is a schema_validation llmerrors.Error.
	Invoke(ctx context.Context, schema Schema, prompt string, out any) error
}

// AgentRequest is one tool-using agent call.
type AgentRequest struct {
	SystemPrompt string
	// Messages are user turns, in order.
	Messages []string
	// Tools names the tools the agent may call.
	Tools []string
}

// Agent is a tool-using model that returns its final message.
type Agent interface {
	// Invoke runs the agent. A malformed or unknown tool invocation is a
	// tool_validation llmerrors.Error.
	Invoke(ctx context.Context, req AgentRequest) (string, error)
}

// ProjectFiles is the project root the agents write into.
type ProjectFiles interface {
	// ReadFile returns a file's content, or an error wrapping tools.ErrNotFound.
	ReadFile(ctx context.Context, path string) (string, error)
	// Prepare creates the root, removing earlier contents first when clear is set.
	Prepare(clear bool) error
}

// Recorder receives workflow metrics.
type Recorder interface {
	ObserveTransition(from, to Node)
	ObserveStage(node Node, duration time.Duration)
	IncStageError(node Node, class ErrorClass)
	IncRun(result string)
}

// Checkpoint is the state saved after a transition.
type Checkpoint struct {
	RunID string
	Step  int
	// Next is the node the run continues from.
	Next      Node
	State     WorkflowState
	UpdatedAt time.Time
}

// CheckpointStore persists run progress so a run can be resumed.
type CheckpointStore interface {
	CreateRun(ctx context.Context, runID, userPrompt string) error
	SaveCheckpoint(ctx context.Context, cp *Checkpoint) error
	LatestCheckpoint(ctx context.Context, runID string) (*Checkpoint, error)
	FinishRun(ctx context.Context, runID string, status Status, runErr error) error
}

// Run results reported to Recorder.IncRun.
const (
	RunApproved = "approved"
	RunFailed   = "failed"
	RunAborted  = "recursion_limit"
	RunCanceled = "canceled"
)

type nopRecorder struct{}

func (nopRecorder) ObserveTransition(_, _ Node)          {}
func (nopRecorder) ObserveStage(_ Node, _ time.Duration) {}
func (nopRecorder) IncStageError(_ Node, _ ErrorClass)   {}
func (nopRecorder) IncRun(_ string)                      {}

// Recorders fans every observation out to each non-nil recorder in order.
func Recorders(recs ...Recorder) Recorder {
	out := make(multiRecorder, 0, len(recs))
	for _, r := range recs {
		if r != nil {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nopRecorder{}
	}
	return out
}

type multiRecorder []Recorder

func (m multiRecorder) ObserveTransition(from, to Node) {
	for _, r := range m {
		r.ObserveTransition(from, to)
	}
}

func (m multiRecorder) ObserveStage(node Node, duration time.Duration) {
	for _, r := range m {
		r.ObserveStage(node, duration)
	}
}

func (m multiRecorder) IncStageError(node Node, class ErrorClass) {
	for _, r := range m {
		r.IncStageError(node, class)
	}
}

func (m multiRecorder) IncRun(result string) {
	for _, r := range m {
		r.IncRun(result)
	}
}
