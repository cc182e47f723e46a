package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AkibDa/Code-Genesis/pkg/agent/middleware/resilience/retry"
	"github.com/AkibDa/Code-Genesis/pkg/logx"
	"github.com/AkibDa/Code-Genesis/pkg/templates"
	"github.com/AkibDa/Code-Genesis/pkg/tools"
)

// DefaultRecursionLimit bounds the transitions of one run.
const DefaultRecursionLimit = 100

// Deps are the collaborators of an Engine. Model, both agents and Files are required.
type Deps struct {
	Model         Model
	CoderAgent    Agent
	DebuggerAgent Agent
	Files         ProjectFiles

	// Optional.
	Prompts     *templates.Renderer
	Logger      *logx.Logger
	Recorder    Recorder
	Checkpoints CheckpointStore
}

// Options control engine behavior.
type Options struct {
	Retry          retry.Config
	ReviewMatch    ReviewMatch
	ClearBeforeRun bool
	CoderTools     []string
	DebuggerTools  []string
}

// DefaultOptions returns options matching the default configuration.
func DefaultOptions() Options {
	return Options{
		Retry:         retry.DefaultConfig,
		ReviewMatch:   ReviewExact,
		CoderTools:    tools.CoderTools,
		DebuggerTools: tools.DebuggerTools,
	}
}

// Engine runs the workflow graph. It is not safe for concurrent runs.
type Engine struct {
	model         Model
	coderAgent    Agent
	debuggerAgent Agent
	files         ProjectFiles
	prompts       *templates.Renderer
	logger        *logx.Logger
	loggers       map[Node]*logx.Logger
	recorder      Recorder
	checkpoints   CheckpointStore
	policy        *retry.Policy
	opts          Options
	stages        map[Node]stage
}

// NewEngine creates an engine from its collaborators.
func NewEngine(deps Deps, opts Options) (*Engine, error) {
	switch {
	case deps.Model == nil:
		return nil, errors.New("engine requires a model")
	case deps.CoderAgent == nil:
		return nil, errors.New("engine requires a coder agent")
	case deps.DebuggerAgent == nil:
		return nil, errors.New("engine requires a debugger agent")
	case deps.Files == nil:
		return nil, errors.New("engine requires project files")
	}

	if opts.ReviewMatch == "" {
		opts.ReviewMatch = ReviewExact
	}
	if len(opts.CoderTools) == 0 {
		opts.CoderTools = tools.CoderTools
	}
	if len(opts.DebuggerTools) == 0 {
		opts.DebuggerTools = tools.DebuggerTools
	}

	e := &Engine{
		model:         deps.Model,
		coderAgent:    deps.CoderAgent,
		debuggerAgent: deps.DebuggerAgent,
		files:         deps.Files,
		prompts:       deps.Prompts,
		logger:        deps.Logger,
		recorder:      deps.Recorder,
		checkpoints:   deps.Checkpoints,
		opts:          opts,
	}
	if e.prompts == nil {
		renderer, err := templates.NewRenderer()
		if err != nil {
			return nil, fmt.Errorf("failed to load prompt templates: %w", err)
		}
		e.prompts = renderer
	}
	if e.logger == nil {
		e.logger = logx.NewLogger("engine")
	}
	if e.recorder == nil {
		e.recorder = nopRecorder{}
	}

	e.policy = retry.NewPolicy(opts.Retry, retry.Always)
	e.policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		e.logger.Warn("🔄 Attempt %d failed (%v), retrying in %s", attempt, err, delay.Round(time.Millisecond))
	}

	e.stages = map[Node]stage{
		NodePlanning:     e.planner,
		NodeArchitecting: e.architect,
		NodeCoding:       e.coder,
		NodeReviewing:    e.debugger,
	}
	e.loggers = make(map[Node]*logx.Logger, len(e.stages))
	for node := range e.stages {
		e.loggers[node] = e.logger.WithAgentID(node.AgentName())
	}
	return e, nil
}

// Run executes a new workflow for userPrompt with a fresh run ID.
func (e *Engine) Run(ctx context.Context, userPrompt string, recursionLimit int) (WorkflowState, error) {
	return e.RunWithID(ctx, uuid.NewString(), userPrompt, recursionLimit)
}

// RunWithID executes a new workflow under the given run ID. It returns the final
// state; on failure the state reached so far is returned with a *StageError.
func (e *Engine) RunWithID(ctx context.Context, runID, userPrompt string, recursionLimit int) (WorkflowState, error) {
	state := WorkflowState{UserPrompt: userPrompt}
	if strings.TrimSpace(userPrompt) == "" {
		return state, ErrEmptyPrompt
	}
	if recursionLimit < 1 {
		return state, fmt.Errorf("recursion limit must be at least 1, got %d", recursionLimit)
	}
	if err := e.files.Prepare(e.opts.ClearBeforeRun); err != nil {
		return state, err
	}
	if e.checkpoints != nil {
		if err := e.checkpoints.CreateRun(ctx, runID, userPrompt); err != nil {
			return state, fmt.Errorf("failed to record run %s: %w", runID, err)
		}
	}

	e.logger.Info("🚀 Run %s started (recursion limit %d)", runID, recursionLimit)
	return e.drive(ctx, runID, &state, NodePlanning, 0, recursionLimit)
}

// Resume continues a checkpointed run from its latest checkpoint. The recursion
// limit bounds the transitions made by this call.
func (e *Engine) Resume(ctx context.Context, runID string, recursionLimit int) (WorkflowState, error) {
	if e.checkpoints == nil {
		return WorkflowState{}, errors.New("checkpoints are not enabled")
	}
	if recursionLimit < 1 {
		return WorkflowState{}, fmt.Errorf("recursion limit must be at least 1, got %d", recursionLimit)
	}
	cp, err := e.checkpoints.LatestCheckpoint(ctx, runID)
	if err != nil {
		return WorkflowState{}, err
	}

	state := cp.State.Clone()
	if cp.Next.IsTerminal() {
		e.logger.Info("Run %s already finished with status %s", runID, state.Status)
		return state, nil
	}
	if err := e.files.Prepare(false); err != nil {
		return state, err
	}

	e.logger.Info("🔁 Resuming run %s at %s (step %d)", runID, cp.Next, cp.Step)
	return e.drive(ctx, runID, &state, cp.Next, cp.Step, recursionLimit)
}

func (e *Engine) drive(ctx context.Context, runID string, state *WorkflowState, node Node, step, limit int) (WorkflowState, error) {
	for transitions := 0; !node.IsTerminal(); transitions++ {
		if err := ctx.Err(); err != nil {
			return e.fail(runID, state, &StageError{Stage: node, LastError: state.LastError, Err: err})
		}
		if transitions >= limit {
			e.logger.Error("❌ Recursion limit of %d reached at %s", limit, node)
			return e.fail(runID, state, &StageError{
				Stage:     node,
				LastError: state.LastError,
				Err:       fmt.Errorf("%w: %d transitions", ErrRecursionLimit, limit),
			})
		}

		next, err := e.step(ctx, state, node)
		if err != nil {
			return e.fail(runID, state, err)
		}

		step++
		e.recorder.ObserveTransition(node, next)
		e.logger.Debug("Transition %s -> %s (status %s, step %d)", node, next, state.Status, step)
		e.checkpoint(ctx, runID, step, next, state)
		node = next
	}

	e.recorder.IncRun(RunApproved)
	e.finish(runID, state, nil)
	e.logger.Info("🏁 Run %s finished with status %s", runID, state.Status)
	return state.Clone(), nil
}

// step runs the stage of node against a snapshot and merges its delta.
// A pending LastError is cleared before the stage runs, whatever its outcome.
func (e *Engine) step(ctx context.Context, state *WorkflowState, node Node) (Node, error) {
	run, ok := e.stages[node]
	if !ok {
		return "", &StageError{Stage: node, Err: fmt.Errorf("%w: no stage for node %s", ErrNoTransition, node)}
	}

	pending := state.LastError
	snapshot := state.Clone()
	state.LastError = ""

	start := time.Now()
	delta, err := run(ctx, &snapshot)
	e.recorder.ObserveStage(node, time.Since(start))
	if err != nil {
		e.recorder.IncStageError(node, Classify(err))
		return "", &StageError{Stage: node, LastError: pending, Err: err}
	}
	if delta.LastError != "" {
		e.recorder.IncStageError(node, ClassTransientTool)
	}

	next, err := Next(node, delta.Status)
	if err != nil {
		return "", &StageError{Stage: node, LastError: pending, Err: err}
	}
	delta.Apply(state)
	return next, nil
}

func (e *Engine) fail(runID string, state *WorkflowState, err error) (WorkflowState, error) {
	result := RunFailed
	switch {
	case errors.Is(err, ErrRecursionLimit):
		result = RunAborted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		result = RunCanceled
	}
	e.recorder.IncRun(result)
	e.logger.Error("❌ Run %s failed: %v", runID, err)
	e.finish(runID, state, err)
	return state.Clone(), err
}

func (e *Engine) checkpoint(ctx context.Context, runID string, step int, next Node, state *WorkflowState) {
	if e.checkpoints == nil {
		return
	}
	cp := &Checkpoint{
		RunID:     runID,
		Step:      step,
		Next:      next,
		State:     state.Clone(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := e.checkpoints.SaveCheckpoint(ctx, cp); err != nil {
		e.logger.Warn("Failed to save checkpoint %d of run %s: %v", step, runID, err)
	}
}

// finish records the outcome. It uses its own context so a canceled run is still recorded.
func (e *Engine) finish(runID string, state *WorkflowState, runErr error) {
	if e.checkpoints == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.checkpoints.FinishRun(ctx, runID, state.Status, runErr); err != nil {
		e.logger.Warn("Failed to record the end of run %s: %v", runID, err)
	}
}
