package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AkibDa/Code-Genesis/pkg/agent/llmerrors"
	"github.com/AkibDa/Code-Genesis/pkg/agent/middleware/resilience/retry"
	"github.com/AkibDa/Code-Genesis/pkg/tools"
)

// modelReply is one scripted structured response.
type modelReply struct {
	value any
	err   error
}

// fakeModel answers structured calls from per-schema queues.
type fakeModel struct {
	mu      sync.Mutex
	replies map[string][]modelReply
	prompts map[string][]string
}

func newFakeModel() *fakeModel {
	return &fakeModel{
		replies: make(map[string][]modelReply),
		prompts: make(map[string][]string),
	}
}

func (m *fakeModel) on(schema Schema, replies ...modelReply) *fakeModel {
	m.replies[schema.Name] = append(m.replies[schema.Name], replies...)
	return m
}

func (m *fakeModel) Invoke(_ context.Context, schema Schema, prompt string, out any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts[schema.Name] = append(m.prompts[schema.Name], prompt)

	queue := m.replies[schema.Name]
	if len(queue) == 0 {
		return fmt.Errorf("no scripted reply for %s", schema.Name)
	}
	reply := queue[0]
	if len(queue) > 1 {
		m.replies[schema.Name] = queue[1:]
	}
	if reply.err != nil {
		return reply.err
	}
	data, err := json.Marshal(reply.value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (m *fakeModel) calls(schema Schema) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts[schema.Name])
}

// agentReply is one scripted agent outcome. Files are written to the project before returning.
type agentReply struct {
	output string
	err    error
	files  map[string]string
}

// fakeAgent replays scripted outcomes; the last one repeats.
type fakeAgent struct {
	mu       sync.Mutex
	root     string
	replies  []agentReply
	requests []AgentRequest
}

func (a *fakeAgent) Invoke(_ context.Context, req AgentRequest) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, req)

	if len(a.replies) == 0 {
		return "", fmt.Errorf("no scripted agent reply")
	}
	reply := a.replies[0]
	if len(a.replies) > 1 {
		a.replies = a.replies[1:]
	}
	for path, content := range reply.files {
		full := filepath.Join(a.root, path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return "", err
		}
		if err := os.WriteFile(full, []byte(content), 0o600); err != nil {
			return "", err
		}
	}
	return reply.output, reply.err
}

func (a *fakeAgent) prompt(i int) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requests[i].Messages[0]
}

func (a *fakeAgent) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.requests)
}

// memoryCheckpoints is an in-memory CheckpointStore.
type memoryCheckpoints struct {
	mu          sync.Mutex
	checkpoints map[string][]Checkpoint
	finished    map[string]Status
}

func newMemoryCheckpoints() *memoryCheckpoints {
	return &memoryCheckpoints{
		checkpoints: make(map[string][]Checkpoint),
		finished:    make(map[string]Status),
	}
}

func (m *memoryCheckpoints) CreateRun(_ context.Context, runID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkpoints[runID] = nil
	return nil
}

func (m *memoryCheckpoints) SaveCheckpoint(_ context.Context, cp *Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkpoints[cp.RunID] = append(m.checkpoints[cp.RunID], *cp)
	return nil
}

func (m *memoryCheckpoints) LatestCheckpoint(_ context.Context, runID string) (*Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cps, ok := m.checkpoints[runID]
	if !ok || len(cps) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	cp := cps[len(cps)-1]
	return &cp, nil
}

func (m *memoryCheckpoints) FinishRun(_ context.Context, runID string, status Status, _ error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished[runID] = status
	return nil
}

func (m *memoryCheckpoints) all(runID string) []Checkpoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Checkpoint(nil), m.checkpoints[runID]...)
}

// countingRecorder counts what the engine reports.
type countingRecorder struct {
	mu          sync.Mutex
	transitions []string
	stageErrors map[ErrorClass]int
	runs        map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{stageErrors: make(map[ErrorClass]int), runs: make(map[string]int)}
}

func (r *countingRecorder) ObserveTransition(from, to Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, string(from)+"->"+string(to))
}

func (r *countingRecorder) ObserveStage(_ Node, _ time.Duration) {}

func (r *countingRecorder) IncStageError(_ Node, class ErrorClass) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stageErrors[class]++
}

func (r *countingRecorder) IncRun(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[result]++
}

// harness wires an engine to fakes over a temporary project root.
type harness struct {
	engine      *Engine
	model       *fakeModel
	coder       *fakeAgent
	debugger    *fakeAgent
	workspace   *tools.Workspace
	recorder    *countingRecorder
	checkpoints *memoryCheckpoints
}

func newHarness(t *testing.T, opts ...func(*Options)) *harness {
	t.Helper()
	root := filepath.Join(t.TempDir(), "generated_project")
	ws, err := tools.NewWorkspace(root, 0)
	require.NoError(t, err)

	h := &harness{
		model:       newFakeModel(),
		coder:       &fakeAgent{root: root},
		debugger:    &fakeAgent{root: root},
		workspace:   ws,
		recorder:    newCountingRecorder(),
		checkpoints: newMemoryCheckpoints(),
	}

	options := DefaultOptions()
	options.Retry = retry.Config{MaxAttempts: 3, BackoffFactor: 2}
	for _, opt := range opts {
		opt(&options)
	}

	h.engine, err = NewEngine(Deps{
		Model:         h.model,
		CoderAgent:    h.coder,
		DebuggerAgent: h.debugger,
		Files:         ws,
		Recorder:      h.recorder,
		Checkpoints:   h.checkpoints,
	}, options)
	require.NoError(t, err)
	return h
}

func todoPlan() *Plan {
	return &Plan{
		Name:        "todo",
		Description: "A colourful todo app",
		Techstack:   "HTML, CSS, JS",
		Features:    []string{"add todo", "remove todo"},
		Files:       []File{{Path: "index.html", Purpose: "markup"}},
	}
}

func steps(paths ...string) TaskSteps {
	out := TaskSteps{}
	for _, p := range paths {
		out.ImplementationSteps = append(out.ImplementationSteps, ImplementationTask{
			Filepath:        p,
			TaskDescription: "Implement " + p,
		})
	}
	return out
}

func toolFailure(msg string) error {
	return llmerrors.NewToolValidationError(msg)
}
