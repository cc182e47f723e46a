package persistence

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AkibDa/Code-Genesis/pkg/workflow"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleState() workflow.WorkflowState {
	plan := &workflow.Plan{
		Name:  "Todo",
		Files: []workflow.File{{Path: "index.html", Purpose: "page"}},
	}
	tp := &workflow.TaskPlan{
		ImplementationSteps: []workflow.ImplementationTask{
			{Filepath: "index.html", TaskDescription: "write the page"},
			{Filepath: "app.js", TaskDescription: "write the logic"},
		},
		Plan: plan,
	}
	return workflow.WorkflowState{
		UserPrompt: "todo app",
		Plan:       plan,
		TaskPlan:   tp,
		CoderState: &workflow.CoderState{TaskPlan: tp, CurrentStepIdx: 1},
		Status:     workflow.StatusInProgress,
		LastOutput: "wrote index.html",
	}
}

func TestOpen_ReopensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.CreateRun(context.Background(), "run-1", "todo"))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	version, err := GetSchemaVersion(store.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)

	run, err := store.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "todo", run.UserPrompt)
}

func TestCheckpointRoundTripKeepsSharing(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateRun(ctx, "run-1", "todo app"))

	state := sampleState()
	updated := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveCheckpoint(ctx, &workflow.Checkpoint{
		RunID: "run-1", Step: 1, Next: workflow.NodeArchitecting,
		State: workflow.WorkflowState{UserPrompt: "todo app", Plan: state.Plan, Status: workflow.StatusPlanned},
	}))
	require.NoError(t, store.SaveCheckpoint(ctx, &workflow.Checkpoint{
		RunID: "run-1", Step: 3, Next: workflow.NodeCoding, State: state, UpdatedAt: updated,
	}))

	cp, err := store.LatestCheckpoint(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 3, cp.Step)
	assert.Equal(t, workflow.NodeCoding, cp.Next)
	assert.True(t, updated.Equal(cp.UpdatedAt))
	assert.Equal(t, state, cp.State)
	assert.Same(t, cp.State.TaskPlan, cp.State.CoderState.TaskPlan)
	assert.Same(t, cp.State.Plan, cp.State.TaskPlan.Plan)

	run, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, RunStateRunning, run.State)
	assert.Equal(t, string(workflow.StatusInProgress), run.Status)
	assert.Equal(t, 2, run.Steps)
	assert.Nil(t, run.FinishedAt)
}

func TestRelinkLeavesDivergedPlansApart(t *testing.T) {
	state := sampleState()
	fix := &workflow.TaskPlan{
		ImplementationSteps: []workflow.ImplementationTask{{Filepath: "app.js", TaskDescription: "fix"}},
		Plan:                state.Plan,
	}
	state.CoderState.TaskPlan = fix

	relink(&state)
	assert.NotSame(t, state.TaskPlan, state.CoderState.TaskPlan)
	assert.Equal(t, "fix", state.CoderState.TaskPlan.ImplementationSteps[0].TaskDescription)
}

func TestLatestCheckpoint_WithoutCheckpointsStartsOver(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateRun(ctx, "run-1", "todo app"))

	cp, err := store.LatestCheckpoint(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 0, cp.Step)
	assert.Equal(t, workflow.NodePlanning, cp.Next)
	assert.Equal(t, "todo app", cp.State.UserPrompt)
}

func TestUnknownRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.LatestCheckpoint(ctx, "missing")
	assert.ErrorIs(t, err, workflow.ErrRunNotFound)
	_, err = store.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, workflow.ErrRunNotFound)
	assert.ErrorIs(t, store.FinishRun(ctx, "missing", workflow.StatusApproved, nil), workflow.ErrRunNotFound)
}

func TestCreateRunTwiceFails(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateRun(ctx, "run-1", "a"))
	assert.Error(t, store.CreateRun(ctx, "run-1", "b"))
}

func TestFinishRunAndListRuns(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRun(ctx, "run-1", "first"))
	require.NoError(t, store.CreateRun(ctx, "run-2", "second"))
	require.NoError(t, store.CreateRun(ctx, "run-3", "third"))

	require.NoError(t, store.FinishRun(ctx, "run-1", workflow.StatusApproved, nil))
	require.NoError(t, store.FinishRun(ctx, "run-2", workflow.StatusInProgress, errors.New("stage CODING failed: boom")))

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"run-3", "run-2", "run-1"}, []string{runs[0].RunID, runs[1].RunID, runs[2].RunID})

	assert.Equal(t, RunStateRunning, runs[0].State)
	assert.Equal(t, RunStateFailed, runs[1].State)
	assert.Equal(t, "stage CODING failed: boom", runs[1].Error)
	assert.NotNil(t, runs[1].FinishedAt)
	assert.Equal(t, RunStateApproved, runs[2].State)
	assert.Equal(t, string(workflow.StatusApproved), runs[2].Status)
	assert.Empty(t, runs[2].Error)

	limited, err := store.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "run-3", limited[0].RunID)
}
