package eventlog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AkibDa/Code-Genesis/pkg/workflow"
)

func TestNewWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "events")

	w, err := NewWriter(dir)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	current := w.CurrentLogFile()
	require.NotEmpty(t, current)
	_, err = os.Stat(current)
	assert.NoError(t, err)
}

func TestWriterRecordsWorkflowEvents(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	var rec workflow.Recorder = w
	rec.ObserveTransition(workflow.NodePlanning, workflow.NodeArchitecting)
	rec.ObserveStage(workflow.NodePlanning, 1500*time.Millisecond)
	rec.IncStageError(workflow.NodeCoding, workflow.ClassTransientTool)
	rec.IncRun(workflow.RunApproved)

	path := w.CurrentLogFile()
	require.NoError(t, w.Close())

	events, err := ReadEvents(path)
	require.NoError(t, err)
	require.Len(t, events, 4)

	assert.Equal(t, KindTransition, events[0].Kind)
	assert.Equal(t, workflow.NodePlanning, events[0].From)
	assert.Equal(t, workflow.NodeArchitecting, events[0].To)
	assert.False(t, events[0].Time.IsZero())

	assert.Equal(t, KindStage, events[1].Kind)
	assert.Equal(t, int64(1500), events[1].DurationMS)

	assert.Equal(t, KindStageError, events[2].Kind)
	assert.Equal(t, "transient_tool", events[2].Class)

	assert.Equal(t, KindRun, events[3].Kind)
	assert.Equal(t, workflow.RunApproved, events[3].Result)
}

func TestWriterRotatesDaily(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	day1 := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	day2 := day1.Add(2 * time.Minute)
	require.NoError(t, w.Write(&Event{Time: day1, Kind: KindRun, Result: workflow.RunFailed}))
	require.NoError(t, w.Write(&Event{Time: day2, Kind: KindRun, Result: workflow.RunApproved}))

	assert.Equal(t, filepath.Join(dir, "events-2026-03-02.jsonl"), w.CurrentLogFile())

	files, err := ListLogFiles(dir)
	require.NoError(t, err)
	assert.Contains(t, files, filepath.Join(dir, "events-2026-03-01.jsonl"))
	assert.Contains(t, files, filepath.Join(dir, "events-2026-03-02.jsonl"))

	events, err := ReadEvents(filepath.Join(dir, "events-2026-03-01.jsonl"))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, workflow.RunFailed, events[0].Result)
}

func TestWriteAfterClose(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	assert.Empty(t, w.CurrentLogFile())
	assert.ErrorContains(t, w.Write(&Event{Kind: KindRun}), "closed")

	// Recorder methods swallow the error.
	w.IncRun(workflow.RunApproved)
}

func TestReadEventsRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events-2026-01-01.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"kind\":\"run\"}\n\nnot json\n"), 0o600))

	_, err := ReadEvents(path)
	assert.ErrorContains(t, err, "line 3")

	_, err = ReadEvents(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}
