package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AkibDa/Code-Genesis/pkg/workflow"
)

// Run states.
const (
	RunStateRunning  = "running"
	RunStateApproved = "approved"
	RunStateFailed   = "failed"
)

// Run is the summary of one workflow run.
type Run struct {
	RunID      string     `json:"run_id" yaml:"run_id"`
	UserPrompt string     `json:"user_prompt" yaml:"user_prompt"`
	State      string     `json:"state" yaml:"state"`
	Status     string     `json:"status,omitempty" yaml:"status,omitempty"`
	Error      string     `json:"error,omitempty" yaml:"error,omitempty"`
	Steps      int        `json:"steps" yaml:"steps"`
	CreatedAt  time.Time  `json:"created_at" yaml:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
}

// CreateRun records a new run. It implements workflow.CheckpointStore.
func (s *Store) CreateRun(ctx context.Context, runID, userPrompt string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, user_prompt, state, created_at) VALUES (?, ?, ?, ?)`,
		runID, userPrompt, RunStateRunning, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to create run %s: %w", runID, err)
	}
	return nil
}

// FinishRun records the outcome of a run. It implements workflow.CheckpointStore.
func (s *Store) FinishRun(ctx context.Context, runID string, status workflow.Status, runErr error) error {
	state := RunStateApproved
	var errText sql.NullString
	if runErr != nil {
		state = RunStateFailed
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET state = ?, status = ?, error = ?, finished_at = ? WHERE run_id = ?`,
		state, string(status), errText, formatTime(time.Now()), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", workflow.ErrRunNotFound, runID)
	}
	return nil
}

// SaveCheckpoint stores the state after one transition. It implements workflow.CheckpointStore.
func (s *Store) SaveCheckpoint(ctx context.Context, cp *workflow.Checkpoint) error {
	data, err := json.Marshal(&cp.State)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	updated := cp.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO checkpoints (run_id, step, next_node, state_json, updated_at)
			 VALUES (?, ?, ?, ?, ?)`,
			cp.RunID, cp.Step, string(cp.Next), string(data), formatTime(updated)); err != nil {
			return fmt.Errorf("failed to save checkpoint %d of run %s: %w", cp.Step, cp.RunID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE runs SET status = ? WHERE run_id = ?`, string(cp.State.Status), cp.RunID); err != nil {
			return fmt.Errorf("failed to update run %s: %w", cp.RunID, err)
		}
		return nil
	})
}

// LatestCheckpoint returns the newest checkpoint of a run. A run with no checkpoint
// yet resumes from the start. It implements workflow.CheckpointStore.
func (s *Store) LatestCheckpoint(ctx context.Context, runID string) (*workflow.Checkpoint, error) {
	var prompt, created string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_prompt, created_at FROM runs WHERE run_id = ?`, runID).Scan(&prompt, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", workflow.ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}

	var (
		step                      int
		next, stateJSON, updatedS string
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT step, next_node, state_json, updated_at FROM checkpoints
		 WHERE run_id = ? ORDER BY step DESC LIMIT 1`, runID).Scan(&step, &next, &stateJSON, &updatedS)
	if errors.Is(err, sql.ErrNoRows) {
		createdAt, perr := parseTime(created)
		if perr != nil {
			return nil, perr
		}
		return &workflow.Checkpoint{
			RunID:     runID,
			Next:      workflow.NodePlanning,
			State:     workflow.WorkflowState{UserPrompt: prompt},
			UpdatedAt: createdAt,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint of run %s: %w", runID, err)
	}

	cp := &workflow.Checkpoint{RunID: runID, Step: step, Next: workflow.Node(next)}
	if err := json.Unmarshal([]byte(stateJSON), &cp.State); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint %d of run %s: %w", step, runID, err)
	}
	relink(&cp.State)
	if cp.UpdatedAt, err = parseTime(updatedS); err != nil {
		return nil, err
	}
	return cp, nil
}

// relink restores the pointer sharing that JSON encoding flattens: the coder works
// on the current task plan, and the task plan belongs to the current plan.
func relink(state *workflow.WorkflowState) {
	if state.CoderState != nil && equalPtr(state.TaskPlan, state.CoderState.TaskPlan) {
		state.CoderState.TaskPlan = state.TaskPlan
	}
	if state.TaskPlan != nil && equalPtr(state.Plan, state.TaskPlan.Plan) {
		state.TaskPlan.Plan = state.Plan
	}
}

// GetRun returns one run.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	runs, err := s.queryRuns(ctx, `WHERE r.run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: %s", workflow.ErrRunNotFound, runID)
	}
	return &runs[0], nil
}

// ListRuns returns the most recent runs, newest first. A non-positive limit returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.queryRuns(ctx, `ORDER BY r.created_at DESC, r.rowid DESC LIMIT ?`, limit)
}

func (s *Store) queryRuns(ctx context.Context, tail string, args ...any) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.run_id, r.user_prompt, r.state, r.status, r.error, r.created_at, r.finished_at,
		       (SELECT COUNT(*) FROM checkpoints c WHERE c.run_id = r.run_id)
		FROM runs r `+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			errText, finished sql.NullString
			created           string
		)
		if err := rows.Scan(&r.RunID, &r.UserPrompt, &r.State, &r.Status, &errText, &created, &finished, &r.Steps); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Error = errText.String
		if r.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		if r.FinishedAt, err = parseNullTime(finished); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}
