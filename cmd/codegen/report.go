package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AkibDa/Code-Genesis/pkg/workflow"
)

// Report formats.
const (
	formatText = "text"
	formatYAML = "yaml"
	formatJSON = "json"
)

// report is what run and resume print when they finish.
type report struct {
	RunID       string                 `json:"run_id" yaml:"run_id"`
	ProjectRoot string                 `json:"project_root" yaml:"project_root"`
	Status      workflow.Status        `json:"status" yaml:"status"`
	Error       string                 `json:"error,omitempty" yaml:"error,omitempty"`
	FailedStage workflow.Node          `json:"failed_stage,omitempty" yaml:"failed_stage,omitempty"`
	Files       []string               `json:"files" yaml:"files"`
	State       workflow.WorkflowState `json:"state" yaml:"state"`
}

func newReport(runID, root string, state *workflow.WorkflowState, files []string, runErr error) *report {
	r := &report{
		RunID:       runID,
		ProjectRoot: root,
		Status:      state.Status,
		Files:       files,
		State:       *state,
	}
	if r.Files == nil {
		r.Files = []string{}
	}
	if runErr != nil {
		r.Error = runErr.Error()
		var stageErr *workflow.StageError
		if errors.As(runErr, &stageErr) {
			r.FailedStage = stageErr.Stage
		}
	}
	return r
}

func validateFormat(format string) error {
	switch format {
	case formatText, formatYAML, formatJSON:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want text, yaml or json)", format)
	}
}

func writeReport(w io.Writer, format string, r *report) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return nil
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return nil
	default:
		_, err := io.WriteString(w, textReport(r))
		if err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		return nil
	}
}

func textReport(r *report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run:     %s\n", r.RunID)
	fmt.Fprintf(&b, "Project: %s\n", r.ProjectRoot)
	fmt.Fprintf(&b, "Status:  %s\n", statusOrNone(r.Status))
	if r.Error != "" {
		fmt.Fprintf(&b, "Error:   %s\n", r.Error)
	}

	if p := r.State.Plan; p != nil {
		fmt.Fprintf(&b, "\nPlan: %s\n", p.Name)
		if p.Description != "" {
			fmt.Fprintf(&b, "  %s\n", p.Description)
		}
		if p.Techstack != "" {
			fmt.Fprintf(&b, "  Tech stack: %s\n", p.Techstack)
		}
		for _, f := range p.Features {
			fmt.Fprintf(&b, "  - %s\n", f)
		}
	}

	if tp := r.State.TaskPlan; tp != nil {
		fmt.Fprintf(&b, "\nTasks (%d):\n", len(tp.ImplementationSteps))
		done := -1
		if cs := r.State.CoderState; cs != nil && cs.TaskPlan == tp {
			done = cs.CurrentStepIdx
		}
		for i, step := range tp.ImplementationSteps {
			mark := " "
			if i < done || r.Status == workflow.StatusApproved {
				mark = "x"
			}
			fmt.Fprintf(&b, "  [%s] %s: %s\n", mark, step.Filepath, step.TaskDescription)
		}
	}

	fmt.Fprintf(&b, "\nFiles (%d):\n", len(r.Files))
	for _, f := range r.Files {
		fmt.Fprintf(&b, "  %s\n", f)
	}

	if r.State.LastOutput != "" {
		fmt.Fprintf(&b, "\nLast output:\n%s\n", r.State.LastOutput)
	}
	return b.String()
}

func statusOrNone(s workflow.Status) string {
	if s == "" {
		return "(none)"
	}
	return string(s)
}
