// Package workflow implements the code generation workflow engine: a finite-state
// coordinator that runs the planner, architect, coder and debugger stages over one
// shared WorkflowState.
package workflow

import (
	"errors"
	"reflect"
	"slices"
)

// ErrPlanReassigned is returned when a task plan already bound to one plan is attached to another.
var ErrPlanReassigned = errors.New("task plan is already attached to a different plan")

// File is one file a plan intends to create.
type File struct {
	Path    string `json:"path" yaml:"path" validate:"required"`
	Purpose string `json:"purpose" yaml:"purpose"`
}

// Plan is the structured description of the project. It is never modified after the planner returns it.
type Plan struct {
	Name        string   `json:"name" yaml:"name" validate:"required"`
	Description string   `json:"description" yaml:"description"`
	Techstack   string   `json:"techstack" yaml:"techstack"`
	Features    []string `json:"features" yaml:"features"`
	Files       []File   `json:"files" yaml:"files" validate:"required,min=1,dive"`
}

// ImplementationTask is one instruction to modify one file.
type ImplementationTask struct {
	Filepath        string `json:"filepath" yaml:"filepath" validate:"required"`
	TaskDescription string `json:"task_description" yaml:"task_description" validate:"required"`
}

// TaskPlan is an ordered list of implementation steps plus the plan that produced it.
// Steps run strictly in order.
type TaskPlan struct {
	ImplementationSteps []ImplementationTask `json:"implementation_steps" yaml:"implementation_steps"`
	Plan                *Plan                `json:"plan,omitempty" yaml:"plan,omitempty"`
}

// AttachPlan binds the task plan to the plan that produced it. Attaching the same
// plan again is a no-op; attaching a different one fails.
func (tp *TaskPlan) AttachPlan(plan *Plan) error {
	if tp.Plan != nil {
		if tp.Plan != plan && !reflect.DeepEqual(tp.Plan, plan) {
			return ErrPlanReassigned
		}
		return nil
	}
	tp.Plan = plan
	return nil
}

// CoderState is the resumable cursor over one task plan.
type CoderState struct {
	TaskPlan           *TaskPlan `json:"task_plan" yaml:"task_plan"`
	CurrentStepIdx     int       `json:"current_step_idx" yaml:"current_step_idx"`
	CurrentFileContent string    `json:"current_file_content,omitempty" yaml:"current_file_content,omitempty"`
}

// Remaining returns the number of steps not yet applied.
func (cs *CoderState) Remaining() int {
	if cs.TaskPlan == nil {
		return 0
	}
	return max(len(cs.TaskPlan.ImplementationSteps)-cs.CurrentStepIdx, 0)
}

// WorkflowState is the record threaded through every stage. Only the engine mutates it;
// stages see a Clone and answer with a Delta.
type WorkflowState struct {
	UserPrompt string      `json:"user_prompt" yaml:"user_prompt"`
	Plan       *Plan       `json:"plan,omitempty" yaml:"plan,omitempty"`
	TaskPlan   *TaskPlan   `json:"task_plan,omitempty" yaml:"task_plan,omitempty"`
	CoderState *CoderState `json:"coder_state,omitempty" yaml:"coder_state,omitempty"`
	Status     Status      `json:"status,omitempty" yaml:"status,omitempty"`
	LastOutput string      `json:"last_output,omitempty" yaml:"last_output,omitempty"`
	// LastError is set only while a tool failure waits for a retry of the stage that raised it.
	LastError string `json:"last_error,omitempty" yaml:"last_error,omitempty"`
}

// Clone returns a deep copy. Pointers shared inside the original (the coder state's
// task plan and the current task plan, a task plan's plan and the current plan) stay
// shared in the copy.
func (s *WorkflowState) Clone() WorkflowState {
	c := cloner{
		plans:     make(map[*Plan]*Plan),
		taskPlans: make(map[*TaskPlan]*TaskPlan),
	}
	out := *s
	out.Plan = c.plan(s.Plan)
	out.TaskPlan = c.taskPlan(s.TaskPlan)
	if s.CoderState != nil {
		cs := *s.CoderState
		cs.TaskPlan = c.taskPlan(s.CoderState.TaskPlan)
		out.CoderState = &cs
	}
	return out
}

type cloner struct {
	plans     map[*Plan]*Plan
	taskPlans map[*TaskPlan]*TaskPlan
}

func (c *cloner) plan(p *Plan) *Plan {
	if p == nil {
		return nil
	}
	if seen, ok := c.plans[p]; ok {
		return seen
	}
	cp := *p
	cp.Features = slices.Clone(p.Features)
	cp.Files = slices.Clone(p.Files)
	c.plans[p] = &cp
	return &cp
}

func (c *cloner) taskPlan(tp *TaskPlan) *TaskPlan {
	if tp == nil {
		return nil
	}
	if seen, ok := c.taskPlans[tp]; ok {
		return seen
	}
	cp := TaskPlan{
		ImplementationSteps: slices.Clone(tp.ImplementationSteps),
		Plan:                c.plan(tp.Plan),
	}
	c.taskPlans[tp] = &cp
	return &cp
}
