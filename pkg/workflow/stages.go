package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/AkibDa/Code-Genesis/pkg/agent/middleware/resilience/retry"
	"github.com/AkibDa/Code-Genesis/pkg/templates"
	"github.com/AkibDa/Code-Genesis/pkg/tools"
)

// stage runs one node against a snapshot of the state.
type stage func(ctx context.Context, s *WorkflowState) (Delta, error)

// invokeStructured makes a structured call under the retry policy. Every attempt
// decodes into a fresh value.
func invokeStructured[T any](ctx context.Context, e *Engine, schema Schema, prompt string) (*T, error) {
	return retry.Do(ctx, e.policy, func(ctx context.Context) (*T, error) {
		out := new(T)
		if err := e.model.Invoke(ctx, schema, prompt, out); err != nil {
			return nil, err
		}
		return out, nil
	})
}

func (e *Engine) invokeAgent(ctx context.Context, agent Agent, req AgentRequest) (string, error) {
	return retry.Do(ctx, e.policy, func(ctx context.Context) (string, error) {
		return agent.Invoke(ctx, req)
	})
}

func (e *Engine) planner(ctx context.Context, s *WorkflowState) (Delta, error) {
	log := e.loggers[NodePlanning]
	prompt, err := e.prompts.Render(templates.PlannerTemplate, &templates.TemplateData{
		UserPrompt: s.UserPrompt,
		SchemaName: PlanSchema.Name,
	})
	if err != nil {
		return Delta{}, err
	}

	plan, err := invokeStructured[Plan](ctx, e, PlanSchema, prompt)
	if err != nil {
		return Delta{}, fmt.Errorf("planner did not return a valid plan: %w", err)
	}
	log.Info("📋 Plan %q: %d files, %d features", plan.Name, len(plan.Files), len(plan.Features))

	return Delta{Plan: plan, Status: StatusPlanned}, nil
}

func (e *Engine) architect(ctx context.Context, s *WorkflowState) (Delta, error) {
	log := e.loggers[NodeArchitecting]
	if s.Plan == nil {
		return Delta{}, fmt.Errorf("%w: architect requires a plan", ErrMissingInput)
	}

	prompt, err := e.prompts.Render(templates.ArchitectTemplate, &templates.TemplateData{
		Plan:       planJSON(s.Plan),
		SchemaName: TaskPlanSchema.Name,
	})
	if err != nil {
		return Delta{}, err
	}

	steps, err := invokeStructured[TaskSteps](ctx, e, TaskPlanSchema, prompt)
	if err != nil {
		return Delta{}, fmt.Errorf("architect did not return a valid task plan: %w", err)
	}

	taskPlan := &TaskPlan{ImplementationSteps: steps.ImplementationSteps}
	if err := taskPlan.AttachPlan(s.Plan); err != nil {
		return Delta{}, err
	}
	log.Info("🧱 Task plan with %d steps", len(taskPlan.ImplementationSteps))

	return Delta{TaskPlan: taskPlan, ResetCoderState: true, Status: StatusTasksReady}, nil
}

func (e *Engine) coder(ctx context.Context, s *WorkflowState) (Delta, error) {
	log := e.loggers[NodeCoding]
	cs := s.CoderState
	if cs == nil {
		if s.TaskPlan == nil {
			return Delta{}, fmt.Errorf("%w: coder requires a task plan", ErrMissingInput)
		}
		log.Info("Starting new task plan")
		cs = &CoderState{TaskPlan: s.TaskPlan}
	}

	steps := cs.TaskPlan.ImplementationSteps
	if cs.CurrentStepIdx >= len(steps) {
		log.Info("✅ All %d steps complete", len(steps))
		return Delta{CoderState: cs, Status: StatusDone}, nil
	}

	task := steps[cs.CurrentStepIdx]
	log.Info("Task %d/%d: %s", cs.CurrentStepIdx+1, len(steps), task.Filepath)

	// An unreadable target is coded from scratch; write_file reports bad paths to the model.
	existing, err := e.files.ReadFile(ctx, task.Filepath)
	if err != nil {
		if !errors.Is(err, tools.ErrNotFound) {
			log.Warn("⚠️ Cannot read %s, coding without existing content: %v", task.Filepath, err)
		}
		existing = ""
	}

	correction, err := e.correction(s.LastError, e.opts.CoderTools)
	if err != nil {
		return Delta{}, err
	}
	taskPrompt, err := e.prompts.Render(templates.CoderTaskTemplate, &templates.TemplateData{
		TaskDescription: task.TaskDescription,
		FilePath:        task.Filepath,
		ExistingContent: existing,
		Correction:      correction,
	})
	if err != nil {
		return Delta{}, err
	}
	systemPrompt, err := e.prompts.Render(templates.CoderSystemTemplate, &templates.TemplateData{
		ToolDocumentation: tools.PromptDocumentation(e.opts.CoderTools),
	})
	if err != nil {
		return Delta{}, err
	}

	output, err := e.invokeAgent(ctx, e.coderAgent, AgentRequest{
		SystemPrompt: systemPrompt,
		Messages:     []string{taskPrompt},
		Tools:        e.opts.CoderTools,
	})
	if err != nil {
		if Classify(err) == ClassTransientTool {
			log.Warn("⚠️ Step %d tool failure, retrying with correction: %v", cs.CurrentStepIdx+1, err)
			return Delta{CoderState: cs, Status: StatusInProgress, LastError: err.Error()}, nil
		}
		return Delta{}, fmt.Errorf("coder step %d (%s): %w", cs.CurrentStepIdx+1, task.Filepath, err)
	}

	next := *cs
	next.CurrentFileContent = output
	next.CurrentStepIdx++
	return Delta{CoderState: &next, Status: StatusInProgress, LastOutput: output}, nil
}

func (e *Engine) debugger(ctx context.Context, s *WorkflowState) (Delta, error) {
	log := e.loggers[NodeReviewing]
	if s.Plan == nil {
		return Delta{}, fmt.Errorf("%w: debugger requires a plan", ErrMissingInput)
	}
	plan := planJSON(s.Plan)

	correction, err := e.correction(s.LastError, e.opts.DebuggerTools)
	if err != nil {
		return Delta{}, err
	}
	reviewPrompt, err := e.prompts.Render(templates.DebuggerReviewTemplate, &templates.TemplateData{
		Plan:          plan,
		ApprovalToken: ApprovalToken,
		Correction:    correction,
	})
	if err != nil {
		return Delta{}, err
	}
	systemPrompt, err := e.prompts.Render(templates.DebuggerSystemTemplate, &templates.TemplateData{
		ToolDocumentation: tools.PromptDocumentation(e.opts.DebuggerTools),
		ApprovalToken:     ApprovalToken,
	})
	if err != nil {
		return Delta{}, err
	}

	report, err := e.invokeAgent(ctx, e.debuggerAgent, AgentRequest{
		SystemPrompt: systemPrompt,
		Messages:     []string{reviewPrompt},
		Tools:        e.opts.DebuggerTools,
	})
	if err != nil {
		if Classify(err) == ClassTransientTool {
			log.Warn("⚠️ Review tool failure, retrying with correction: %v", err)
			return Delta{Status: StatusDebuggerError, LastError: err.Error()}, nil
		}
		return Delta{}, fmt.Errorf("review failed: %w", err)
	}

	if e.opts.ReviewMatch.Approved(report) {
		log.Info("✅ Project approved")
		return Delta{Status: StatusApproved, LastOutput: report}, nil
	}

	log.Info("🐛 Bugs found, generating fix plan")
	fixPrompt, err := e.prompts.Render(templates.DebuggerFixTemplate, &templates.TemplateData{
		BugReport:  report,
		Plan:       plan,
		SchemaName: TaskPlanSchema.Name,
	})
	if err != nil {
		return Delta{}, err
	}
	steps, err := invokeStructured[TaskSteps](ctx, e, TaskPlanSchema, fixPrompt)
	if err != nil {
		return Delta{}, fmt.Errorf("debugger did not return a valid fix plan: %w", err)
	}
	fixPlan := &TaskPlan{ImplementationSteps: steps.ImplementationSteps}
	if err := fixPlan.AttachPlan(s.Plan); err != nil {
		return Delta{}, err
	}
	log.Info("Fix plan with %d steps", len(fixPlan.ImplementationSteps))

	return Delta{
		TaskPlan:        fixPlan,
		ResetCoderState: true,
		Status:          StatusBugsFound,
		LastOutput:      report,
	}, nil
}

// correction renders the preamble for a pending tool failure, or "" when none is pending.
func (e *Engine) correction(lastError string, allowed []string) (string, error) {
	if lastError == "" {
		return "", nil
	}
	return e.prompts.Render(templates.CorrectionTemplate, &templates.TemplateData{
		LastError:         lastError,
		ToolDocumentation: tools.PromptDocumentation(allowed),
	})
}

func planJSON(p *Plan) string {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", *p)
	}
	return string(data)
}
