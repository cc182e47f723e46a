package workflow

// Delta is the set of fields a stage asks the engine to change.
// Zero-valued fields leave the state untouched, except LastError, which the
// engine has already cleared when the stage started and which Apply always writes.
type Delta struct {
	Plan       *Plan
	TaskPlan   *TaskPlan
	CoderState *CoderState
	// ResetCoderState discards the coder cursor so the next coder pass starts at step 0.
	ResetCoderState bool
	Status          Status
	LastOutput      string
	LastError       string
}

// Apply merges d into s.
func (d *Delta) Apply(s *WorkflowState) {
	if d.Plan != nil {
		s.Plan = d.Plan
	}
	if d.TaskPlan != nil {
		s.TaskPlan = d.TaskPlan
	}
	switch {
	case d.ResetCoderState:
		s.CoderState = nil
	case d.CoderState != nil:
		s.CoderState = d.CoderState
	}
	if d.Status != "" {
		s.Status = d.Status
	}
	if d.LastOutput != "" {
		s.LastOutput = d.LastOutput
	}
	s.LastError = d.LastError
}
