package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Validate checks the configuration and returns every problem found, or nil.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field string, value any, msg string) {
		errs = append(errs, ValidationError{Field: field, Value: value, Message: msg})
	}

	if c.Workflow.RecursionLimit < 1 {
		add("workflow.recursion_limit", c.Workflow.RecursionLimit, "must be at least 1")
	}
	if strings.TrimSpace(c.Workflow.ProjectRoot) == "" {
		add("workflow.project_root", c.Workflow.ProjectRoot, "must not be empty")
	}
	switch c.Workflow.ReviewMatch {
	case ReviewMatchExact, ReviewMatchContains:
	default:
		add("workflow.review_match", c.Workflow.ReviewMatch, "must be exact or contains")
	}

	for _, name := range AgentNames {
		ac := c.Agent(name)
		field := "agents." + name
		if ac.PrimaryModel == "" {
			add(field+".primary_model", ac.PrimaryModel, "must not be empty")
		} else if _, _, err := ResolveModel(ac.PrimaryModel); err != nil {
			add(field+".primary_model", ac.PrimaryModel, err.Error())
		}
		if ac.BackupModel != "" {
			if _, _, err := ResolveModel(ac.BackupModel); err != nil {
				add(field+".backup_model", ac.BackupModel, err.Error())
			}
		}
		if ac.MaxTokens <= 0 {
			add(field+".max_tokens", ac.MaxTokens, "must be positive")
		}
		if ac.Temperature < 0 || ac.Temperature > 2 {
			add(field+".temperature", ac.Temperature, "must be between 0 and 2")
		}
	}

	if c.Retry.MaxAttempts < 1 {
		add("retry.max_attempts", c.Retry.MaxAttempts, "must be at least 1")
	}
	if c.Retry.InitialDelay < 0 || c.Retry.MaxDelay < c.Retry.InitialDelay {
		add("retry.max_delay", c.Retry.MaxDelay, "must not be below retry.initial_delay")
	}
	if c.LLM.RequestsPerMinute < 0 {
		add("llm.requests_per_minute", c.LLM.RequestsPerMinute, "must not be negative")
	}
	if c.LLM.Circuit.FailureThreshold < 0 {
		add("llm.circuit.failure_threshold", c.LLM.Circuit.FailureThreshold, "must not be negative (0 disables)")
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
