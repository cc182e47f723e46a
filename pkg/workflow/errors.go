package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/AkibDa/Code-Genesis/pkg/agent/llmerrors"
)

var (
	// ErrRecursionLimit is returned when a run needs more transitions than its limit allows.
	ErrRecursionLimit = errors.New("recursion limit reached")
	// ErrEmptyPrompt is returned by Run for a blank request.
	ErrEmptyPrompt = errors.New("user prompt cannot be empty")
	// ErrMissingInput is returned when a stage runs without the state it needs.
	ErrMissingInput = errors.New("stage input missing")
	// ErrRunNotFound is returned by Resume for an unknown run.
	ErrRunNotFound = errors.New("run not found")
)

// ErrorClass is how the engine treats a stage failure.
type ErrorClass string

const (
	// ClassTransientTool failures are recovered by re-entering the stage with a correction preamble.
	ClassTransientTool ErrorClass = "transient_tool"
	// ClassFatal failures end the run.
	ClassFatal ErrorClass = "fatal"
)

// Classify decides whether a model or agent failure is recoverable. Only tool
// invocation failures are; everything else, including exhausted network retries
// and schema failures, is fatal.
func Classify(err error) ErrorClass {
	if err == nil || errors.Is(err, context.Canceled) {
		return ClassFatal
	}
	if llmerrors.IsToolValidation(err) {
		return ClassTransientTool
	}
	return ClassFatal
}

// StageError identifies the stage that ended a run.
type StageError struct {
	Stage Node
	// LastError is the pending tool failure text when the stage started, if any.
	LastError string
	Err       error
}

func (e *StageError) Error() string {
	if e.LastError != "" {
		return fmt.Sprintf("stage %s failed: %v (last error: %s)", e.Stage, e.Err, e.LastError)
	}
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
