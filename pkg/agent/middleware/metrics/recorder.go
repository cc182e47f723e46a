// Package metrics records what happens to model requests: outcome, tokens,
// latency, throttling, fallbacks and circuit state.
package metrics

import "time"

// Recorder receives model request metrics. Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveRequest(model, agentID string, promptTokens, completionTokens int, success bool, errorType string, duration time.Duration)
	IncThrottle(model, reason string)
	ObserveQueueWait(model string, duration time.Duration)
	// IncFallback counts a request handed from a failing primary to its backup.
	IncFallback(primary, backup string)
	// SetCircuitOpen reports whether the breaker of model is rejecting calls.
	SetCircuitOpen(model string, open bool)
}

// Nop returns a recorder that discards everything.
func Nop() Recorder {
	return nopRecorder{}
}

type nopRecorder struct{}

func (nopRecorder) ObserveRequest(_, _ string, _, _ int, _ bool, _ string, _ time.Duration) {}
func (nopRecorder) IncThrottle(_, _ string)                                                 {}
func (nopRecorder) ObserveQueueWait(_ string, _ time.Duration)                              {}
func (nopRecorder) IncFallback(_, _ string)                                                 {}
func (nopRecorder) SetCircuitOpen(_ string, _ bool)                                         {}
