// Package metrics records workflow metrics in Prometheus, serves and dumps them,
// and queries a Prometheus server for run and token totals.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AkibDa/Code-Genesis/pkg/workflow"
)

// WorkflowRecorder implements workflow.Recorder using Prometheus metrics.
type WorkflowRecorder struct {
	transitions   *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec
	runs          *prometheus.CounterVec
}

// NewWorkflowRecorder registers the workflow metrics with reg.
func NewWorkflowRecorder(reg prometheus.Registerer) *WorkflowRecorder {
	factory := promauto.With(reg)
	return &WorkflowRecorder{
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workflow_transitions_total",
				Help: "Total number of workflow transitions by source and target node",
			},
			[]string{"from", "to"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "workflow_stage_duration_seconds",
				Help:    "Duration of workflow stages in seconds",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"stage"},
		),
		stageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workflow_stage_errors_total",
				Help: "Total number of stage failures by stage and error class",
			},
			[]string{"stage", "class"},
		),
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workflow_runs_total",
				Help: "Total number of finished workflow runs by result",
			},
			[]string{"result"},
		),
	}
}

// ObserveTransition implements workflow.Recorder.
func (r *WorkflowRecorder) ObserveTransition(from, to workflow.Node) {
	r.transitions.WithLabelValues(string(from), string(to)).Inc()
}

// ObserveStage implements workflow.Recorder.
func (r *WorkflowRecorder) ObserveStage(node workflow.Node, duration time.Duration) {
	r.stageDuration.WithLabelValues(string(node)).Observe(duration.Seconds())
}

// IncStageError implements workflow.Recorder.
func (r *WorkflowRecorder) IncStageError(node workflow.Node, class workflow.ErrorClass) {
	r.stageErrors.WithLabelValues(string(node), string(class)).Inc()
}

// IncRun implements workflow.Recorder.
func (r *WorkflowRecorder) IncRun(result string) {
	r.runs.WithLabelValues(result).Inc()
}
