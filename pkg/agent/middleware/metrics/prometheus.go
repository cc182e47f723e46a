package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder exports request metrics to a Prometheus registry.
type PrometheusRecorder struct {
	requests    *prometheus.CounterVec
	tokens      *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	throttles   *prometheus.CounterVec
	queueWait   *prometheus.HistogramVec
	fallbacks   *prometheus.CounterVec
	circuitOpen *prometheus.GaugeVec
}

// NewPrometheusRecorder registers the llm_* metrics with reg.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	f := promauto.With(reg)
	return &PrometheusRecorder{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "Model requests by model, agent, status and error type.",
		}, []string{"model", "agent_id", "status", "error_type"}),
		tokens: f.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Tokens of successful model requests by type (prompt or completion).",
		}, []string{"model", "agent_id", "type"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "Model request latency, retries and fallbacks included.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
		}, []string{"model", "agent_id"}),
		throttles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_throttle_total",
			Help: "Requests delayed by the client-side rate limiter.",
		}, []string{"model", "reason"}),
		queueWait: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "llm_queue_wait_duration_seconds",
			Help:    "Time spent waiting for the rate limiter.",
			Buckets: prometheus.DefBuckets,
		}, []string{"model"}),
		fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_fallbacks_total",
			Help: "Requests handed from a failing primary model to its backup.",
		}, []string{"primary", "backup"}),
		circuitOpen: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "llm_circuit_open",
			Help: "1 while the circuit breaker of a model rejects calls.",
		}, []string{"model"}),
	}
}

// ObserveRequest implements Recorder. Tokens are only counted for successful requests.
func (p *PrometheusRecorder) ObserveRequest(model, agentID string, promptTokens, completionTokens int, success bool, errorType string, duration time.Duration) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	p.requests.WithLabelValues(model, agentID, status, errorType).Inc()
	p.duration.WithLabelValues(model, agentID).Observe(duration.Seconds())
	if !success {
		return
	}
	p.tokens.WithLabelValues(model, agentID, "prompt").Add(float64(promptTokens))
	p.tokens.WithLabelValues(model, agentID, "completion").Add(float64(completionTokens))
}

// IncThrottle implements Recorder.
func (p *PrometheusRecorder) IncThrottle(model, reason string) {
	p.throttles.WithLabelValues(model, reason).Inc()
}

// ObserveQueueWait implements Recorder.
func (p *PrometheusRecorder) ObserveQueueWait(model string, duration time.Duration) {
	p.queueWait.WithLabelValues(model).Observe(duration.Seconds())
}

// IncFallback implements Recorder.
func (p *PrometheusRecorder) IncFallback(primary, backup string) {
	p.fallbacks.WithLabelValues(primary, backup).Inc()
}

// SetCircuitOpen implements Recorder.
func (p *PrometheusRecorder) SetCircuitOpen(model string, open bool) {
	v := 0.0
	if open {
		v = 1
	}
	p.circuitOpen.WithLabelValues(model).Set(v)
}
