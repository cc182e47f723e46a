package metrics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// TokenUsage is the token total of one agent.
type TokenUsage struct {
	AgentID          string `json:"agent_id" yaml:"agent_id"`
	PromptTokens     int64  `json:"prompt_tokens" yaml:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens" yaml:"completion_tokens"`
	TotalTokens      int64  `json:"total_tokens" yaml:"total_tokens"`
}

// Stats aggregates what a Prometheus server scraped from code generation runs.
type Stats struct {
	Runs   map[string]int64 `json:"runs" yaml:"runs"` // by result
	Tokens []TokenUsage     `json:"tokens" yaml:"tokens"`
}

// QueryService provides methods to query metrics from Prometheus.
type QueryService struct {
	queryAPI v1.API
}

// NewQueryService creates a new metrics query service.
func NewQueryService(prometheusURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{
		Address: prometheusURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}
	return &QueryService{queryAPI: v1.NewAPI(client)}, nil
}

// GetStats retrieves run counts by result and token totals by agent.
func (q *QueryService) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Runs: make(map[string]int64)}

	runs, err := q.vector(ctx, `sum by (result) (workflow_runs_total)`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	for _, sample := range runs {
		stats.Runs[string(sample.Metric["result"])] = int64(sample.Value)
	}

	tokens, err := q.vector(ctx, `sum by (agent_id, type) (llm_tokens_total)`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tokens: %w", err)
	}
	byAgent := make(map[string]*TokenUsage)
	for _, sample := range tokens {
		agentID := string(sample.Metric["agent_id"])
		usage, ok := byAgent[agentID]
		if !ok {
			usage = &TokenUsage{AgentID: agentID}
			byAgent[agentID] = usage
		}
		switch sample.Metric["type"] {
		case "prompt":
			usage.PromptTokens += int64(sample.Value)
		case "completion":
			usage.CompletionTokens += int64(sample.Value)
		}
	}
	for _, usage := range byAgent {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
		stats.Tokens = append(stats.Tokens, *usage)
	}
	sort.Slice(stats.Tokens, func(i, j int) bool { return stats.Tokens[i].AgentID < stats.Tokens[j].AgentID })

	return stats, nil
}

func (q *QueryService) vector(ctx context.Context, query string) (model.Vector, error) {
	result, _, err := q.queryAPI.Query(ctx, query, time.Now())
	if err != nil {
		return nil, err //nolint:wrapcheck // callers add the query context
	}
	vector, ok := result.(model.Vector)
	if !ok {
		return nil, fmt.Errorf("unexpected result type %s", result.Type())
	}
	return vector, nil
}
