package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/AkibDa/Code-Genesis/pkg/agent/llm"
	"github.com/AkibDa/Code-Genesis/pkg/config"
)

const pingPrompt = "Say OK if you're working"

// HealthResult is the outcome of pinging one model.
type HealthResult struct {
	Model    string
	Provider string
	Latency  time.Duration
	Err      error
	OK       bool
}

// Ping sends a minimal completion to client and returns the reply.
func Ping(ctx context.Context, client llm.LLMClient) (string, error) {
	resp, err := client.Complete(ctx, llm.CompletionRequest{
		Messages:  []llm.CompletionMessage{llm.NewUserMessage(pingPrompt)},
		MaxTokens: 16,
	})
	if err != nil {
		return "", fmt.Errorf("ping %s: %w", client.GetModelName(), err)
	}
	return resp.Content, nil
}

// CheckModels pings each model through its raw client, one after another.
func (f *ClientFactory) CheckModels(ctx context.Context, models []string) []HealthResult {
	results := make([]HealthResult, 0, len(models))
	for _, model := range models {
		res := HealthResult{Model: model}
		res.Provider, _, _ = config.ResolveModel(model)

		client, err := f.newRaw(model)
		if err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}

		start := time.Now()
		_, err = Ping(ctx, client)
		res.Latency = time.Since(start)
		res.Err = err
		res.OK = err == nil
		results = append(results, res)
	}
	return results
}
