// Package ratelimit provides rate limiting middleware for LLM clients.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/AkibDa/Code-Genesis/pkg/agent/llm"
	"github.com/AkibDa/Code-Genesis/pkg/agent/middleware/metrics"
)

// NewLimiter returns a token bucket admitting requestsPerMinute requests per minute
// with a burst of one. A non-positive rate yields nil, meaning unlimited.
func NewLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
}

// Middleware returns a middleware function that waits for the limiter before every request.
// Waiting time is recorded as queue wait; a cancelled wait is recorded as a throttle event.
func Middleware(limiter *rate.Limiter, recorder metrics.Recorder) llm.Middleware {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	return func(next llm.LLMClient) llm.LLMClient {
		if limiter == nil {
			return next
		}
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				model := next.GetModelName()

				start := time.Now()
				if err := limiter.Wait(ctx); err != nil {
					recorder.IncThrottle(model, "rate_limit")
					return llm.CompletionResponse{}, fmt.Errorf("rate limiter wait for %s: %w", model, err)
				}
				recorder.ObserveQueueWait(model, time.Since(start))

				return next.Complete(ctx, req)
			},
			next.GetModelName,
		)
	}
}
