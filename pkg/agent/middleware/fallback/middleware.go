// Package fallback sends a failed request once more to a backup model.
package fallback

import (
	"context"
	"errors"

	"github.com/AkibDa/Code-Genesis/pkg/agent/llm"
	"github.com/AkibDa/Code-Genesis/pkg/agent/middleware/metrics"
	"github.com/AkibDa/Code-Genesis/pkg/logx"
)

// Middleware returns a middleware that retries a failed request on backup.
// Cancellation of the caller's context is never retried. The backup's error,
// if it fails too, is returned unchanged. A nil backup disables the middleware.
func Middleware(backup llm.LLMClient, recorder metrics.Recorder, logger *logx.Logger) llm.Middleware {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	return func(next llm.LLMClient) llm.LLMClient {
		if backup == nil {
			return next
		}
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				resp, err := next.Complete(ctx, req)
				if err == nil || errors.Is(err, context.Canceled) || ctx.Err() != nil {
					return resp, err //nolint:wrapcheck // Middleware should pass through errors unchanged
				}

				if logger != nil {
					logger.Warn("Primary model %s failed (%v), falling back to %s",
						next.GetModelName(), err, backup.GetModelName())
				}
				recorder.IncFallback(next.GetModelName(), backup.GetModelName())
				return backup.Complete(ctx, req) //nolint:wrapcheck // Middleware should pass through errors unchanged
			},
			next.GetModelName,
		)
	}
}
