package circuit

import (
	"context"
	"errors"

	"github.com/AkibDa/Code-Genesis/pkg/agent/llm"
	"github.com/AkibDa/Code-Genesis/pkg/agent/llmerrors"
	"github.com/AkibDa/Code-Genesis/pkg/agent/middleware/metrics"
)

// Middleware rejects calls while breaker is open, returning a service_unavailable
// error that wraps *OpenError. Calls ended by the caller's own context do not count,
// and neither do requests the provider answered with a rejection (see Unhealthy).
// The breaker state is reported to recorder after every call. A nil breaker
// disables the middleware.
func Middleware(breaker *Breaker, recorder metrics.Recorder) llm.Middleware {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	return func(next llm.LLMClient) llm.LLMClient {
		if breaker == nil {
			return next
		}
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				if !breaker.Allow() {
					open := &OpenError{Model: next.GetModelName(), Retry: breaker.reopensAt()}
					return llm.CompletionResponse{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeServiceUnavailable, open, open.Error())
				}

				resp, err := next.Complete(ctx, req)
				if err == nil || ctx.Err() == nil {
					breaker.Record(!Unhealthy(err))
					recorder.SetCircuitOpen(next.GetModelName(), breaker.State() == Open)
				}
				return resp, err //nolint:wrapcheck // Middleware should pass through errors unchanged
			},
			next.GetModelName,
		)
	}
}

// Unhealthy reports whether err counts against the model's breaker. A tool call,
// schema or prompt rejected by the provider proves the model is reachable, so
// only the remaining failures count.
func Unhealthy(err error) bool {
	if err == nil {
		return false
	}
	var llmErr *llmerrors.Error
	if errors.As(err, &llmErr) {
		switch llmErr.Type {
		case llmerrors.ErrorTypeToolValidation, llmerrors.ErrorTypeSchemaValidation, llmerrors.ErrorTypeBadPrompt:
			return false
		}
	}
	return true
}
