package retry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AkibDa/Code-Genesis/pkg/agent/llm"
	"github.com/AkibDa/Code-Genesis/pkg/agent/llm/llmtest"
	"github.com/AkibDa/Code-Genesis/pkg/agent/llmerrors"
)

func networkPolicy(attempts int) *Policy {
	p := fastPolicy(attempts)
	p.Classifier = ShouldRetry
	return p
}

func TestMiddleware_RetriesTransient(t *testing.T) {
	mock := llmtest.NewMockClient("m",
		llmtest.Fail(llmerrors.NewError(llmerrors.ErrorTypeTransient, "502")),
		llmtest.Reply("done"),
	)
	client := llm.Chain(mock, Middleware(networkPolicy(3)))

	resp, err := client.Complete(context.Background(), llm.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Content)
	assert.Len(t, mock.Requests(), 2)
	assert.Equal(t, "m", client.GetModelName())
}

func TestMiddleware_PassesThroughNonRetryable(t *testing.T) {
	toolErr := llmerrors.NewToolValidationError("bad call")
	mock := llmtest.NewMockClient("m", llmtest.Fail(toolErr))
	client := llm.Chain(mock, Middleware(networkPolicy(3)))

	_, err := client.Complete(context.Background(), llm.CompletionRequest{})
	assert.Same(t, toolErr, err)
	assert.Len(t, mock.Requests(), 1)
}

func TestMiddleware_ExhaustedBecomesServiceUnavailable(t *testing.T) {
	mock := llmtest.NewMockClient("m",
		llmtest.Fail(errors.New("connection refused")),
		llmtest.Fail(errors.New("connection refused")),
	)
	client := llm.Chain(mock, Middleware(networkPolicy(2)))

	_, err := client.Complete(context.Background(), llm.CompletionRequest{})
	assert.True(t, llmerrors.IsServiceUnavailable(err))
	assert.Len(t, mock.Requests(), 2)
}
