package llmerrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStatusCodes(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorType
	}{
		{401, ErrorTypeAuth},
		{403, ErrorTypeAuth},
		{429, ErrorTypeRateLimit},
		{400, ErrorTypeBadPrompt},
		{500, ErrorTypeTransient},
		{503, ErrorTypeTransient},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := Classify(errors.New("boom"), tt.status)
			assert.Equal(t, tt.want, TypeOf(err))
		})
	}
}

func TestClassifyParsesStatusFromMessage(t *testing.T) {
	err := Classify(errors.New("POST /v1/messages: status code: 429 too many"), 0)
	assert.True(t, Is(err, ErrorTypeRateLimit))
}

func TestClassifyToolRejection(t *testing.T) {
	err := Classify(errors.New("400 Bad Request: tool call validation failed: attempted to call tool 'repo_browser.read_file'"), 400)
	assert.True(t, IsToolValidation(err))
}

func TestClassifyContextErrors(t *testing.T) {
	err := Classify(context.Canceled, 0)
	assert.Equal(t, context.Canceled, err)

	err = Classify(fmt.Errorf("wrapped: %w", context.DeadlineExceeded), 0)
	assert.True(t, Is(err, ErrorTypeTransient))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClassifyKeepsTypedErrors(t *testing.T) {
	in := NewError(ErrorTypeEmptyResponse, "empty")
	err := Classify(fmt.Errorf("ctx: %w", in), 500)
	var typed *Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, ErrorTypeEmptyResponse, typed.Type)
}

func TestClassifyFallbackPatterns(t *testing.T) {
	assert.True(t, Is(Classify(errors.New("connection refused"), 0), ErrorTypeTransient))
	assert.True(t, Is(Classify(errors.New("quota exhausted"), 0), ErrorTypeRateLimit))
	assert.True(t, Is(Classify(errors.New("something odd"), 0), ErrorTypeUnknown))
}

func TestExtractStatusCode(t *testing.T) {
	assert.Equal(t, 503, ExtractStatusCode("HTTP 503 Service Unavailable"))
	assert.Equal(t, 0, ExtractStatusCode("status: ok"))
	assert.Equal(t, 0, ExtractStatusCode("no code here"))
}

func TestExtractStatusCodeGenAIFormat(t *testing.T) {
	assert.Equal(t, 429, ExtractStatusCode("Error 429, Message: Resource has been exhausted, Status: RESOURCE_EXHAUSTED"))
}
