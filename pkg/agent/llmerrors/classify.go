package llmerrors

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// Classify converts a raw provider error into a typed *Error. statusCode is the HTTP
// status when the SDK exposes one, or 0 to fall back to parsing the error text.
// Context errors are returned unchanged so cancellation stays detectable with errors.Is.
func Classify(err error, statusCode int) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewErrorWithCause(ErrorTypeTransient, err, "request timeout")
	}

	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	errStr := err.Error()
	if IsProviderToolRejection(errStr) {
		e := NewErrorWithCause(ErrorTypeToolValidation, err, "provider rejected tool call")
		e.StatusCode = statusCode
		return e
	}

	if statusCode == 0 {
		statusCode = ExtractStatusCode(errStr)
	}

	var e *Error
	switch {
	case statusCode == 401 || statusCode == 403:
		e = NewErrorWithCause(ErrorTypeAuth, err, "authentication failed - check API key")
	case statusCode == 429:
		e = NewErrorWithCause(ErrorTypeRateLimit, err, "rate limit exceeded")
	case statusCode == 400 || statusCode == 404 || statusCode == 413 || statusCode == 422:
		e = NewErrorWithCause(ErrorTypeBadPrompt, err, "bad request - check prompt format and parameters")
	case statusCode == 408 || statusCode >= 500:
		e = NewErrorWithCause(ErrorTypeTransient, err, "server error")
	}
	if e != nil {
		e.StatusCode = statusCode
		return e
	}

	lower := strings.ToLower(errStr)
	switch {
	case containsAny(lower, "timeout", "connection", "network", "temporary", "eof", "reset"):
		return NewErrorWithCause(ErrorTypeTransient, err, "network or connection error")
	case containsAny(lower, "rate limit", "rate_limit", "quota"):
		return NewErrorWithCause(ErrorTypeRateLimit, err, "rate limiting detected")
	case containsAny(lower, "unauthorized", "api key", "authentication"):
		return NewErrorWithCause(ErrorTypeAuth, err, "authentication error")
	}
	return NewErrorWithCause(ErrorTypeUnknown, err, "unclassified error")
}

// ExtractStatusCode finds an HTTP status code embedded in an error message, or 0.
func ExtractStatusCode(errStr string) int {
	lower := strings.ToLower(errStr)
	for _, pattern := range []string{"status code: ", "status: ", "http ", "code ", "error "} {
		idx := strings.Index(lower, pattern)
		if idx == -1 {
			continue
		}
		start := idx + len(pattern)
		if start+3 > len(lower) {
			continue
		}
		code, err := strconv.Atoi(lower[start : start+3])
		if err == nil && code >= 400 && code < 600 {
			return code
		}
	}
	return 0
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
