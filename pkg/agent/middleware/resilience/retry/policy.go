// Package retry provides bounded-attempt retry with exponential backoff,
// both as LLM client middleware and as a generic wrapper for workflow stage calls.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/AkibDa/Code-Genesis/pkg/agent/llmerrors"
)

// Config defines configuration for retry behavior.
type Config struct {
	MaxAttempts   int           `json:"max_attempts" mapstructure:"max_attempts"`     // Maximum number of attempts (including initial)
	InitialDelay  time.Duration `json:"initial_delay" mapstructure:"initial_delay"`   // Seed delay before the first retry
	MaxDelay      time.Duration `json:"max_delay" mapstructure:"max_delay"`           // Cap on any single delay
	BackoffFactor float64       `json:"backoff_factor" mapstructure:"backoff_factor"` // Multiplier for exponential backoff
	Jitter        bool          `json:"jitter" mapstructure:"jitter"`                 // Randomize each delay
}

// DefaultConfig is three attempts with random exponential waits between one and eight seconds.
//
//nolint:gochecknoglobals // Sensible default config pattern
var DefaultConfig = Config{
	MaxAttempts:   3,
	InitialDelay:  1 * time.Second,
	MaxDelay:      8 * time.Second,
	BackoffFactor: 2.0,
	Jitter:        true,
}

// Classifier determines if an error should be retried.
type Classifier func(error) bool

// Always retries every failure except cancellation of the caller's context.
// Stage calls use it: deciding whether a failure is recoverable is the caller's job.
func Always(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// ShouldRetry is the network classifier used by the client middleware.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	var llmErr *llmerrors.Error
	if errors.As(err, &llmErr) {
		return llmErr.IsRetryable()
	}

	// Per-request timeouts wrap DeadlineExceeded while the parent context is still live.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	for _, pattern := range []string{"timeout", "connection", "network", "temporary", "eof", "rate limit", "rate_limit", "429", "500", "502", "503", "504"} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// Policy encapsulates retry configuration and logic.
//
//nolint:govet // Simple struct, logical grouping preferred
type Policy struct {
	Config     Config
	Classifier Classifier
	// OnRetry, when set, is called before each wait with the attempt that just failed.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// NewPolicy creates a new retry policy with the given configuration and classifier.
func NewPolicy(config Config, classifier Classifier) *Policy {
	if classifier == nil {
		classifier = ShouldRetry
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.BackoffFactor < 1 {
		config.BackoffFactor = 1
	}
	return &Policy{
		Config:     config,
		Classifier: classifier,
	}
}

// CalculateDelay computes the wait before the given attempt (1-based).
// The first attempt never waits. Later attempts wait InitialDelay*BackoffFactor^(attempt-2),
// capped at MaxDelay; with jitter the wait is drawn uniformly between InitialDelay and that value.
func (p *Policy) CalculateDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	ceiling := time.Duration(float64(p.Config.InitialDelay) * math.Pow(p.Config.BackoffFactor, float64(attempt-2)))
	if ceiling > p.Config.MaxDelay || ceiling < 0 {
		ceiling = p.Config.MaxDelay
	}

	if !p.Config.Jitter || ceiling <= p.Config.InitialDelay {
		return ceiling
	}

	spread := ceiling - p.Config.InitialDelay
	return p.Config.InitialDelay + time.Duration(rand.Int64N(int64(spread)+1))
}

// ShouldRetry determines if an error should be retried based on the configured classifier.
func (p *Policy) ShouldRetry(err error) bool {
	return p.Classifier(err)
}

// wait blocks for the delay before attempt, or until ctx is done.
func (p *Policy) wait(ctx context.Context, attempt int, lastErr error) error {
	delay := p.CalculateDelay(attempt)
	if p.OnRetry != nil {
		p.OnRetry(attempt-1, lastErr, delay)
	}
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
