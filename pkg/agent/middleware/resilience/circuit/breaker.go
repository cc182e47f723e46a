// Package circuit stops calling a model that keeps failing.
package circuit

import (
	"fmt"
	"sync"
	"time"
)

// State is the position of a breaker.
type State int

// Breaker states.
const (
	Closed   State = iota // calls pass through
	Open                  // calls are rejected until the cool-down ends
	HalfOpen              // calls pass through as trial calls
)

func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Open:
		return "OPEN"
	case HalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Config sets when a breaker opens and closes again. A FailureThreshold of zero
// disables the breaker.
type Config struct {
	FailureThreshold int           `json:"failure_threshold" mapstructure:"failure_threshold"` // consecutive failures that open it
	SuccessThreshold int           `json:"success_threshold" mapstructure:"success_threshold"` // trial successes that close it
	Cooldown         time.Duration `json:"cooldown" mapstructure:"cooldown"`                   // time spent open before probing
}

// DefaultConfig opens after five straight failures and allows a trial call after thirty seconds.
//
//nolint:gochecknoglobals // Sensible default config pattern
var DefaultConfig = Config{
	FailureThreshold: 5,
	SuccessThreshold: 1,
	Cooldown:         30 * time.Second,
}

// OpenError is returned for a call rejected by an open breaker.
type OpenError struct {
	Model string
	Retry time.Time
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit for %s is open until %s", e.Model, e.Retry.Format(time.RFC3339))
}

// Breaker tracks consecutive failures of one model. It is safe for concurrent use.
type Breaker struct {
	config    Config
	now       func() time.Time
	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
}

// New creates a closed breaker.
func New(config Config) *Breaker {
	if config.SuccessThreshold < 1 {
		config.SuccessThreshold = 1
	}
	return &Breaker{config: config, now: time.Now}
}

// Allow reports whether a call may proceed. An open breaker moves to
// half-open once its cool-down has passed.
func (b *Breaker) Allow() bool {
	if b.config.FailureThreshold <= 0 {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Open {
		if b.now().Sub(b.openedAt) < b.config.Cooldown {
			return false
		}
		b.state = HalfOpen
		b.successes = 0
	}
	return true
}

// Record counts the outcome of an allowed call.
func (b *Breaker) Record(success bool) {
	if b.config.FailureThreshold <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if success {
		b.failures = 0
		if b.state == HalfOpen {
			b.successes++
			if b.successes >= b.config.SuccessThreshold {
				b.state = Closed
			}
		}
		return
	}

	b.failures++
	// A failed trial call reopens at once.
	if b.state == HalfOpen || b.failures >= b.config.FailureThreshold {
		b.state = Open
		b.openedAt = b.now()
		b.successes = 0
	}
}

// State returns the current state without advancing it.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// reopensAt is when an open breaker will next allow a trial call.
func (b *Breaker) reopensAt() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.openedAt.Add(b.config.Cooldown)
}

// Reset closes the breaker and forgets its history.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.failures = 0
	b.successes = 0
}
