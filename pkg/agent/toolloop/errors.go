package toolloop

import "errors"

var (
	// ErrMaxIterations indicates the model kept calling tools past Config.MaxIterations
	// without producing a final message.
	ErrMaxIterations = errors.New("maximum tool iterations exceeded")

	// ErrNoToolProvider is returned when Run is called without a provider.
	ErrNoToolProvider = errors.New("tool provider is required")
)
