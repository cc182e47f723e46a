package agent

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/AkibDa/Code-Genesis/pkg/agent/internal/llmimpl/anthropic"
	"github.com/AkibDa/Code-Genesis/pkg/agent/internal/llmimpl/google"
	"github.com/AkibDa/Code-Genesis/pkg/agent/internal/llmimpl/ollama"
	"github.com/AkibDa/Code-Genesis/pkg/agent/internal/llmimpl/openai"
	"github.com/AkibDa/Code-Genesis/pkg/agent/internal/llmimpl/openaiofficial"
	"github.com/AkibDa/Code-Genesis/pkg/agent/llm"
	"github.com/AkibDa/Code-Genesis/pkg/agent/middleware/fallback"
	"github.com/AkibDa/Code-Genesis/pkg/agent/middleware/metrics"
	"github.com/AkibDa/Code-Genesis/pkg/agent/middleware/resilience/circuit"
	"github.com/AkibDa/Code-Genesis/pkg/agent/middleware/resilience/ratelimit"
	"github.com/AkibDa/Code-Genesis/pkg/agent/middleware/resilience/retry"
	"github.com/AkibDa/Code-Genesis/pkg/agent/middleware/resilience/timeout"
	"github.com/AkibDa/Code-Genesis/pkg/config"
	"github.com/AkibDa/Code-Genesis/pkg/logx"
)

// RawClientFunc builds an unwrapped provider client for a model.
type RawClientFunc func(modelName string) (llm.LLMClient, error)

// ClientFactory creates LLM clients with properly configured middleware chains.
type ClientFactory struct {
	config   *config.Config
	recorder metrics.Recorder
	logger   *logx.Logger

	// newRaw is swapped in tests.
	newRaw RawClientFunc

	mu       sync.Mutex
	limiters map[string]*rate.Limiter    // per provider
	breakers map[string]*circuit.Breaker // per model
}

// NewClientFactory creates a factory. A nil recorder disables request metrics.
func NewClientFactory(cfg *config.Config, recorder metrics.Recorder, logger *logx.Logger) *ClientFactory {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	if logger == nil {
		logger = logx.NewLogger("factory")
	}
	f := &ClientFactory{
		config:   cfg,
		recorder: recorder,
		logger:   logger,
		limiters: make(map[string]*rate.Limiter),
		breakers: make(map[string]*circuit.Breaker),
	}
	f.newRaw = f.NewRawClient
	return f
}

// NewRawClient creates the provider client for a model name, without middleware.
// The API key is read from the provider's environment variable.
func (f *ClientFactory) NewRawClient(modelName string) (llm.LLMClient, error) {
	provider, apiModel, err := config.ResolveModel(modelName)
	if err != nil {
		return nil, fmt.Errorf("failed to determine provider for model %s: %w", modelName, err)
	}

	if provider == config.ProviderOllama {
		return ollama.NewOllamaClientWithModel(f.config.OllamaHost(), apiModel), nil
	}

	apiKey, err := config.GetAPIKey(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to get API key for provider %s: %w", provider, err)
	}

	switch provider {
	case config.ProviderAnthropic:
		return anthropic.NewClaudeClientWithModel(apiKey, apiModel), nil
	case config.ProviderOpenAI:
		return openaiofficial.NewOfficialClientWithModel(apiKey, apiModel), nil
	case config.ProviderGroq:
		return openai.NewChatClient(apiKey, openai.GroqBaseURL, apiModel), nil
	case config.ProviderHuggingFace:
		return openai.NewChatClient(apiKey, openai.HuggingFaceBaseURL, apiModel), nil
	case config.ProviderGoogle:
		return google.NewGeminiClientWithModel(apiKey, apiModel), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// CreateClient creates the client for an agent with the full middleware chain.
// When the agent has a backup model, a request that still fails after the primary's
// retries is sent to the backup, which has its own retry chain.
func (f *ClientFactory) CreateClient(agentName string) (llm.LLMClient, error) {
	ac := f.config.Agent(agentName)
	if ac.PrimaryModel == "" {
		return nil, fmt.Errorf("agent %s has no primary model", agentName)
	}

	primary, err := f.resilient(ac.PrimaryModel)
	if err != nil {
		return nil, err
	}

	var backup llm.LLMClient
	if ac.BackupModel != "" {
		if backup, err = f.resilient(ac.BackupModel); err != nil {
			return nil, fmt.Errorf("backup model for %s: %w", agentName, err)
		}
	}

	// Metrics -> Fallback -> (Circuit -> Retry -> RateLimit -> Timeout -> RawClient)
	return llm.Chain(primary,
		metrics.Middleware(f.recorder, nil, agentName, f.logger),
		fallback.Middleware(backup, f.recorder, f.logger),
	), nil
}

// resilient wraps a model's raw client in its breaker, retry, rate limiting and timeout.
func (f *ClientFactory) resilient(modelName string) (llm.LLMClient, error) {
	raw, err := f.newRaw(modelName)
	if err != nil {
		return nil, err
	}
	provider, _, err := config.ResolveModel(modelName)
	if err != nil {
		return nil, fmt.Errorf("failed to determine provider for model %s: %w", modelName, err)
	}

	policy := retry.NewPolicy(f.config.Retry, retry.ShouldRetry)
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		f.logger.Warn("Request to %s failed on attempt %d (%v), retrying in %s", modelName, attempt, err, delay)
	}

	timeoutDuration := f.config.LLM.Timeout
	if timeoutDuration <= 0 {
		timeoutDuration = timeout.DefaultTimeout
	}

	return llm.Chain(raw,
		circuit.Middleware(f.breaker(modelName), f.recorder),
		retry.Middleware(policy),
		ratelimit.Middleware(f.limiter(provider), f.recorder),
		timeout.Middleware(timeoutDuration),
	), nil
}

// limiter returns the shared limiter of a provider; nil when unlimited.
func (f *ClientFactory) limiter(provider string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.limiters[provider]; ok {
		return l
	}
	l := ratelimit.NewLimiter(f.config.LLM.RequestsPerMinute)
	f.limiters[provider] = l
	return l
}

// breaker returns the shared breaker of a model.
func (f *ClientFactory) breaker(modelName string) *circuit.Breaker {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.breakers[modelName]; ok {
		return b
	}
	b := circuit.New(f.config.LLM.Circuit)
	f.breakers[modelName] = b
	return b
}
