package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AkibDa/Code-Genesis/pkg/agent/llm"
	"github.com/AkibDa/Code-Genesis/pkg/agent/llm/llmtest"
	"github.com/AkibDa/Code-Genesis/pkg/agent/llmerrors"
	"github.com/AkibDa/Code-Genesis/pkg/agent/middleware/resilience/circuit"
	"github.com/AkibDa/Code-Genesis/pkg/agent/middleware/resilience/retry"
	"github.com/AkibDa/Code-Genesis/pkg/config"
	"github.com/AkibDa/Code-Genesis/pkg/workflow"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Retry = retry.Config{MaxAttempts: 2, BackoffFactor: 1}
	cfg.LLM.Timeout = time.Second
	return cfg
}

// withMocks makes the factory hand out the given mocks instead of provider clients.
func withMocks(f *ClientFactory, mocks map[string]*llmtest.MockClient) {
	f.newRaw = func(model string) (llm.LLMClient, error) {
		m, ok := mocks[model]
		if !ok {
			return nil, errors.New("no mock for " + model)
		}
		return m, nil
	}
}

func TestNewRawClient_Providers(t *testing.T) {
	t.Setenv(config.EnvAnthropicAPIKey, "sk-ant")
	t.Setenv(config.EnvOpenAIAPIKey, "sk-openai")
	t.Setenv(config.EnvGroqAPIKey, "gsk")
	t.Setenv(config.EnvGeminiAPIKey, "gem")
	t.Setenv(config.EnvHuggingFaceToken, "hf")

	f := NewClientFactory(testConfig(), nil, nil)
	for _, model := range []string{
		"claude-sonnet-4-5",
		"gpt-4o",
		"groq/openai/gpt-oss-120b",
		"gemini-2.5-flash",
		"ollama/llama3",
		"huggingface/meta-llama/Llama-3.1-8B-Instruct",
		"Qwen/Qwen2.5-Coder-32B-Instruct",
	} {
		client, err := f.NewRawClient(model)
		require.NoError(t, err, model)
		assert.NotNil(t, client, model)
	}

	_, err := f.NewRawClient("mystery-model")
	assert.Error(t, err)
}

func TestNewRawClient_MissingKey(t *testing.T) {
	t.Setenv(config.EnvAnthropicAPIKey, "")
	_, err := NewClientFactory(testConfig(), nil, nil).NewRawClient("claude-sonnet-4-5")
	assert.ErrorContains(t, err, config.EnvAnthropicAPIKey)

	t.Setenv(config.EnvHuggingFaceToken, "")
	_, err = NewClientFactory(testConfig(), nil, nil).NewRawClient("deepseek-ai/DeepSeek-V3")
	assert.ErrorContains(t, err, config.EnvHuggingFaceToken)
}

func TestCreateClient_RetriesThenSucceeds(t *testing.T) {
	cfg := testConfig()
	cfg.Agents[config.AgentCoder] = config.AgentConfig{PrimaryModel: "groq/primary"}

	primary := llmtest.NewMockClient("primary",
		llmtest.Fail(llmerrors.NewError(llmerrors.ErrorTypeTransient, "503 from upstream")),
		llmtest.Reply("ok"),
	)
	f := NewClientFactory(cfg, nil, nil)
	withMocks(f, map[string]*llmtest.MockClient{"groq/primary": primary})

	client, err := f.CreateClient(config.AgentCoder)
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), llm.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Len(t, primary.Requests(), 2)
}

func TestCreateClient_FallsBackToBackup(t *testing.T) {
	cfg := testConfig()
	cfg.Agents[config.AgentPlanner] = config.AgentConfig{PrimaryModel: "groq/primary", BackupModel: "groq/backup"}

	down := llmerrors.NewError(llmerrors.ErrorTypeTransient, "503 from upstream")
	primary := llmtest.NewMockClient("primary", llmtest.Fail(down), llmtest.Fail(down))
	backup := llmtest.NewMockClient("backup", llmtest.Reply("from backup"))

	f := NewClientFactory(cfg, nil, nil)
	withMocks(f, map[string]*llmtest.MockClient{"groq/primary": primary, "groq/backup": backup})

	client, err := f.CreateClient(config.AgentPlanner)
	require.NoError(t, err)
	assert.Equal(t, "primary", client.GetModelName())

	resp, err := client.Complete(context.Background(), llm.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "from backup", resp.Content)
	assert.Len(t, primary.Requests(), 2, "primary exhausts its retries first")
	assert.Len(t, backup.Requests(), 1)
}

func TestCreateClient_OpenCircuitSkipsPrimary(t *testing.T) {
	cfg := testConfig()
	cfg.LLM.Circuit = circuit.Config{FailureThreshold: 1, Cooldown: time.Hour}
	cfg.Agents[config.AgentArchitect] = config.AgentConfig{PrimaryModel: "groq/primary", BackupModel: "groq/backup"}

	down := llmerrors.NewError(llmerrors.ErrorTypeTransient, "503 from upstream")
	primary := llmtest.NewMockClient("primary", llmtest.Fail(down), llmtest.Fail(down))
	backup := llmtest.NewMockClient("backup", llmtest.Reply("one"), llmtest.Reply("two"))

	f := NewClientFactory(cfg, nil, nil)
	withMocks(f, map[string]*llmtest.MockClient{"groq/primary": primary, "groq/backup": backup})
	client, err := f.CreateClient(config.AgentArchitect)
	require.NoError(t, err)

	for _, want := range []string{"one", "two"} {
		resp, err := client.Complete(context.Background(), llm.CompletionRequest{})
		require.NoError(t, err)
		assert.Equal(t, want, resp.Content)
	}
	assert.Len(t, primary.Requests(), 2, "second call must not reach the primary")
	assert.Equal(t, circuit.Open, f.breaker("groq/primary").State())
}

func TestCreateClient_ToolRejectionsNeverOpenCircuit(t *testing.T) {
	cfg := testConfig()
	cfg.Agents[config.AgentCoder] = config.AgentConfig{PrimaryModel: "groq/primary"}

	rejected := errors.New("400 Bad Request: tool call validation failed: attempted to call tool 'bash' which was not in request.tools")
	calls := 2 * cfg.LLM.Circuit.FailureThreshold
	primary := llmtest.NewMockClient("primary")
	for range calls {
		primary.Push(llmtest.Fail(llmerrors.Classify(rejected, 400)))
	}
	primary.Push(llmtest.Reply("ok"))

	f := NewClientFactory(cfg, nil, nil)
	withMocks(f, map[string]*llmtest.MockClient{"groq/primary": primary})
	client, err := f.CreateClient(config.AgentCoder)
	require.NoError(t, err)

	for i := range calls {
		_, err := client.Complete(context.Background(), llm.CompletionRequest{})
		require.Error(t, err)
		assert.Equal(t, workflow.ClassTransientTool, workflow.Classify(err), "call %d", i)
		assert.Equal(t, circuit.Closed, f.breaker("groq/primary").State(), "call %d", i)
	}

	resp, err := client.Complete(context.Background(), llm.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Len(t, primary.Requests(), calls+1, "rejected tool calls are not retried by the client")
}

func TestCreateClient_RequiresPrimaryModel(t *testing.T) {
	cfg := testConfig()
	cfg.Agents[config.AgentDebugger] = config.AgentConfig{}
	_, err := NewClientFactory(cfg, nil, nil).CreateClient(config.AgentDebugger)
	assert.Error(t, err)
}

func TestLimiterIsSharedPerProvider(t *testing.T) {
	cfg := testConfig()
	cfg.LLM.RequestsPerMinute = 60
	f := NewClientFactory(cfg, nil, nil)

	assert.Same(t, f.limiter(config.ProviderGroq), f.limiter(config.ProviderGroq))
	assert.NotSame(t, f.limiter(config.ProviderGroq), f.limiter(config.ProviderAnthropic))

	cfg.LLM.RequestsPerMinute = 0
	assert.Nil(t, NewClientFactory(cfg, nil, nil).limiter(config.ProviderGroq))
}

func TestCheckModels(t *testing.T) {
	f := NewClientFactory(testConfig(), nil, nil)
	withMocks(f, map[string]*llmtest.MockClient{
		"groq/up":   llmtest.NewMockClient("up", llmtest.Reply("OK")),
		"groq/down": llmtest.NewMockClient("down", llmtest.Fail(errors.New("unauthorized"))),
	})

	results := f.CheckModels(context.Background(), []string{"groq/up", "groq/down", "groq/missing"})
	require.Len(t, results, 3)

	assert.True(t, results[0].OK)
	assert.Equal(t, config.ProviderGroq, results[0].Provider)
	assert.NoError(t, results[0].Err)

	assert.False(t, results[1].OK)
	assert.ErrorContains(t, results[1].Err, "unauthorized")

	assert.False(t, results[2].OK)
	assert.Error(t, results[2].Err)
}
