// Package config loads the code generator's configuration from a YAML file and
// CODEGEN_-prefixed environment variables through viper.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/AkibDa/Code-Genesis/pkg/agent/middleware/resilience/circuit"
	"github.com/AkibDa/Code-Genesis/pkg/agent/middleware/resilience/retry"
)

// Agent names. Each has its own model settings.
const (
	AgentPlanner   = "planner"
	AgentArchitect = "architect"
	AgentCoder     = "coder"
	AgentDebugger  = "debugger"
)

// Provider names.
const (
	ProviderAnthropic   = "anthropic"
	ProviderOpenAI      = "openai"
	ProviderGroq        = "groq"
	ProviderGoogle      = "google"
	ProviderOllama      = "ollama"
	ProviderHuggingFace = "huggingface"
)

// API key environment variable names.
const (
	EnvAnthropicAPIKey  = "ANTHROPIC_API_KEY"
	EnvOpenAIAPIKey     = "OPENAI_API_KEY"
	EnvGroqAPIKey       = "GROQ_API_KEY"
	EnvGeminiAPIKey     = "GEMINI_API_KEY"
	EnvHuggingFaceToken = "HUGGINGFACE_TOKEN"
	EnvOllamaHost       = "OLLAMA_HOST"
)

// Review match modes.
const (
	ReviewMatchExact    = "exact"
	ReviewMatchContains = "contains"
)

// Defaults.
const (
	DefaultConfigName     = "codegen"
	DefaultRecursionLimit = 100
	DefaultProjectRoot    = "generated_project"
	DefaultModel          = "groq/openai/gpt-oss-120b"
	DefaultLLMTimeout     = 60 * time.Second
	DefaultCommandTimeout = 2 * time.Minute
	DefaultMaxReadBytes   = 1 << 20
	DefaultMaxIterations  = 25
	DefaultMaxTokens      = 8192
	DefaultMetricsListen  = ":9090"
	DefaultOllamaHost     = "http://localhost:11434"
)

// AgentNames lists every agent in workflow order.
//
//nolint:gochecknoglobals // read-only list
var AgentNames = []string{AgentPlanner, AgentArchitect, AgentCoder, AgentDebugger}

// Config is the complete configuration.
type Config struct {
	Workflow  WorkflowConfig         `mapstructure:"workflow"`
	Agents    map[string]AgentConfig `mapstructure:"agents"`
	Retry     retry.Config           `mapstructure:"retry"`
	LLM       LLMConfig              `mapstructure:"llm"`
	Providers ProvidersConfig        `mapstructure:"providers"`
	Metrics   MetricsConfig          `mapstructure:"metrics"`
	Debug     DebugConfig            `mapstructure:"debug"`
	Tools     ToolsConfig            `mapstructure:"tools"`
}

// WorkflowConfig controls the engine.
type WorkflowConfig struct {
	RecursionLimit int    `mapstructure:"recursion_limit"`
	ProjectRoot    string `mapstructure:"project_root"`
	ClearBeforeRun bool   `mapstructure:"clear_before_run"`
	// CheckpointDB is the SQLite path for run checkpoints; empty disables them.
	CheckpointDB string `mapstructure:"checkpoint_db"`
	// EventsDir receives daily JSONL workflow event logs; empty disables them.
	EventsDir string `mapstructure:"events_dir"`
	// ReviewMatch decides how the reviewer's approval token is recognized.
	ReviewMatch string `mapstructure:"review_match"`
}

// AgentConfig holds one agent's model settings.
type AgentConfig struct {
	PrimaryModel  string  `mapstructure:"primary_model"`
	BackupModel   string  `mapstructure:"backup_model"`
	MaxTokens     int     `mapstructure:"max_tokens"`
	Temperature   float32 `mapstructure:"temperature"`
	MaxIterations int     `mapstructure:"max_iterations"`
}

// LLMConfig holds per-request transport settings shared by all agents.
type LLMConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	// Circuit trips a per-model breaker so a failing primary goes straight to its backup.
	Circuit circuit.Config `mapstructure:"circuit"`
}

// ProvidersConfig holds provider endpoints that are not secrets.
type ProvidersConfig struct {
	OllamaHost string `mapstructure:"ollama_host"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// DebugConfig controls debug logging.
type DebugConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Domains []string `mapstructure:"domains"`
}

// ToolsConfig controls the toolset.
type ToolsConfig struct {
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	MaxReadBytes   int64         `mapstructure:"max_read_bytes"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	agents := make(map[string]AgentConfig, len(AgentNames))
	for _, name := range AgentNames {
		agents[name] = defaultAgent(name)
	}
	return &Config{
		Workflow: WorkflowConfig{
			RecursionLimit: DefaultRecursionLimit,
			ProjectRoot:    DefaultProjectRoot,
			ReviewMatch:    ReviewMatchExact,
		},
		Agents: agents,
		Retry:  retry.DefaultConfig,
		LLM: LLMConfig{
			Timeout: DefaultLLMTimeout,
			Circuit: circuit.DefaultConfig,
		},
		Providers: ProvidersConfig{OllamaHost: DefaultOllamaHost},
		Metrics:   MetricsConfig{Listen: DefaultMetricsListen},
		Tools: ToolsConfig{
			CommandTimeout: DefaultCommandTimeout,
			MaxReadBytes:   DefaultMaxReadBytes,
		},
	}
}

func defaultAgent(name string) AgentConfig {
	temperature := float32(0.3)
	if name == AgentCoder {
		temperature = 0.2
	}
	return AgentConfig{
		PrimaryModel:  DefaultModel,
		MaxTokens:     DefaultMaxTokens,
		Temperature:   temperature,
		MaxIterations: DefaultMaxIterations,
	}
}

// Agent returns the settings of the named agent, falling back to defaults.
func (c *Config) Agent(name string) AgentConfig {
	if ac, ok := c.Agents[name]; ok {
		return ac
	}
	return defaultAgent(name)
}

// GetAPIKey returns the API key of a provider from the environment.
// For Ollama it returns the host URL instead.
func GetAPIKey(provider string) (string, error) {
	var envVar string
	switch provider {
	case ProviderAnthropic:
		envVar = EnvAnthropicAPIKey
	case ProviderOpenAI:
		envVar = EnvOpenAIAPIKey
	case ProviderGroq:
		envVar = EnvGroqAPIKey
	case ProviderGoogle:
		envVar = EnvGeminiAPIKey
	case ProviderHuggingFace:
		envVar = EnvHuggingFaceToken
	case ProviderOllama:
		if host := os.Getenv(EnvOllamaHost); host != "" {
			return host, nil
		}
		return DefaultOllamaHost, nil
	default:
		return "", fmt.Errorf("unknown provider: %s", provider)
	}

	if key := strings.TrimSpace(os.Getenv(envVar)); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("API key not found: %s is not set", envVar)
}
