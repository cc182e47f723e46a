package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CODEGEN_WORKFLOW_RECURSION_LIMIT.
const EnvPrefix = "CODEGEN"

// Load reads configuration. An explicit path must exist; with an empty path a
// codegen.yaml in the working directory is used when present.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults registers default values with viper. Every key is registered so
// environment overrides apply to it.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("workflow.recursion_limit", d.Workflow.RecursionLimit)
	v.SetDefault("workflow.project_root", d.Workflow.ProjectRoot)
	v.SetDefault("workflow.clear_before_run", d.Workflow.ClearBeforeRun)
	v.SetDefault("workflow.checkpoint_db", d.Workflow.CheckpointDB)
	v.SetDefault("workflow.events_dir", d.Workflow.EventsDir)
	v.SetDefault("workflow.review_match", d.Workflow.ReviewMatch)

	for _, name := range AgentNames {
		ac := d.Agents[name]
		prefix := "agents." + name + "."
		v.SetDefault(prefix+"primary_model", ac.PrimaryModel)
		v.SetDefault(prefix+"backup_model", ac.BackupModel)
		v.SetDefault(prefix+"max_tokens", ac.MaxTokens)
		v.SetDefault(prefix+"temperature", ac.Temperature)
		v.SetDefault(prefix+"max_iterations", ac.MaxIterations)
	}

	v.SetDefault("retry.max_attempts", d.Retry.MaxAttempts)
	v.SetDefault("retry.initial_delay", d.Retry.InitialDelay)
	v.SetDefault("retry.max_delay", d.Retry.MaxDelay)
	v.SetDefault("retry.backoff_factor", d.Retry.BackoffFactor)
	v.SetDefault("retry.jitter", d.Retry.Jitter)

	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.requests_per_minute", d.LLM.RequestsPerMinute)
	v.SetDefault("llm.circuit.failure_threshold", d.LLM.Circuit.FailureThreshold)
	v.SetDefault("llm.circuit.success_threshold", d.LLM.Circuit.SuccessThreshold)
	v.SetDefault("llm.circuit.cooldown", d.LLM.Circuit.Cooldown)

	v.SetDefault("providers.ollama_host", d.Providers.OllamaHost)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.listen", d.Metrics.Listen)

	v.SetDefault("debug.enabled", d.Debug.Enabled)
	v.SetDefault("debug.domains", d.Debug.Domains)

	v.SetDefault("tools.command_timeout", d.Tools.CommandTimeout)
	v.SetDefault("tools.max_read_bytes", d.Tools.MaxReadBytes)
}
