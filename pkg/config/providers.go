package config

import (
	"fmt"
	"os"
	"strings"
)

// ProviderPattern represents a pattern for inferring provider from model name.
// When Strip is set the prefix is removed before the name is sent to the provider.
type ProviderPattern struct {
	Prefix   string
	Provider string
	Strip    bool
}

// ProviderPatterns maps model name prefixes to providers, first match wins.
//
//nolint:gochecknoglobals // Intentional global for inference rules
var ProviderPatterns = []ProviderPattern{
	{Prefix: "groq/", Provider: ProviderGroq, Strip: true},
	{Prefix: "ollama/", Provider: ProviderOllama, Strip: true},
	{Prefix: "ollama:", Provider: ProviderOllama, Strip: true},
	{Prefix: "huggingface/", Provider: ProviderHuggingFace, Strip: true},
	// Hub repository ids served by the Hugging Face router.
	{Prefix: "Qwen/", Provider: ProviderHuggingFace},
	{Prefix: "deepseek-ai/", Provider: ProviderHuggingFace},
	{Prefix: "codellama/", Provider: ProviderHuggingFace},
	{Prefix: "openai/", Provider: ProviderHuggingFace},
	{Prefix: "claude", Provider: ProviderAnthropic},
	{Prefix: "gpt", Provider: ProviderOpenAI},
	{Prefix: "o1", Provider: ProviderOpenAI},
	{Prefix: "o3", Provider: ProviderOpenAI},
	{Prefix: "o4", Provider: ProviderOpenAI},
	{Prefix: "gemini", Provider: ProviderGoogle},
}

// ResolveModel returns the provider for a configured model name and the model
// name to send to that provider.
func ResolveModel(modelName string) (provider, apiModel string, err error) {
	for i := range ProviderPatterns {
		p := &ProviderPatterns[i]
		if !strings.HasPrefix(modelName, p.Prefix) {
			continue
		}
		apiModel = modelName
		if p.Strip {
			apiModel = strings.TrimPrefix(modelName, p.Prefix)
		}
		if apiModel == "" {
			return "", "", fmt.Errorf("model %q names a provider but no model", modelName)
		}
		return p.Provider, apiModel, nil
	}
	return "", "", fmt.Errorf("unknown model '%s': no provider pattern matches", modelName)
}

// OllamaHost returns OLLAMA_HOST when set, then the configured host, then the default.
func (c *Config) OllamaHost() string {
	if host := os.Getenv(EnvOllamaHost); host != "" {
		return host
	}
	if c.Providers.OllamaHost != "" {
		return c.Providers.OllamaHost
	}
	return DefaultOllamaHost
}

// ConfiguredModels returns every distinct primary and backup model across agents,
// in agent order.
func (c *Config) ConfiguredModels() []string {
	seen := make(map[string]bool)
	var models []string
	for _, name := range AgentNames {
		ac := c.Agent(name)
		for _, m := range []string{ac.PrimaryModel, ac.BackupModel} {
			if m == "" || seen[m] {
				continue
			}
			seen[m] = true
			models = append(models, m)
		}
	}
	return models
}
