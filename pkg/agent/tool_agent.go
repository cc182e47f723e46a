package agent

import (
	"context"
	"fmt"

	"github.com/AkibDa/Code-Genesis/pkg/agent/llm"
	"github.com/AkibDa/Code-Genesis/pkg/agent/toolloop"
	"github.com/AkibDa/Code-Genesis/pkg/logx"
	"github.com/AkibDa/Code-Genesis/pkg/tools"
	"github.com/AkibDa/Code-Genesis/pkg/workflow"
)

// ToolAgentConfig bounds one agent conversation.
type ToolAgentConfig struct {
	MaxIterations int
	MaxTokens     int
	Temperature   float32
	DebugLogging  bool
}

// ToolAgent implements workflow.Agent with a tool loop over the project toolset.
type ToolAgent struct {
	client  llm.LLMClient
	toolset *tools.Toolset
	config  ToolAgentConfig
	logger  *logx.Logger
}

// NewToolAgent creates a tool agent.
func NewToolAgent(client llm.LLMClient, toolset *tools.Toolset, cfg ToolAgentConfig, logger *logx.Logger) *ToolAgent {
	if logger == nil {
		logger = logx.NewLogger("agent")
	}
	return &ToolAgent{
		client:  client,
		toolset: toolset,
		config:  cfg,
		logger:  logger,
	}
}

// Invoke implements workflow.Agent. Only the tools named in req are offered.
func (a *ToolAgent) Invoke(ctx context.Context, req workflow.AgentRequest) (string, error) {
	provider, err := a.toolset.Provider(req.Tools)
	if err != nil {
		return "", fmt.Errorf("failed to build toolset: %w", err)
	}

	messages := make([]llm.CompletionMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, llm.NewSystemMessage(req.SystemPrompt))
	}
	for _, m := range req.Messages {
		messages = append(messages, llm.NewUserMessage(m))
	}

	out, err := toolloop.New(a.client, a.logger).Run(ctx, &toolloop.Config{
		ToolProvider:  provider,
		Messages:      messages,
		MaxIterations: a.config.MaxIterations,
		MaxTokens:     a.config.MaxTokens,
		Temperature:   a.config.Temperature,
		DebugLogging:  a.config.DebugLogging,
	})
	if err != nil {
		return "", err //nolint:wrapcheck // the engine classifies the loop's error
	}

	a.logger.Info("Agent finished after %d iterations and %d tool calls", out.Iteration, out.ToolCalls)
	return out.Content, nil
}
