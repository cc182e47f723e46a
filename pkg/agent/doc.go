// Package agent adapts LLM clients to the two call shapes the workflow uses:
//   - StructuredModel makes one forced tool call and decodes the arguments into a typed value
//   - ToolAgent runs a tool-using conversation over the project toolset
//
// ClientFactory builds provider clients from configuration and wraps them in the
// middleware chain (metrics, fallback, retry, rate limit, timeout).
// Provider implementations live under internal/llmimpl.
package agent
