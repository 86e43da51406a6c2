// Package llm defines the chat/tool/structured-output contract the agent
// roles require and provides OpenAI and Gemini implementations.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/swstevens/agentic-cag-system/internal/config"
)

// ErrSchemaNotSupported is returned when a provider rejects structured
// output for the requested schema.
var ErrSchemaNotSupported = errors.New("structured output not supported for this schema")

// ToolDefinition describes a tool the model can invoke.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"` // JSON Schema for parameters
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID    string                 `json:"id"`
	Name  string                 `json:"name"`
	Input map[string]interface{} `json:"input"`
}

// ToolResult carries one executed tool call's output back to the model.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error"`
}

// Usage captures token accounting from a completion.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// ToolResponse is the model's reply within a tool loop: text, requested
// tool calls, or both.
type ToolResponse struct {
	Text       string     `json:"text"`
	ToolCalls  []ToolCall `json:"tool_calls"`
	StopReason string     `json:"stop_reason"`
	Usage      Usage      `json:"usage"`
}

// Message is one turn of a tool-loop conversation. Role is "user",
// "assistant", or "tool". Assistant turns may carry tool calls; tool turns
// carry the result for a specific call id.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
}

// Client is the LLM interface each agent role consumes: plain completion,
// schema-enforced structured output, and the tool-call loop.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// CompleteWithSchema enforces a JSON schema on the response and returns
	// the raw JSON text.
	CompleteWithSchema(ctx context.Context, systemPrompt, userPrompt, schemaName string, schema map[string]interface{}) (string, error)

	// ChatWithTools sends the conversation so far together with tool
	// definitions. The caller owns the loop: execute the returned tool
	// calls, append assistant and tool messages, and call again.
	ChatWithTools(ctx context.Context, systemPrompt string, messages []Message, tools []ToolDefinition) (*ToolResponse, error)
}

// NewClient builds a client from configuration.
func NewClient(cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIClient(cfg)
	case "gemini":
		return NewGeminiClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (use 'openai' or 'gemini')", cfg.Provider)
	}
}
