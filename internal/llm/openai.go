package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/ratelimit"

	"github.com/swstevens/agentic-cag-system/internal/config"
	"github.com/swstevens/agentic-cag-system/internal/logging"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// maxRetries bounds the retry loop for transient failures and rate limits.
const maxRetries = 3

// OpenAIClient implements Client against the OpenAI chat completions API
// (function calling for tools, json_schema response format for structured
// output).
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	limiter    ratelimit.Limiter
}

// NewOpenAIClient creates an OpenAI-backed client.
func NewOpenAIClient(cfg config.LLMConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: cfg.TimeoutDuration()},
		limiter:    ratelimit.New(10, ratelimit.Per(time.Second)),
	}, nil
}

// Model returns the configured model identifier.
func (c *OpenAIClient) Model() string {
	return c.model
}

// Wire types for the chat completions endpoint.

type oaToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type oaToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function oaToolCallFunction `json:"function"`
}

type oaMessage struct {
	Role       string       `json:"role"`
	Content    string       `json:"content"`
	ToolCalls  []oaToolCall `json:"tool_calls,omitempty"`
	ToolCallID string       `json:"tool_call_id,omitempty"`
}

type oaTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string                 `json:"name"`
		Description string                 `json:"description"`
		Parameters  map[string]interface{} `json:"parameters"`
	} `json:"function"`
}

type oaResponseFormat struct {
	Type       string `json:"type"`
	JSONSchema *struct {
		Name   string                 `json:"name"`
		Strict bool                   `json:"strict"`
		Schema map[string]interface{} `json:"schema"`
	} `json:"json_schema,omitempty"`
}

type oaRequest struct {
	Model          string            `json:"model"`
	Messages       []oaMessage       `json:"messages"`
	Tools          []oaTool          `json:"tools,omitempty"`
	ResponseFormat *oaResponseFormat `json:"response_format,omitempty"`
	Temperature    float64           `json:"temperature,omitempty"`
}

type oaResponse struct {
	Choices []struct {
		Message      oaMessage `json:"message"`
		FinishReason string    `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends a prompt and returns the completion.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends a prompt with a system message.
func (c *OpenAIClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := oaRequest{
		Model:    c.model,
		Messages: buildOAMessages(systemPrompt, []Message{{Role: "user", Content: userPrompt}}),
	}
	resp, err := c.send(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// CompleteWithSchema enforces a JSON schema on the response.
func (c *OpenAIClient) CompleteWithSchema(ctx context.Context, systemPrompt, userPrompt, schemaName string, schema map[string]interface{}) (string, error) {
	format := &oaResponseFormat{Type: "json_schema"}
	format.JSONSchema = &struct {
		Name   string                 `json:"name"`
		Strict bool                   `json:"strict"`
		Schema map[string]interface{} `json:"schema"`
	}{Name: schemaName, Strict: false, Schema: schema}

	req := oaRequest{
		Model:          c.model,
		Messages:       buildOAMessages(systemPrompt, []Message{{Role: "user", Content: userPrompt}}),
		ResponseFormat: format,
	}
	resp, err := c.send(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// ChatWithTools sends the conversation with tool definitions and returns
// the model's text and/or requested tool calls.
func (c *OpenAIClient) ChatWithTools(ctx context.Context, systemPrompt string, messages []Message, tools []ToolDefinition) (*ToolResponse, error) {
	oaTools := make([]oaTool, len(tools))
	for i, t := range tools {
		oaTools[i].Type = "function"
		oaTools[i].Function.Name = t.Name
		oaTools[i].Function.Description = t.Description
		oaTools[i].Function.Parameters = t.InputSchema
	}

	req := oaRequest{
		Model:    c.model,
		Messages: buildOAMessages(systemPrompt, messages),
		Tools:    oaTools,
	}
	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no completion returned")
	}

	choice := resp.Choices[0]
	out := &ToolResponse{
		Text:       choice.Message.Content,
		StopReason: choice.FinishReason,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		var input map[string]interface{}
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &input); err != nil {
			logging.APIDebug("unparseable tool arguments for %s: %v", tc.Function.Name, err)
			input = map[string]interface{}{}
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: input,
		})
	}
	return out, nil
}

func buildOAMessages(systemPrompt string, messages []Message) []oaMessage {
	out := make([]oaMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		out = append(out, oaMessage{Role: "system", Content: systemPrompt})
	}
	for _, m := range messages {
		msg := oaMessage{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID}
		for _, tc := range m.ToolCalls {
			args, err := json.Marshal(tc.Input)
			if err != nil {
				args = []byte("{}")
			}
			msg.ToolCalls = append(msg.ToolCalls, oaToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: oaToolCallFunction{
					Name:      tc.Name,
					Arguments: string(args),
				},
			})
		}
		out = append(out, msg)
	}
	return out
}

// send posts a request with retry on transient failures and 429s.
func (c *OpenAIClient) send(ctx context.Context, reqBody oaRequest) (*oaResponse, error) {
	startTime := time.Now()
	logging.APIDebug("[OpenAI] request: model=%s messages=%d tools=%d", reqBody.Model, len(reqBody.Messages), len(reqBody.Tools))

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(1<<uint(attempt-1)) * time.Second):
			}
		}
		c.limiter.Take()

		data, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
		}

		var parsed oaResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		if parsed.Error != nil {
			return nil, fmt.Errorf("API error: %s", parsed.Error.Message)
		}

		logging.API("[OpenAI] completed in %v (total_tokens=%d)", time.Since(startTime), parsed.Usage.TotalTokens)
		return &parsed, nil
	}

	logging.APIError("[OpenAI] max retries exceeded after %v: %v", time.Since(startTime), lastErr)
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
