package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swstevens/agentic-cag-system/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewOpenAIClient(config.LLMConfig{
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
		BaseURL: server.URL,
		Timeout: "5s",
	})
	require.NoError(t, err)
	return client
}

func TestCompleteWithSystem(t *testing.T) {
	var captured oaRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"role": "assistant", "content": "hello there"}, "finish_reason": "stop"},
			},
		})
	})

	out, err := client.CompleteWithSystem(context.Background(), "be brief", "say hello")
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)

	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "be brief", captured.Messages[0].Content)
	assert.Equal(t, "user", captured.Messages[1].Role)
}

func TestCompleteWithSchemaSendsResponseFormat(t *testing.T) {
	var captured oaRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"role": "assistant", "content": `{"ok":true}`}, "finish_reason": "stop"},
			},
		})
	})

	schema := map[string]interface{}{"type": "object"}
	out, err := client.CompleteWithSchema(context.Background(), "", "go", "test_schema", schema)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, out)

	require.NotNil(t, captured.ResponseFormat)
	assert.Equal(t, "json_schema", captured.ResponseFormat.Type)
	assert.Equal(t, "test_schema", captured.ResponseFormat.JSONSchema.Name)
}

func TestChatWithToolsParsesToolCalls(t *testing.T) {
	var captured oaRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{
					"message": map[string]interface{}{
						"role": "assistant",
						"tool_calls": []map[string]interface{}{
							{
								"id":   "call_abc",
								"type": "function",
								"function": map[string]interface{}{
									"name":      "search_cards",
									"arguments": `{"semantic_query":"removal"}`,
								},
							},
						},
					},
					"finish_reason": "tool_calls",
				},
			},
			"usage": map[string]interface{}{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	})

	tools := []ToolDefinition{{
		Name:        "search_cards",
		Description: "search",
		InputSchema: map[string]interface{}{"type": "object"},
	}}
	resp, err := client.ChatWithTools(context.Background(), "system",
		[]Message{{Role: "user", Content: "find removal"}}, tools)
	require.NoError(t, err)

	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_abc", resp.ToolCalls[0].ID)
	assert.Equal(t, "search_cards", resp.ToolCalls[0].Name)
	assert.Equal(t, "removal", resp.ToolCalls[0].Input["semantic_query"])
	assert.Equal(t, "tool_calls", resp.StopReason)
	assert.Equal(t, 15, resp.Usage.TotalTokens)

	require.Len(t, captured.Tools, 1)
	assert.Equal(t, "function", captured.Tools[0].Type)
	assert.Equal(t, "search_cards", captured.Tools[0].Function.Name)
}

func TestToolResultMessagesOnTheWire(t *testing.T) {
	var captured oaRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"role": "assistant", "content": "done"}, "finish_reason": "stop"},
			},
		})
	})

	messages := []Message{
		{Role: "user", Content: "find removal"},
		{Role: "assistant", ToolCalls: []ToolCall{{
			ID: "call_abc", Name: "search_cards",
			Input: map[string]interface{}{"semantic_query": "removal"},
		}}},
		{Role: "tool", Content: `{"cards":[],"count":0}`, ToolCallID: "call_abc", ToolName: "search_cards"},
	}
	_, err := client.ChatWithTools(context.Background(), "", messages, nil)
	require.NoError(t, err)

	require.Len(t, captured.Messages, 3)
	assert.Len(t, captured.Messages[1].ToolCalls, 1)
	assert.Equal(t, "call_abc", captured.Messages[2].ToolCallID)
}

func TestRetryOn429(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"role": "assistant", "content": "recovered"}, "finish_reason": "stop"},
			},
		})
	})

	out, err := client.Complete(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.Equal(t, 2, attempts)
}

func TestBadRequestIsNotRetried(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad schema"}}`))
	})

	_, err := client.Complete(context.Background(), "hi")
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestMissingAPIKey(t *testing.T) {
	_, err := NewOpenAIClient(config.LLMConfig{})
	require.Error(t, err)
}
