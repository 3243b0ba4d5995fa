package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protoforge/internal/types"
)

func testClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIClient(Config{
		APIKey:           "test-key",
		BaseURL:          srv.URL,
		Model:            "test-model",
		Timeout:          5 * time.Second,
		MaxRetries:       2,
		RetryBackoffBase: time.Millisecond,
	})
}

func chatResponse(content string) string {
	return `{"model":"test-model","choices":[{"message":{"role":"assistant","content":` +
		mustJSON(content) + `},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestChatSuccess(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(chatResponse("hello")))
	})

	resp, err := client.Chat(context.Background(), types.ChatRequest{
		Messages: []types.ConversationMessage{{Role: types.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
}

func TestChatRetriesServerError(t *testing.T) {
	calls := 0
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(chatResponse("recovered")))
	})

	resp, err := client.Chat(context.Background(), types.ChatRequest{
		Messages: []types.ConversationMessage{{Role: types.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Content)
	assert.Equal(t, 3, calls)
}

func TestChatClientErrorNotRetried(t *testing.T) {
	calls := 0
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "no such model", http.StatusNotFound)
	})

	_, err := client.Chat(context.Background(), types.ChatRequest{
		Messages: []types.ConversationMessage{{Role: types.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "4xx must not be retried")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestChatRateLimitRetried(t *testing.T) {
	calls := 0
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(chatResponse("ok")))
	})

	resp, err := client.Chat(context.Background(), types.ChatRequest{
		Messages: []types.ConversationMessage{{Role: types.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 2, calls)
}

func TestChatWithToolsDecodesCalls(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req oaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Tools, 1)
		assert.Equal(t, "generate_board_layout", req.Tools[0].Function.Name)

		w.Write([]byte(`{"model":"test-model","choices":[{"message":{"role":"assistant","content":"",` +
			`"tool_calls":[{"id":"call_1","type":"function","function":{"name":"generate_board_layout","arguments":"{\"auto\":true}"}}]},` +
			`"finish_reason":"tool_calls"}],"usage":{}}`))
	})

	resp, err := client.ChatWithTools(context.Background(), types.ToolChatRequest{
		Messages: []types.ConversationMessage{{Role: types.RoleUser, Content: "go"}},
		Tools: []types.ToolDefinition{{
			Name:        "generate_board_layout",
			Description: "lay out the board",
			InputSchema: map[string]any{"type": "object"},
		}},
	})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "generate_board_layout", resp.ToolCalls[0].Name)
	assert.Equal(t, map[string]any{"auto": true}, resp.ToolCalls[0].Args)
	assert.Equal(t, "tool_calls", resp.FinishReason)
}

func TestEncodeMessagesRoundTrip(t *testing.T) {
	msgs := []types.ConversationMessage{
		{Role: types.RoleSystem, Content: "sys"},
		{Role: types.RoleAssistant, Content: "", ToolCalls: []types.ToolCall{
			{ID: "call_1", Name: "report_progress", Args: map[string]any{"pct": 50}},
		}},
		{Role: types.RoleTool, Content: `{"ok":true}`, ToolCallID: "call_1"},
	}

	encoded := encodeMessages(msgs)
	require.Len(t, encoded, 3)
	assert.Equal(t, "system", encoded[0].Role)
	require.Len(t, encoded[1].ToolCalls, 1)
	assert.Equal(t, "call_1", encoded[1].ToolCalls[0].ID)
	assert.JSONEq(t, `{"pct":50}`, encoded[1].ToolCalls[0].Function.Arguments)
	assert.Equal(t, "call_1", encoded[2].ToolCallID)
}

func TestRetryableClassification(t *testing.T) {
	assert.False(t, Retryable(&APIError{Status: 400}))
	assert.False(t, Retryable(&APIError{Status: 404}))
	assert.True(t, Retryable(&APIError{Status: 429}))
	assert.True(t, Retryable(&APIError{Status: 500}))
	assert.True(t, Retryable(assert.AnError))
}
