package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newOpenAIServer serves a single canned chat completion and records the last request.
func newOpenAIServer(t *testing.T, status int, body string, lastRequest *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		if lastRequest != nil {
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, lastRequest)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestService(t *testing.T, baseURL string) Service {
	t.Helper()
	svc, err := NewService(&Config{
		Provider: "openai",
		Model:    "gpt-test",
		APIKey:   "test-key",
		BaseURL:  baseURL + "/v1",
	})
	require.NoError(t, err)
	return svc
}

func TestNewService_RequiresModel(t *testing.T) {
	_, err := NewService(&Config{Provider: "deepseek", APIKey: "k"})
	assert.Error(t, err)

	_, err = NewService(nil)
	assert.Error(t, err)
}

func TestNewService_Defaults(t *testing.T) {
	svc, err := NewService(&Config{Provider: "deepseek", Model: "deepseek-chat", APIKey: "k"})
	require.NoError(t, err)

	s, ok := svc.(*service)
	require.True(t, ok)
	assert.Equal(t, 1024, s.maxTokens)
	assert.Equal(t, 30, s.timeout)
	assert.Equal(t, "deepseek", s.provider)
}

func TestNewService_Gemini(t *testing.T) {
	svc, err := NewService(&Config{Provider: "gemini", Model: "gemini-2.5-flash", APIKey: "k"})
	require.NoError(t, err)
	_, ok := svc.(*geminiService)
	assert.True(t, ok)
}

func TestService_ChatWithTools_TextAnswer(t *testing.T) {
	var req map[string]any
	srv := newOpenAIServer(t, http.StatusOK, `{
		"id": "c1", "object": "chat.completion", "model": "gpt-test",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "Здравствуйте!"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
	}`, &req)

	svc := newTestService(t, srv.URL)
	resp, stats, err := svc.ChatWithTools(context.Background(), FormatMessages("system", "привет", nil), nil)
	require.NoError(t, err)
	assert.Equal(t, "Здравствуйте!", resp.Content)
	assert.Empty(t, resp.ToolCalls)
	assert.Equal(t, 15, stats.TotalTokens)

	messages, ok := req["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 2)
	assert.Equal(t, "gpt-test", req["model"])
}

func TestFormatMessages(t *testing.T) {
	history := []Message{UserMessage("раньше"), AssistantMessage("ответ")}
	out := FormatMessages("sys", "сейчас", history)
	require.Len(t, out, 4)
	assert.Equal(t, "system", out[0].Role)
	assert.Equal(t, "сейчас", out[3].Content)

	out = FormatMessages("", "сейчас", nil)
	assert.Equal(t, []Message{UserMessage("сейчас")}, out)
}

func TestService_ChatWithTools(t *testing.T) {
	var req map[string]any
	srv := newOpenAIServer(t, http.StatusOK, `{
		"id": "c2", "object": "chat.completion", "model": "gpt-test",
		"choices": [{"index": 0, "finish_reason": "tool_calls", "message": {
			"role": "assistant", "content": "",
			"tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "show_person", "arguments": "{\"member_id\":\"m4\"}"}}]
		}}],
		"usage": {"prompt_tokens": 40, "completion_tokens": 8, "total_tokens": 48}
	}`, &req)

	svc := newTestService(t, srv.URL)
	params := ObjectSchema(map[string]*JSONSchema{"member_id": StringProperty("id")}, "member_id")
	resp, stats, err := svc.ChatWithTools(context.Background(),
		[]Message{UserMessage("покажи Елену")},
		[]ToolDescriptor{{Name: "show_person", Description: "Open a member card", Parameters: params.String()}},
	)
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "show_person", resp.ToolCalls[0].Function.Name)
	assert.JSONEq(t, `{"member_id":"m4"}`, resp.ToolCalls[0].Function.Arguments)
	assert.Equal(t, 48, stats.TotalTokens)

	tools, ok := req["tools"].([]any)
	require.True(t, ok)
	assert.Len(t, tools, 1)
}

func TestService_ChatErrors(t *testing.T) {
	t.Run("non-2xx", func(t *testing.T) {
		srv := newOpenAIServer(t, http.StatusInternalServerError, `{"error":{"message":"boom"}}`, nil)
		_, _, err := newTestService(t, srv.URL).ChatWithTools(context.Background(), []Message{UserMessage("x")}, nil)
		assert.Error(t, err)
	})

	t.Run("no choices", func(t *testing.T) {
		srv := newOpenAIServer(t, http.StatusOK, `{"id":"c3","choices":[]}`, nil)
		_, _, err := newTestService(t, srv.URL).ChatWithTools(context.Background(), []Message{UserMessage("x")}, nil)
		assert.Error(t, err)
	})
}

func TestService_Warmup_NoPanic(t *testing.T) {
	srv := newOpenAIServer(t, http.StatusServiceUnavailable, `{}`, nil)
	newTestService(t, srv.URL).Warmup(context.Background())
}

func TestConvertMessages(t *testing.T) {
	out := convertMessages([]Message{SystemPrompt("s"), UserMessage("u"), AssistantMessage("a"), {Role: "tool", Content: "t"}})
	require.Len(t, out, 4)
	assert.Equal(t, "system", out[0].Role)
	assert.Equal(t, "user", out[1].Role)
	assert.Equal(t, "assistant", out[2].Role)
	assert.Equal(t, "user", out[3].Role)
}
