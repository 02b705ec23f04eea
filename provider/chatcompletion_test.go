package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corewave/agentcore/value"
)

func mockChatCompletionServer(t *testing.T, body map[string]any, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
}

func TestChatCompletionAskSuccess(t *testing.T) {
	server := mockChatCompletionServer(t, map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"content": "hi"}}},
		"usage":   map[string]any{"prompt_tokens": 3.0, "completion_tokens": 1.0},
	}, http.StatusOK)
	defer server.Close()

	p := NewChatCompletionProvider(ChatCompletionConfig{BaseURL: server.URL, APIKey: "test-key", Model: "m"})
	reply := p.Ask(context.Background(), value.Ask{
		Input:   []any{map[string]any{"role": "user", "content": "hi"}},
		Context: value.Map(),
	})

	require.True(t, reply.OK)
	require.Equal(t, float64(3), value.AsMap(reply.Cost)["prompt_tokens"])
}

func TestChatCompletionAskErrorStatus(t *testing.T) {
	server := mockChatCompletionServer(t, map[string]any{"error": "bad request"}, http.StatusBadRequest)
	defer server.Close()

	p := NewChatCompletionProvider(ChatCompletionConfig{BaseURL: server.URL, APIKey: "test-key", Model: "m"})
	reply := p.Ask(context.Background(), value.Ask{Input: []any{}, Context: value.Map()})

	require.False(t, reply.OK)
}

func TestChatCompletionAskWrapsOpenAIToolsDialect(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	p := NewChatCompletionProvider(ChatCompletionConfig{BaseURL: server.URL, APIKey: "k", Model: "m", Dialect: DialectOpenAI})
	p.Ask(context.Background(), value.Ask{
		Input: []any{},
		Context: value.Map("tools", []any{map[string]any{"name": "adder"}}),
	})

	tools, ok := captured["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 1)
	wrapped := tools[0].(map[string]any)
	require.Equal(t, "function", wrapped["type"])
}

func TestChatCompletionAskDashscopeDialectUsesFunctions(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	p := NewChatCompletionProvider(ChatCompletionConfig{BaseURL: server.URL, APIKey: "k", Model: "m", Dialect: DialectDashscope})
	p.Ask(context.Background(), value.Ask{
		Input: []any{},
		Context: value.Map("tools", []any{map[string]any{"name": "adder"}}, "reasoning", "reasoned"),
	})

	_, ok := captured["functions"]
	require.True(t, ok)
	require.Equal(t, true, captured["enable_chain_of_thought"])
}
