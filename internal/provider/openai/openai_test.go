package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Cyclone1070/reactor/internal/message"
	"github.com/Cyclone1070/reactor/internal/provider"
	"github.com/Cyclone1070/reactor/internal/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lookupRequest struct {
	Thought string `json:"thought"`
	Term    string `json:"term"`
}

func lookupTool() tool.Tool {
	return tool.NewFuncTool("lookup", "Dictionary lookup", []tool.Parameter{
		tool.ThoughtParameter,
		{Name: "term", Type: tool.TypeString, Required: true},
	}, func(ctx context.Context, req lookupRequest) (any, error) { return "a word", nil })
}

func serve(t *testing.T, status int, reply string, captured *map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSend_BasicContent(t *testing.T) {
	var body map[string]any
	server := serve(t, http.StatusOK, `{
		"id":"chatcmpl-123","object":"chat.completion","created":1,"model":"gpt-test",
		"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"hello"}}],
		"usage":{"prompt_tokens":10,"completion_tokens":2,"total_tokens":12}
	}`, &body)
	a := New("test-key", server.URL, "gpt-test")

	resp, err := a.Send(context.Background(), &provider.Request{
		Messages: []message.ChatMessage{
			message.NewText(message.AuthorDeveloper, "be brief"),
			message.NewText(message.AuthorUser, "hi"),
		},
		Config: &provider.GenerateConfig{Temperature: provider.Float32(0.5), StopSequences: []string{"END"}},
	})

	require.NoError(t, err)
	assert.Equal(t, provider.FinishCompleted, resp.FinishReason)
	assert.Equal(t, "hello", resp.Message.Text())
	assert.Equal(t, 12, resp.Usage.TotalTokens)

	assert.Equal(t, "gpt-test", body["model"])
	assert.EqualValues(t, 0.5, body["temperature"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
}

func TestSend_ToolCallsAndHistoryMapping(t *testing.T) {
	lookup := lookupTool()
	var body map[string]any
	server := serve(t, http.StatusOK, `{
		"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-test",
		"choices":[{"index":0,"finish_reason":"tool_calls","message":{"role":"assistant","content":null,
			"tool_calls":[{"id":"call_2","type":"function","function":{"name":"lookup","arguments":"{\"thought\":\"t\",\"term\":\"go\"}"}}]}}]
	}`, &body)
	a := New("test-key", server.URL, "gpt-test")

	prior := message.NewToolCall("call_1", "lookup", nil, map[string]any{"term": "rust"})
	calls, err := message.New(message.AuthorBot, prior)
	require.NoError(t, err)
	results, err := message.NewToolResults(calls, message.NewToolCallResult(prior, "a language", false))
	require.NoError(t, err)

	resp, err := a.Send(context.Background(), &provider.Request{
		Messages: []message.ChatMessage{message.NewText(message.AuthorUser, "define"), calls, results},
		Tools:    []tool.Tool{lookup},
	})

	require.NoError(t, err)
	got := resp.Message.ToolCalls()
	require.Len(t, got, 1)
	assert.Equal(t, "call_2", got[0].ID())
	assert.Same(t, lookup, got[0].Tool())
	term, _ := got[0].Argument("term")
	assert.Equal(t, "go", term)

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 3)
	assistant := msgs[1].(map[string]any)
	assert.Equal(t, "assistant", assistant["role"])
	assert.Len(t, assistant["tool_calls"], 1)
	toolMsg := msgs[2].(map[string]any)
	assert.Equal(t, "tool", toolMsg["role"])
	assert.Equal(t, "call_1", toolMsg["tool_call_id"])

	tools := body["tools"].([]any)
	fn := tools[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, "lookup", fn["name"])
}

func TestSend_Refusal(t *testing.T) {
	server := serve(t, http.StatusOK, `{
		"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-test",
		"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":null,"refusal":"I can't help with that."}}]
	}`, nil)

	resp, err := New("k", server.URL, "gpt-test").Send(context.Background(), &provider.Request{
		Messages: []message.ChatMessage{message.NewText(message.AuthorUser, "x")},
	})

	require.NoError(t, err)
	assert.Equal(t, provider.FinishInappropriate, resp.FinishReason)
	assert.Equal(t, "I can't help with that.", resp.Message.Refusal())
}

func TestSend_BadRequestMapped(t *testing.T) {
	server := serve(t, http.StatusBadRequest, `{"error":{"message":"bad","type":"invalid_request_error"}}`, nil)

	_, err := New("k", server.URL, "gpt-test").Send(context.Background(), &provider.Request{
		Messages: []message.ChatMessage{message.NewText(message.AuthorUser, "x")},
	})

	assert.ErrorIs(t, err, provider.ErrInvalidRequest)
}

func TestToFinishReason(t *testing.T) {
	assert.Equal(t, provider.FinishCompleted, toFinishReason("stop"))
	assert.Equal(t, provider.FinishCompleted, toFinishReason("tool_calls"))
	assert.Equal(t, provider.FinishTruncated, toFinishReason("length"))
	assert.Equal(t, provider.FinishInappropriate, toFinishReason("content_filter"))
	assert.Equal(t, provider.FinishInProgress, toFinishReason(""))
	assert.Equal(t, provider.FinishOther, toFinishReason("weird"))
}

func TestTokenize_RejectsOutboundCalls(t *testing.T) {
	bad, err := message.New(message.AuthorUser, message.NewToolCall("c", "lookup", nil, nil))
	require.NoError(t, err)

	_, err = New("k", "", "gpt-test").Tokenize(context.Background(), []message.ChatMessage{bad})

	assert.ErrorIs(t, err, provider.ErrOutboundToolCall)
}

func TestContextSize_Known(t *testing.T) {
	n, err := New("k", "", "gpt-4o").ContextSize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 128_000, n)
}
