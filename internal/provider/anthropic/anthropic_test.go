package anthropic

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

type weatherRequest struct {
	Thought string `json:"thought"`
	City    string `json:"city"`
}

func weatherTool() tool.Tool {
	return tool.NewFuncTool("get_weather", "Current weather", []tool.Parameter{
		tool.ThoughtParameter,
		{Name: "city", Type: tool.TypeString, Required: true},
	}, func(ctx context.Context, req weatherRequest) (any, error) { return "sunny", nil })
}

func serve(t *testing.T, status int, reply map[string]any, captured *map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(reply)
	}))
	t.Cleanup(server.Close)
	return server
}

func messageReply(stop string, content ...map[string]any) map[string]any {
	return map[string]any{
		"id":          "msg_test",
		"type":        "message",
		"role":        "assistant",
		"model":       "claude-test",
		"stop_reason": stop,
		"content":     content,
		"usage":       map[string]any{"input_tokens": 15, "output_tokens": 8},
	}
}

func TestSend_TextRoundTrip(t *testing.T) {
	var body map[string]any
	server := serve(t, http.StatusOK, messageReply("end_turn",
		map[string]any{"type": "text", "text": "Hello! How can I help you?"}), &body)
	a := New("test-key", server.URL, "claude-test")

	resp, err := a.Send(context.Background(), &provider.Request{
		Messages: []message.ChatMessage{
			message.NewText(message.AuthorDeveloper, "You are helpful"),
			message.NewText(message.AuthorUser, "Hello"),
		},
		Config: &provider.GenerateConfig{MaxOutputTokens: provider.Int(1024), Temperature: provider.Float32(0)},
	})

	require.NoError(t, err)
	assert.Equal(t, provider.FinishCompleted, resp.FinishReason)
	assert.Equal(t, "Hello! How can I help you?", resp.Message.Text())
	assert.Equal(t, 23, resp.Usage.TotalTokens)

	assert.Equal(t, "claude-test", body["model"])
	assert.EqualValues(t, 1024, body["max_tokens"])
	assert.EqualValues(t, 0, body["temperature"])
	system := body["system"].([]any)
	assert.Equal(t, "You are helpful", system[0].(map[string]any)["text"])
	assert.Len(t, body["messages"], 1)
}

func TestSend_ToolUseResolved(t *testing.T) {
	weather := weatherTool()
	var body map[string]any
	server := serve(t, http.StatusOK, messageReply("tool_use",
		map[string]any{"type": "text", "text": "Checking."},
		map[string]any{"type": "tool_use", "id": "toolu_1", "name": "get_weather", "input": map[string]any{"thought": "t", "city": "SF"}},
	), &body)
	a := New("test-key", server.URL, "claude-test")

	resp, err := a.Send(context.Background(), &provider.Request{
		Messages: []message.ChatMessage{message.NewText(message.AuthorUser, "weather?")},
		Tools:    []tool.Tool{weather},
	})

	require.NoError(t, err)
	assert.Equal(t, provider.FinishCompleted, resp.FinishReason)
	calls := resp.Message.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "toolu_1", calls[0].ID())
	assert.Same(t, weather, calls[0].Tool())
	city, _ := calls[0].Argument("city")
	assert.Equal(t, "SF", city)
	assert.Equal(t, "Checking.", resp.Message.Reasoning())

	tools := body["tools"].([]any)
	schema := tools[0].(map[string]any)["input_schema"].(map[string]any)
	assert.ElementsMatch(t, []any{"thought", "city"}, schema["required"])
}

func TestBuildMessages_ToolResults(t *testing.T) {
	call := message.NewToolCall("toolu_1", "get_weather", nil, map[string]any{"city": "SF"})
	calls, err := message.New(message.AuthorBot, call)
	require.NoError(t, err)
	results, err := message.NewToolResults(calls, message.NewToolCallResult(call, map[string]any{"temp": 72}, false))
	require.NoError(t, err)

	system, msgs, err := buildMessages([]message.ChatMessage{
		message.NewText(message.AuthorUser, "weather?"), calls, results,
	})

	require.NoError(t, err)
	assert.Empty(t, system)
	require.Len(t, msgs, 3)
	raw, err := json.Marshal(msgs[2])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"tool_use_id":"toolu_1"`)
	assert.Contains(t, string(raw), `{\"temp\":72}`)
}

func TestBuildMessages_DropsLeadingBotTurns(t *testing.T) {
	call := message.NewToolCall("toolu_1", "get_weather", nil, map[string]any{"city": "SF"})
	calls, err := message.New(message.AuthorBot, call)
	require.NoError(t, err)
	results, err := message.NewToolResults(calls, message.NewToolCallResult(call, "sunny", false))
	require.NoError(t, err)

	system, msgs, err := buildMessages([]message.ChatMessage{
		message.NewText(message.AuthorDeveloper, "be brief"),
		calls,
		results,
		message.NewText(message.AuthorBot, "It is sunny."),
		message.NewText(message.AuthorUser, "thanks"),
		message.NewText(message.AuthorBot, "You're welcome."),
	})

	require.NoError(t, err)
	require.Len(t, system, 1)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", string(msgs[0].Role))
	assert.Equal(t, "assistant", string(msgs[1].Role))
	raw, err := json.Marshal(msgs)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "toolu_1")
	assert.NotContains(t, string(raw), "It is sunny.")
}

func TestBuildMessages_RejectsUserToolCalls(t *testing.T) {
	bad, err := message.New(message.AuthorDeveloper, message.NewToolCall("c", "x", nil, nil))
	require.NoError(t, err)

	_, _, err = buildMessages([]message.ChatMessage{bad})

	assert.ErrorIs(t, err, provider.ErrOutboundToolCall)
}

func TestSend_StopReasons(t *testing.T) {
	tests := []struct {
		stop string
		want provider.FinishReason
	}{
		{"end_turn", provider.FinishCompleted},
		{"stop_sequence", provider.FinishCompleted},
		{"max_tokens", provider.FinishTruncated},
		{"pause_turn", provider.FinishInProgress},
		{"refusal", provider.FinishInappropriate},
	}
	for _, tt := range tests {
		t.Run(tt.stop, func(t *testing.T) {
			server := serve(t, http.StatusOK, messageReply(tt.stop, map[string]any{"type": "text", "text": "partial"}), nil)

			resp, err := New("k", server.URL, "claude-test").Send(context.Background(), &provider.Request{
				Messages: []message.ChatMessage{message.NewText(message.AuthorUser, "x")},
			})

			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.FinishReason)
			if tt.want == provider.FinishInappropriate {
				assert.Equal(t, "partial", resp.Message.Refusal())
			}
		})
	}
}

func TestSend_AuthErrorMapped(t *testing.T) {
	server := serve(t, http.StatusUnauthorized, map[string]any{
		"type":  "error",
		"error": map[string]any{"type": "authentication_error", "message": "bad key"},
	}, nil)

	_, err := New("k", server.URL, "claude-test").Send(context.Background(), &provider.Request{
		Messages: []message.ChatMessage{message.NewText(message.AuthorUser, "x")},
	})

	assert.ErrorIs(t, err, provider.ErrAuthentication)
	assert.False(t, provider.IsRetryable(err))
}

func TestTokenize_CountsSystemAndMessages(t *testing.T) {
	a := New("k", "", "claude-test")

	bare, err := a.Tokenize(context.Background(), []message.ChatMessage{message.NewText(message.AuthorUser, "hi")})
	require.NoError(t, err)
	withSystem, err := a.Tokenize(context.Background(), []message.ChatMessage{
		message.NewText(message.AuthorDeveloper, "a long system prompt about behaviour"),
		message.NewText(message.AuthorUser, "hi"),
	})
	require.NoError(t, err)

	assert.Greater(t, withSystem, bare)
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, defaultBaseURL, normalizeBaseURL(""))
	assert.Equal(t, "https://proxy.local", normalizeBaseURL("https://proxy.local/v1/"))
}

func TestContextSize_KnownAndUnknown(t *testing.T) {
	n, err := New("k", "", "claude-sonnet-4-5").ContextSize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 200_000, n)

	_, err = New("k", "", "claude-unknown").ContextSize(context.Background())
	assert.Error(t, err)
}
