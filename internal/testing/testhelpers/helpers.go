// Package testhelpers provides shared doubles for tests that drive a backend.
package testhelpers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Cyclone1070/reactor/internal/message"
	"github.com/Cyclone1070/reactor/internal/provider"
	"github.com/Cyclone1070/reactor/internal/tool"
)

// TokensPerMessage is the default per-message cost reported by MockAdapter.
const TokensPerMessage = 50

// MockAdapter is a controllable provider.Adapter that replays queued replies.
type MockAdapter struct {
	mu            sync.Mutex
	responses     []scripted
	responseIndex int
	requests      []*provider.Request
	contextWindow int

	// OnSendCalled is a callback for observing Send calls
	OnSendCalled func(*provider.Request)

	// SendFunc replaces the queue when set
	SendFunc func(ctx context.Context, req *provider.Request) (*provider.Response, error)

	// TokenizeFunc replaces the default per-message estimate when set
	TokenizeFunc func(ctx context.Context, window []message.ChatMessage) (int, error)
}

type scripted struct {
	resp *provider.Response
	err  error
	call []callSpec
}

type callSpec struct {
	id   string
	tool string
	args map[string]any
}

// NewMockAdapter creates a new mock adapter with default settings
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{contextWindow: 100000}
}

// WithTextResponse adds a COMPLETED text reply to the queue
func (m *MockAdapter) WithTextResponse(text string) *MockAdapter {
	return m.WithResponse(provider.FinishCompleted, message.NewText(message.AuthorBot, text))
}

// WithJSONResponse adds a text reply holding v encoded as JSON
func (m *MockAdapter) WithJSONResponse(v any) *MockAdapter {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return m.WithTextResponse(string(raw))
}

// WithResponse adds an arbitrary reply to the queue
func (m *MockAdapter) WithResponse(reason provider.FinishReason, msg message.ChatMessage) *MockAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, scripted{resp: &provider.Response{FinishReason: reason, Message: msg}})
	return m
}

// WithToolCallResponse adds a reply calling toolID with args. The call is
// resolved against the tools of the request that receives it.
func (m *MockAdapter) WithToolCallResponse(id, toolID string, args map[string]any) *MockAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, scripted{call: []callSpec{{id: id, tool: toolID, args: args}}})
	return m
}

// WithParallelToolCalls adds a reply carrying several calls, given as
// alternating id/tool pairs sharing args.
func (m *MockAdapter) WithParallelToolCalls(args map[string]any, idToolPairs ...string) *MockAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	var specs []callSpec
	for i := 0; i+1 < len(idToolPairs); i += 2 {
		specs = append(specs, callSpec{id: idToolPairs[i], tool: idToolPairs[i+1], args: args})
	}
	m.responses = append(m.responses, scripted{call: specs})
	return m
}

// WithError adds a failing call to the queue
func (m *MockAdapter) WithError(err error) *MockAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, scripted{err: err})
	return m
}

// WithContextWindow sets the context window size
func (m *MockAdapter) WithContextWindow(size int) *MockAdapter {
	m.contextWindow = size
	return m
}

// Send implements provider.Adapter
func (m *MockAdapter) Send(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	if m.OnSendCalled != nil {
		m.OnSendCalled(req)
	}
	if m.SendFunc != nil {
		m.record(req)
		return m.SendFunc(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)

	if m.responseIndex >= len(m.responses) {
		// Return a default text response if we run out
		return &provider.Response{
			FinishReason: provider.FinishCompleted,
			Message:      message.NewText(message.AuthorBot, "Done"),
		}, nil
	}

	next := m.responses[m.responseIndex]
	m.responseIndex++
	switch {
	case next.err != nil:
		return nil, next.err
	case next.call != nil:
		parts := make([]message.Part, 0, len(next.call))
		for _, c := range next.call {
			var invoker message.Invoker
			if t := provider.ResolveTool(req.Tools, c.tool); t != nil {
				invoker = t
			}
			parts = append(parts, message.NewToolCall(c.id, c.tool, invoker, c.args))
		}
		msg, err := message.New(message.AuthorBot, parts...)
		if err != nil {
			return nil, err
		}
		return &provider.Response{FinishReason: provider.FinishCompleted, Message: msg}, nil
	default:
		resp := *next.resp
		return &resp, nil
	}
}

// Tokenize implements provider.Adapter
func (m *MockAdapter) Tokenize(ctx context.Context, window []message.ChatMessage) (int, error) {
	if m.TokenizeFunc != nil {
		return m.TokenizeFunc(ctx, window)
	}
	// Simple estimation: 50 tokens per message
	return len(window) * TokensPerMessage, nil
}

// ContextSize implements provider.ContextSizer
func (m *MockAdapter) ContextSize(ctx context.Context) (int, error) {
	return m.contextWindow, nil
}

// Requests returns every request received so far
func (m *MockAdapter) Requests() []*provider.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*provider.Request(nil), m.requests...)
}

// LastRequest returns the most recent request, or nil
func (m *MockAdapter) LastRequest() *provider.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

// Calls returns the number of Send calls received
func (m *MockAdapter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *MockAdapter) record(req *provider.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
}

// ToolIDs returns the ids of the tools advertised in req.
func ToolIDs(req *provider.Request) []string {
	ids := make([]string, 0, len(req.Tools))
	for _, t := range req.Tools {
		ids = append(ids, t.ID())
	}
	return ids
}

// Texts returns the rendered text of every message in req.
func Texts(req *provider.Request) []string {
	out := make([]string, 0, len(req.Messages))
	for _, msg := range req.Messages {
		out = append(out, msg.String())
	}
	return out
}

// EchoTool returns a tool that echoes its "text" argument and accepts a thought.
func EchoTool(id string) tool.Tool {
	type echoRequest struct {
		Thought string `json:"thought"`
		Text    string `json:"text"`
	}
	return tool.NewFuncTool(id, "Echoes text back", []tool.Parameter{
		tool.ThoughtParameter,
		{Name: "text", Type: tool.TypeString, Required: true},
	}, func(ctx context.Context, req echoRequest) (any, error) {
		return req.Text, nil
	})
}
