package loop

import (
	"context"

	"github.com/Cyclone1070/reactor/internal/message"
	"github.com/Cyclone1070/reactor/internal/provider"
	"github.com/Cyclone1070/reactor/internal/workflow"
)

// chatter holds the conversation with the backend.
type chatter interface {
	// Chat sends new messages after the stored history and records the reply.
	Chat(ctx context.Context, newMessages ...message.ChatMessage) (*provider.Response, error)
}

// toolDispatcher runs tool calls.
type toolDispatcher interface {
	// ExecuteAll runs every call and returns one result per call, in order.
	// It emits ToolStartEvent and ToolEndEvent to the events channel.
	ExecuteAll(ctx context.Context, calls []message.ToolCall, events chan<- workflow.Event) []message.ToolCallResult
}
