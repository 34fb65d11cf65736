// Package loop runs one conversational turn: the user's message goes out and
// tool calls are answered until the backend replies without calling a tool.
package loop

import (
	"context"
	"errors"
	"fmt"

	"github.com/Cyclone1070/reactor/internal/message"
	"github.com/Cyclone1070/reactor/internal/provider"
	"github.com/Cyclone1070/reactor/internal/workflow"
)

// ErrMaxIterations is returned when the backend keeps calling tools.
var ErrMaxIterations = errors.New("max iterations reached")

type Loop struct {
	actor         string
	chat          chatter
	tools         toolDispatcher
	events        chan<- workflow.Event
	maxIterations int

	// pending holds tool results left unsent when a run hit the iteration
	// limit, so the next run answers the outstanding calls first.
	pending []message.ChatMessage
}

func NewLoop(actor string, chat chatter, tools toolDispatcher, events chan<- workflow.Event, maxIterations int) *Loop {
	return &Loop{
		actor:         actor,
		chat:          chat,
		tools:         tools,
		events:        events,
		maxIterations: maxIterations,
	}
}

// Run sends input and returns the first reply that is not a tool call batch.
func (l *Loop) Run(ctx context.Context, input ...message.ChatMessage) (*provider.Response, error) {
	defer workflow.Emit(l.events, workflow.DoneEvent{Actor: l.actor})

	next := append(l.pending, input...)
	l.pending = nil
	for i := 0; i < l.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			l.pending = pendingResults(next)
			return nil, err
		}

		workflow.Emit(l.events, workflow.ThinkingEvent{Actor: l.actor})

		resp, err := l.chat.Chat(ctx, next...)
		if err != nil {
			l.pending = pendingResults(next)
			return nil, fmt.Errorf("chat: %w", err)
		}

		if !resp.Message.HasToolCalls() {
			if text := resp.Message.Text(); text != "" {
				workflow.Emit(l.events, workflow.TextEvent{Actor: l.actor, Text: text})
			}
			return resp, nil
		}

		results := l.tools.ExecuteAll(ctx, resp.Message.ToolCalls(), l.events)
		answer, err := message.NewToolResults(resp.Message, results...)
		if err != nil {
			return nil, fmt.Errorf("tool results: %w", err)
		}
		next = []message.ChatMessage{answer}
	}

	l.pending = next
	return nil, fmt.Errorf("%w (%d)", ErrMaxIterations, l.maxIterations)
}

// pendingResults keeps the tool results of an unsent batch.
func pendingResults(msgs []message.ChatMessage) []message.ChatMessage {
	var out []message.ChatMessage
	for _, m := range msgs {
		if m.HasToolCallResults() {
			out = append(out, m)
		}
	}
	return out
}
