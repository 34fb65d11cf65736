// Package message defines the provider-agnostic conversation model shared by
// the conversation manager, backend adapters and the tool dispatcher.
package message

import (
	"errors"
	"fmt"
	"strings"
)

// Author identifies who produced a message.
type Author string

const (
	AuthorUser      Author = "user"
	AuthorBot       Author = "bot"
	AuthorDeveloper Author = "developer"
)

var (
	// ErrMixedParts is returned when a message mixes tool calls or tool results
	// with any other kind of part.
	ErrMixedParts = errors.New("message mixes tool parts with other parts")

	// ErrEmptyMessage is returned when a message is built without parts.
	ErrEmptyMessage = errors.New("message has no parts")

	// ErrResultCount is returned when a result batch does not answer its call batch one-to-one.
	ErrResultCount = errors.New("tool results do not match the originating call batch")

	// ErrUnresolvedTool is returned when a tool call cannot be mapped to a local tool.
	ErrUnresolvedTool = errors.New("tool call has no resolved tool")
)

// ChatMessage is one immutable turn of a conversation.
//
// A message is either prose/files, a batch of parallel tool calls, or a batch
// of tool results; never a mix. All accessors return copies.
type ChatMessage struct {
	author    Author
	parts     []Part
	refusal   string
	reasoning string
}

// New builds a message, rejecting part combinations a backend could not represent.
func New(author Author, parts ...Part) (ChatMessage, error) {
	if len(parts) == 0 {
		return ChatMessage{}, ErrEmptyMessage
	}

	var calls, results, other int
	owned := make([]Part, 0, len(parts))
	for _, p := range parts {
		switch v := p.(type) {
		case ToolCall:
			calls++
		case ToolCallResult:
			results++
		case Text:
			other++
		case File:
			other++
			p = v.clone()
		case nil:
			return ChatMessage{}, fmt.Errorf("nil part in message")
		default:
			return ChatMessage{}, fmt.Errorf("unsupported part type %T", p)
		}
		owned = append(owned, p)
	}

	if calls > 0 && (results > 0 || other > 0) {
		return ChatMessage{}, fmt.Errorf("%w: %d tool calls with %d other parts", ErrMixedParts, calls, results+other)
	}
	if results > 0 && other > 0 {
		return ChatMessage{}, fmt.Errorf("%w: %d tool results with %d other parts", ErrMixedParts, results, other)
	}

	return ChatMessage{author: author, parts: owned}, nil
}

// NewText builds a single text part message. It cannot fail.
func NewText(author Author, text string) ChatMessage {
	return ChatMessage{author: author, parts: []Part{Text{Content: text}}}
}

// NewToolResults builds the message answering the tool calls carried by calls.
// Results must answer every call exactly once, in any order.
func NewToolResults(calls ChatMessage, results ...ToolCallResult) (ChatMessage, error) {
	pending := make(map[string]bool)
	for _, c := range calls.ToolCalls() {
		pending[c.ID()] = true
	}
	if len(pending) == 0 || len(results) != len(pending) {
		return ChatMessage{}, fmt.Errorf("%w: %d calls, %d results", ErrResultCount, len(pending), len(results))
	}

	parts := make([]Part, 0, len(results))
	for _, r := range results {
		if !pending[r.ToolCallID()] {
			return ChatMessage{}, fmt.Errorf("%w: unexpected result for call %q", ErrResultCount, r.ToolCallID())
		}
		delete(pending, r.ToolCallID())
		parts = append(parts, r)
	}
	return New(AuthorUser, parts...)
}

// WithRefusal returns a copy carrying the backend's refusal text.
func (m ChatMessage) WithRefusal(refusal string) ChatMessage {
	m.parts = append([]Part(nil), m.parts...)
	m.refusal = refusal
	return m
}

// WithReasoning returns a copy carrying the backend's reasoning trace.
func (m ChatMessage) WithReasoning(reasoning string) ChatMessage {
	m.parts = append([]Part(nil), m.parts...)
	m.reasoning = reasoning
	return m
}

func (m ChatMessage) Author() Author    { return m.author }
func (m ChatMessage) Refusal() string   { return m.refusal }
func (m ChatMessage) Reasoning() string { return m.reasoning }
func (m ChatMessage) IsZero() bool      { return m.author == "" && len(m.parts) == 0 }
func (m ChatMessage) Len() int          { return len(m.parts) }
func (m ChatMessage) Parts() []Part     { return append([]Part(nil), m.parts...) }

// HasToolCalls reports whether the message is a tool call batch.
func (m ChatMessage) HasToolCalls() bool {
	return len(m.parts) > 0 && isCall(m.parts[0])
}

// HasToolCallResults reports whether the message is a tool result batch.
func (m ChatMessage) HasToolCallResults() bool {
	return len(m.parts) > 0 && isResult(m.parts[0])
}

// ToolCalls returns the tool calls in order.
func (m ChatMessage) ToolCalls() []ToolCall {
	var out []ToolCall
	for _, p := range m.parts {
		if c, ok := p.(ToolCall); ok {
			out = append(out, c)
		}
	}
	return out
}

// ToolCallResults returns the tool results in order.
func (m ChatMessage) ToolCallResults() []ToolCallResult {
	var out []ToolCallResult
	for _, p := range m.parts {
		if r, ok := p.(ToolCallResult); ok {
			out = append(out, r)
		}
	}
	return out
}

// Files returns the file parts in order.
func (m ChatMessage) Files() []File {
	var out []File
	for _, p := range m.parts {
		if f, ok := p.(File); ok {
			out = append(out, f.clone())
		}
	}
	return out
}

// Text concatenates all text parts.
func (m ChatMessage) Text() string {
	var sb strings.Builder
	for _, p := range m.parts {
		if t, ok := p.(Text); ok {
			sb.WriteString(t.Content)
		}
	}
	return sb.String()
}

// String renders the message for logs.
func (m ChatMessage) String() string {
	parts := make([]string, 0, len(m.parts))
	for _, p := range m.parts {
		parts = append(parts, p.String())
	}
	return fmt.Sprintf("%s: %s", m.author, strings.Join(parts, " | "))
}

func isCall(p Part) bool {
	_, ok := p.(ToolCall)
	return ok
}

func isResult(p Part) bool {
	_, ok := p.(ToolCallResult)
	return ok
}
