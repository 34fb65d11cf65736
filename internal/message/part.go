package message

import (
	"context"
	"fmt"
)

// Part is one element of a ChatMessage. The set of implementations is closed:
// Text, File, ToolCall and ToolCallResult.
type Part interface {
	fmt.Stringer
	isPart()
}

// Text is a prose part.
type Text struct {
	Content string
}

func (Text) isPart()          {}
func (t Text) String() string { return t.Content }

// File is an attached file, either inline (Data) or by reference (URI).
type File struct {
	Name     string
	MIMEType string
	Data     []byte
	URI      string
}

func (File) isPart() {}

func (f File) String() string {
	if f.URI != "" {
		return fmt.Sprintf("[file %s %s]", f.MIMEType, f.URI)
	}
	return fmt.Sprintf("[file %s %s, %d bytes]", f.MIMEType, f.Name, len(f.Data))
}

func (f File) clone() File {
	if f.Data != nil {
		f.Data = append([]byte(nil), f.Data...)
	}
	return f
}

// Invoker is the part of a tool a ToolCall needs to execute itself.
type Invoker interface {
	ID() string
	Invoke(ctx context.Context, call ToolCall) (ToolCallResult, error)
}

// ToolCall is a backend request to invoke a locally registered tool.
type ToolCall struct {
	id     string
	toolID string
	tool   Invoker
	args   map[string]any
}

// NewToolCall builds a tool call. tool may be nil when the backend named a tool
// that is not registered locally.
func NewToolCall(id, toolID string, tool Invoker, args map[string]any) ToolCall {
	copied, _ := deepCopy(args).(map[string]any)
	if copied == nil {
		copied = map[string]any{}
	}
	return ToolCall{id: id, toolID: toolID, tool: tool, args: copied}
}

func (ToolCall) isPart() {}

func (c ToolCall) ID() string     { return c.id }
func (c ToolCall) ToolID() string { return c.toolID }
func (c ToolCall) Tool() Invoker  { return c.tool }

// Arguments returns a copy of the call arguments.
func (c ToolCall) Arguments() map[string]any {
	copied, _ := deepCopy(c.args).(map[string]any)
	return copied
}

// Argument returns a single argument.
func (c ToolCall) Argument(name string) (any, bool) {
	v, ok := c.args[name]
	return deepCopy(v), ok
}

// Execute invokes the resolved tool.
func (c ToolCall) Execute(ctx context.Context) (ToolCallResult, error) {
	if c.tool == nil {
		return ToolCallResult{}, fmt.Errorf("%w: %q", ErrUnresolvedTool, c.toolID)
	}
	return c.tool.Invoke(ctx, c)
}

func (c ToolCall) String() string {
	return fmt.Sprintf("[call %s %s %v]", c.id, c.toolID, c.args)
}

// ToolCallResult answers exactly one ToolCall.
type ToolCallResult struct {
	toolCallID string
	toolID     string
	result     any
	isError    bool
}

// NewToolCallResult builds the result of call. The result value is deep copied.
func NewToolCallResult(call ToolCall, result any, isError bool) ToolCallResult {
	return ToolCallResult{
		toolCallID: call.id,
		toolID:     call.toolID,
		result:     deepCopy(result),
		isError:    isError,
	}
}

// NewToolCallError builds an error result carrying err's message.
func NewToolCallError(call ToolCall, err error) ToolCallResult {
	return NewToolCallResult(call, "Error: "+err.Error(), true)
}

// RestoreToolCallResult rebuilds a result from its identifiers, for adapters
// and tests that do not hold the originating call.
func RestoreToolCallResult(toolCallID, toolID string, result any, isError bool) ToolCallResult {
	return ToolCallResult{toolCallID: toolCallID, toolID: toolID, result: deepCopy(result), isError: isError}
}

func (ToolCallResult) isPart() {}

func (r ToolCallResult) ToolCallID() string { return r.toolCallID }
func (r ToolCallResult) ToolID() string     { return r.toolID }
func (r ToolCallResult) IsError() bool      { return r.isError }

// Result returns a copy of the result value.
func (r ToolCallResult) Result() any { return deepCopy(r.result) }

// ResultString renders the result as the text sent back to a backend.
func (r ToolCallResult) ResultString() string {
	switch v := r.result.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return toJSON(v)
	}
}

func (r ToolCallResult) String() string {
	if r.isError {
		return fmt.Sprintf("[error %s %s: %s]", r.toolCallID, r.toolID, r.ResultString())
	}
	return fmt.Sprintf("[result %s %s: %s]", r.toolCallID, r.toolID, r.ResultString())
}
