// Package provider defines the contract every language-model backend adapter
// implements, plus the error taxonomy and caches shared across adapters.
package provider

import (
	"context"

	"github.com/Cyclone1070/reactor/internal/message"
	"github.com/Cyclone1070/reactor/internal/tool"
)

// FinishReason is the normalized outcome of one backend call.
type FinishReason string

const (
	FinishInProgress    FinishReason = "IN_PROGRESS"
	FinishCompleted     FinishReason = "COMPLETED"
	FinishTruncated     FinishReason = "TRUNCATED"
	FinishInappropriate FinishReason = "INAPPROPRIATE"
	FinishOther         FinishReason = "OTHER"
)

// Adapter translates the provider-agnostic model to and from one backend.
type Adapter interface {
	// Send issues one blocking call with the given window and returns the
	// normalized reply. Tool calls in the reply are resolved against req.Tools.
	Send(ctx context.Context, req *Request) (*Response, error)

	// Tokenize serializes window exactly as Send would and counts its tokens.
	Tokenize(ctx context.Context, window []message.ChatMessage) (int, error)
}

// ContextSizer is implemented by adapters that know their model's context window.
// A size of zero means the window is unknown.
type ContextSizer interface {
	ContextSize(ctx context.Context) (int, error)
}

// Request encapsulates all parameters for a backend call.
type Request struct {
	// Messages is the trimmed window, personality first when set
	Messages []message.ChatMessage

	// Tools are advertised to the backend; nil disables tool calling
	Tools []tool.Tool

	// Config contains optional generation parameters
	Config *GenerateConfig
}

// GenerateConfig contains optional generation parameters.
// All fields are pointers to distinguish between "not set" and "zero value".
type GenerateConfig struct {
	Temperature     *float32
	TopP            *float32
	MaxOutputTokens *int
	StopSequences   []string
}

// Clone returns a deep copy of c.
func (c *GenerateConfig) Clone() *GenerateConfig {
	if c == nil {
		return nil
	}
	out := &GenerateConfig{StopSequences: append([]string(nil), c.StopSequences...)}
	if c.Temperature != nil {
		out.Temperature = Float32(*c.Temperature)
	}
	if c.TopP != nil {
		out.TopP = Float32(*c.TopP)
	}
	if c.MaxOutputTokens != nil {
		out.MaxOutputTokens = Int(*c.MaxOutputTokens)
	}
	return out
}

// Response is the normalized reply of one backend call.
type Response struct {
	FinishReason FinishReason
	Message      message.ChatMessage
	Usage        Usage
}

// Usage contains token accounting reported by the backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ResolveTool finds the tool a backend named. It returns nil when the name is
// not registered, which callers must handle.
func ResolveTool(tools []tool.Tool, name string) tool.Tool {
	for _, t := range tools {
		if t.ID() == name {
			return t
		}
	}
	return nil
}

// Float32 returns a pointer to v.
func Float32(v float32) *float32 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
