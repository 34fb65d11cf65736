package tool

import (
	"context"
	"fmt"

	"github.com/Cyclone1070/reactor/internal/message"
	"github.com/mitchellh/mapstructure"
)

// Validator is an interface for request types that support validation
type Validator interface {
	Validate() error
}

// Func is the typed body of a FuncTool.
type Func[Req any] func(ctx context.Context, req Req) (any, error)

// FuncTool adapts a typed function into a Tool. Arguments are decoded into Req
// with mapstructure using the `json` struct tags, so JSON numbers decode into
// integer fields.
//
// Example usage:
//
//	clock := NewFuncTool("clock", "Returns the current time",
//	    []Parameter{ThoughtParameter, {Name: "zone", Type: TypeString}},
//	    func(ctx context.Context, req ClockRequest) (any, error) { ... },
//	)
type FuncTool[Req any] struct {
	Base
	id          string
	description string
	params      []Parameter
	fn          Func[Req]
}

// NewFuncTool creates a tool backed by fn.
func NewFuncTool[Req any](id, description string, params []Parameter, fn Func[Req]) *FuncTool[Req] {
	return &FuncTool[Req]{
		id:          id,
		description: description,
		params:      append([]Parameter(nil), params...),
		fn:          fn,
	}
}

func (f *FuncTool[Req]) ID() string          { return f.id }
func (f *FuncTool[Req]) Description() string { return f.description }

// Parameters implements Tool.
func (f *FuncTool[Req]) Parameters() []Parameter {
	return append([]Parameter(nil), f.params...)
}

// Invoke implements Tool.
//
// This method:
// 1. Decodes the call arguments into a typed request using mapstructure
// 2. Validates the request if it implements Validator
// 3. Calls the tool function with the typed request
//
// Errors are returned to the caller, which records them as error results.
func (f *FuncTool[Req]) Invoke(ctx context.Context, call message.ToolCall) (message.ToolCallResult, error) {
	if err := f.Ready(); err != nil {
		return message.ToolCallResult{}, fmt.Errorf("%s: %w", f.id, err)
	}

	req, err := Decode[Req](call.Arguments())
	if err != nil {
		return message.ToolCallResult{}, fmt.Errorf("%s: invalid arguments: %w", f.id, err)
	}

	if v, ok := any(&req).(Validator); ok {
		if err := v.Validate(); err != nil {
			return message.ToolCallResult{}, fmt.Errorf("%s validation failed: %w", f.id, err)
		}
	}

	out, err := f.fn(ctx, req)
	if err != nil {
		return message.ToolCallResult{}, err
	}
	return message.NewToolCallResult(call, out, false), nil
}

// Decode maps call arguments onto a typed request.
func Decode[Req any](args map[string]any) (Req, error) {
	var req Req
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &req,
	})
	if err != nil {
		return req, err
	}
	if err := dec.Decode(args); err != nil {
		return req, err
	}
	return req, nil
}
