// Package anthropic adapts the Anthropic Messages API to provider.Adapter.
package anthropic

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Cyclone1070/reactor/internal/message"
	"github.com/Cyclone1070/reactor/internal/provider"
	"github.com/Cyclone1070/reactor/internal/tool"
	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	defaultMaxTokens = 4096
)

// Adapter implements provider.Adapter for Anthropic models.
type Adapter struct {
	client *sdk.Client
	model  string
	logger *zap.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// New creates an adapter talking to baseURL, or the public API when empty.
func New(apiKey, baseURL, model string, opts ...Option) *Adapter {
	client := sdk.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(normalizeBaseURL(baseURL)),
	)
	return NewWithClient(&client, model, opts...)
}

// NewWithClient creates an adapter around an existing SDK client.
func NewWithClient(client *sdk.Client, model string, opts ...Option) *Adapter {
	a := &Adapter{client: client, model: model, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Send implements provider.Adapter.
func (a *Adapter) Send(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	params, err := buildParams(req, a.model)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("anthropic request",
		zap.String("model", a.model),
		zap.Int("messages", len(params.Messages)),
		zap.Int("tools", len(params.Tools)))

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, mapError(err)
	}
	return parseResponse(resp, req.Tools)
}

// Tokenize implements provider.Adapter.
func (a *Adapter) Tokenize(ctx context.Context, window []message.ChatMessage) (int, error) {
	system, msgs, err := buildMessages(window)
	if err != nil {
		return 0, err
	}
	return provider.CountJSON(a.model, struct {
		System   []sdk.TextBlockParam `json:"system,omitempty"`
		Messages []sdk.MessageParam   `json:"messages"`
	}{system, msgs})
}

func buildParams(req *provider.Request, model string) (sdk.MessageNewParams, error) {
	system, msgs, err := buildMessages(req.Messages)
	if err != nil {
		return sdk.MessageNewParams{}, err
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		Messages:  msgs,
		MaxTokens: defaultMaxTokens,
	}
	if len(system) > 0 {
		params.System = system
	}

	if cfg := req.Config; cfg != nil {
		if cfg.MaxOutputTokens != nil {
			params.MaxTokens = int64(*cfg.MaxOutputTokens)
		}
		if cfg.Temperature != nil {
			params.Temperature = sdk.Float(float64(*cfg.Temperature))
		}
		if cfg.TopP != nil {
			params.TopP = sdk.Float(float64(*cfg.TopP))
		}
		if len(cfg.StopSequences) > 0 {
			params.StopSequences = append([]string(nil), cfg.StopSequences...)
		}
	}

	if len(req.Tools) > 0 {
		params.Tools = translateTools(req.Tools)
	}
	return params, nil
}

// buildMessages converts a window. Leading developer messages become the
// system prompt; later ones are sent as user text. The Messages API requires
// the first turn to come from the user, so bot messages before it are dropped
// together with the results of their tool calls.
func buildMessages(window []message.ChatMessage) ([]sdk.TextBlockParam, []sdk.MessageParam, error) {
	var system []sdk.TextBlockParam
	out := make([]sdk.MessageParam, 0, len(window))
	dropped := make(map[string]bool)

	leading := true
	for _, msg := range window {
		if err := provider.CheckOutbound(msg); err != nil {
			return nil, nil, err
		}
		if leading && msg.Author() == message.AuthorDeveloper {
			system = append(system, sdk.TextBlockParam{Text: msg.Text()})
			continue
		}
		leading = false

		if len(out) == 0 && msg.Author() == message.AuthorBot {
			for _, call := range msg.ToolCalls() {
				dropped[call.ID()] = true
			}
			continue
		}

		blocks := toBlocks(msg, dropped)
		if len(blocks) == 0 {
			continue
		}
		if msg.Author() == message.AuthorBot {
			out = append(out, sdk.NewAssistantMessage(blocks...))
		} else {
			out = append(out, sdk.NewUserMessage(blocks...))
		}
	}
	return system, out, nil
}

func toBlocks(msg message.ChatMessage, dropped map[string]bool) []sdk.ContentBlockParamUnion {
	var blocks []sdk.ContentBlockParamUnion
	for _, p := range msg.Parts() {
		switch v := p.(type) {
		case message.Text:
			if v.Content != "" {
				blocks = append(blocks, sdk.NewTextBlock(v.Content))
			}
		case message.File:
			blocks = append(blocks, fileBlock(v))
		case message.ToolCall:
			blocks = append(blocks, sdk.NewToolUseBlock(v.ID(), v.Arguments(), v.ToolID()))
		case message.ToolCallResult:
			if dropped[v.ToolCallID()] {
				continue
			}
			blocks = append(blocks, sdk.NewToolResultBlock(v.ToolCallID(), v.ResultString(), v.IsError()))
		}
	}
	return blocks
}

// fileBlock sends inline images as base64 image blocks. Anything else is
// referenced by name.
func fileBlock(f message.File) sdk.ContentBlockParamUnion {
	mediaType, ok := imageMediaType(f.MIMEType)
	if !ok || len(f.Data) == 0 {
		ref := f.URI
		if ref == "" {
			ref = f.Name
		}
		return sdk.NewTextBlock(fmt.Sprintf("[file %s (%s)]", ref, f.MIMEType))
	}
	return sdk.NewImageBlock(sdk.Base64ImageSourceParam{
		Data:      base64.StdEncoding.EncodeToString(f.Data),
		MediaType: mediaType,
	})
}

func imageMediaType(mime string) (sdk.Base64ImageSourceMediaType, bool) {
	switch mime {
	case "image/jpeg":
		return sdk.Base64ImageSourceMediaTypeImageJPEG, true
	case "image/png":
		return sdk.Base64ImageSourceMediaTypeImagePNG, true
	case "image/gif":
		return sdk.Base64ImageSourceMediaTypeImageGIF, true
	case "image/webp":
		return sdk.Base64ImageSourceMediaTypeImageWebP, true
	default:
		return "", false
	}
}

func translateTools(tools []tool.Tool) []sdk.ToolUnionParam {
	result := make([]sdk.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		decl := tool.Declare(t)
		param := sdk.ToolParam{
			Name:        decl.Name,
			InputSchema: sdk.ToolInputSchemaParam{Properties: map[string]any{}},
		}
		if decl.Description != "" {
			param.Description = sdk.String(decl.Description)
		}
		if decl.Parameters != nil {
			param.InputSchema.Properties = decl.Parameters.Properties
			param.InputSchema.Required = decl.Parameters.Required
		}
		result = append(result, sdk.ToolUnionParam{OfTool: &param})
	}
	return result
}

func parseResponse(resp *sdk.Message, tools []tool.Tool) (*provider.Response, error) {
	var reply provider.Reply
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			reply.Texts = append(reply.Texts, block.AsText().Text)
		case "thinking":
			reply.Reasoning = append(reply.Reasoning, block.AsThinking().Thinking)
		case "tool_use":
			tu := block.AsToolUse()
			args := map[string]any{}
			if len(tu.Input) > 0 {
				if err := json.Unmarshal(tu.Input, &args); err != nil {
					args = map[string]any{"raw": string(tu.Input)}
				}
			}
			var invoker message.Invoker
			if t := provider.ResolveTool(tools, tu.Name); t != nil {
				invoker = t
			}
			reply.Calls = append(reply.Calls, message.NewToolCall(tu.ID, tu.Name, invoker, args))
		}
	}

	reason := toFinishReason(resp.StopReason)
	if reason == provider.FinishInappropriate {
		reply.Refusal = strings.Join(reply.Texts, "")
		if reply.Refusal == "" {
			reply.Refusal = string(resp.StopReason)
		}
		reply.Texts = nil
	}

	msg, err := reply.Message()
	if err != nil {
		return nil, err
	}
	return &provider.Response{
		FinishReason: reason,
		Message:      msg,
		Usage: provider.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}

func toFinishReason(r sdk.StopReason) provider.FinishReason {
	switch r {
	case sdk.StopReasonEndTurn, sdk.StopReasonStopSequence, sdk.StopReasonToolUse:
		return provider.FinishCompleted
	case sdk.StopReasonMaxTokens:
		return provider.FinishTruncated
	case sdk.StopReasonPauseTurn:
		return provider.FinishInProgress
	case sdk.StopReasonRefusal:
		return provider.FinishInappropriate
	default:
		return provider.FinishOther
	}
}

func mapError(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return provider.FromStatus(apiErr.StatusCode, apiErr.Error(), err)
	}
	return &provider.ProviderError{
		Code:       provider.ErrorCodeNetwork,
		Message:    "network error",
		Underlying: err,
		Retryable:  true,
	}
}

func normalizeBaseURL(apiBase string) string {
	base := strings.TrimRight(strings.TrimSpace(apiBase), "/")
	base = strings.TrimSuffix(base, "/v1")
	if base == "" {
		return defaultBaseURL
	}
	return base
}

var knownModels = map[string]provider.ModelInfo{
	"claude-opus-4-1":   {InputTokenLimit: 200_000, OutputTokenLimit: 32_000},
	"claude-sonnet-4-5": {InputTokenLimit: 200_000, OutputTokenLimit: 64_000},
	"claude-sonnet-4-0": {InputTokenLimit: 200_000, OutputTokenLimit: 64_000},
	"claude-haiku-4-5":  {InputTokenLimit: 200_000, OutputTokenLimit: 64_000},
	"claude-3-5-haiku":  {InputTokenLimit: 200_000, OutputTokenLimit: 8_192},
}

// ContextSize returns the context window of well-known Claude models.
func (a *Adapter) ContextSize(ctx context.Context) (int, error) {
	info, err := provider.Models.Lookup(ctx, a.model, provider.StaticLoader(knownModels))
	if err != nil {
		return 0, err
	}
	return info.InputTokenLimit, nil
}
