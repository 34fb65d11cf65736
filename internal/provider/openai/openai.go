// Package openai adapts OpenAI-compatible chat completion endpoints to
// provider.Adapter.
package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Cyclone1070/reactor/internal/message"
	"github.com/Cyclone1070/reactor/internal/provider"
	"github.com/Cyclone1070/reactor/internal/tool"
	sdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const defaultRequestTimeout = 120 * time.Second

// Adapter implements provider.Adapter for OpenAI-compatible APIs.
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

// New creates an adapter. An empty baseURL uses the SDK default.
func New(apiKey, baseURL, model string, opts ...Option) *Adapter {
	reqOpts := []option.RequestOption{
		option.WithHTTPClient(&http.Client{Timeout: defaultRequestTimeout}),
	}
	if base := strings.TrimRight(baseURL, "/"); base != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(base))
	}
	if apiKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(apiKey))
	}
	client := sdk.NewClient(reqOpts...)

	a := &Adapter{client: &client, model: model, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Send implements provider.Adapter.
func (a *Adapter) Send(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	msgs, err := buildChatMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	params := sdk.ChatCompletionNewParams{
		Model:    a.model,
		Messages: msgs,
	}
	if len(req.Tools) > 0 {
		params.Tools = buildChatTools(req.Tools)
	}
	applyConfig(&params, req.Config)

	a.logger.Debug("openai request",
		zap.String("model", a.model),
		zap.Int("messages", len(msgs)),
		zap.Int("tools", len(req.Tools)))

	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, mapError(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, &provider.ProviderError{
			Code:    provider.ErrorCodeInvalidRequest,
			Message: "no choices in response",
		}
	}

	return parseChoice(resp.Choices[0], resp.Usage, req.Tools)
}

// Tokenize implements provider.Adapter.
func (a *Adapter) Tokenize(ctx context.Context, window []message.ChatMessage) (int, error) {
	msgs, err := buildChatMessages(window)
	if err != nil {
		return 0, err
	}
	return provider.CountJSON(a.model, msgs)
}

func buildChatMessages(window []message.ChatMessage) ([]sdk.ChatCompletionMessageParamUnion, error) {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(window))
	for _, msg := range window {
		if err := provider.CheckOutbound(msg); err != nil {
			return nil, err
		}

		switch {
		case msg.Author() == message.AuthorDeveloper:
			out = append(out, sdk.SystemMessage(msg.Text()))
		case msg.Author() == message.AuthorBot:
			out = append(out, buildAssistantMessage(msg))
		case msg.HasToolCallResults():
			// One tool message per result, in call order
			for _, r := range msg.ToolCallResults() {
				out = append(out, sdk.ToolMessage(r.ResultString(), r.ToolCallID()))
			}
		case len(msg.Files()) > 0:
			out = append(out, sdk.UserMessage(contentParts(msg)))
		default:
			out = append(out, sdk.UserMessage(msg.Text()))
		}
	}
	return out, nil
}

func contentParts(msg message.ChatMessage) []sdk.ChatCompletionContentPartUnionParam {
	parts := make([]sdk.ChatCompletionContentPartUnionParam, 0, msg.Len())
	for _, p := range msg.Parts() {
		switch v := p.(type) {
		case message.Text:
			parts = append(parts, sdk.TextContentPart(v.Content))
		case message.File:
			url := v.URI
			if url == "" {
				url = fmt.Sprintf("data:%s;base64,%s", v.MIMEType, base64.StdEncoding.EncodeToString(v.Data))
			}
			parts = append(parts, sdk.ImageContentPart(sdk.ChatCompletionContentPartImageImageURLParam{URL: url}))
		}
	}
	return parts
}

func buildAssistantMessage(msg message.ChatMessage) sdk.ChatCompletionMessageParamUnion {
	assistant := sdk.ChatCompletionAssistantMessageParam{}
	if text := msg.Text(); text != "" {
		assistant.Content.OfString = sdk.String(text)
	}
	if refusal := msg.Refusal(); refusal != "" {
		assistant.Refusal = sdk.String(refusal)
	}
	for _, tc := range msg.ToolCalls() {
		args := "{}"
		if b, err := json.Marshal(tc.Arguments()); err == nil {
			args = string(b)
		}
		assistant.ToolCalls = append(assistant.ToolCalls, sdk.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &sdk.ChatCompletionMessageFunctionToolCallParam{
				ID: tc.ID(),
				Function: sdk.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      tc.ToolID(),
					Arguments: args,
				},
			},
		})
	}
	return sdk.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
}

func buildChatTools(tools []tool.Tool) []sdk.ChatCompletionToolUnionParam {
	out := make([]sdk.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		decl := tool.Declare(t)
		fn := shared.FunctionDefinitionParam{
			Name:        decl.Name,
			Description: sdk.String(decl.Description),
			Parameters:  shared.FunctionParameters(decl.Parameters.Map()),
		}
		out = append(out, sdk.ChatCompletionFunctionTool(fn))
	}
	return out
}

func applyConfig(params *sdk.ChatCompletionNewParams, cfg *provider.GenerateConfig) {
	if cfg == nil {
		return
	}
	if cfg.MaxOutputTokens != nil {
		params.MaxCompletionTokens = sdk.Opt(int64(*cfg.MaxOutputTokens))
	}
	if cfg.Temperature != nil {
		params.Temperature = sdk.Opt(float64(*cfg.Temperature))
	}
	if cfg.TopP != nil {
		params.TopP = sdk.Opt(float64(*cfg.TopP))
	}
	if len(cfg.StopSequences) > 0 {
		params.Stop = sdk.ChatCompletionNewParamsStopUnion{OfStringArray: append([]string(nil), cfg.StopSequences...)}
	}
}

func parseChoice(choice sdk.ChatCompletionChoice, usage sdk.CompletionUsage, tools []tool.Tool) (*provider.Response, error) {
	reply := provider.Reply{Refusal: choice.Message.Refusal}
	if choice.Message.Content != "" {
		reply.Texts = []string{choice.Message.Content}
	}

	for _, call := range choice.Message.ToolCalls {
		v, ok := call.AsAny().(sdk.ChatCompletionMessageFunctionToolCall)
		if !ok {
			continue
		}
		args := map[string]any{}
		if strings.TrimSpace(v.Function.Arguments) != "" {
			if err := json.Unmarshal([]byte(v.Function.Arguments), &args); err != nil {
				args = map[string]any{"raw": v.Function.Arguments}
			}
		}
		var invoker message.Invoker
		if t := provider.ResolveTool(tools, v.Function.Name); t != nil {
			invoker = t
		}
		reply.Calls = append(reply.Calls, message.NewToolCall(v.ID, v.Function.Name, invoker, args))
	}

	reason := toFinishReason(choice.FinishReason)
	if reply.Refusal != "" {
		reason = provider.FinishInappropriate
	}

	msg, err := reply.Message()
	if err != nil {
		return nil, err
	}
	return &provider.Response{
		FinishReason: reason,
		Message:      msg,
		Usage: provider.Usage{
			PromptTokens:     int(usage.PromptTokens),
			CompletionTokens: int(usage.CompletionTokens),
			TotalTokens:      int(usage.TotalTokens),
		},
	}, nil
}

func toFinishReason(r string) provider.FinishReason {
	switch r {
	case "stop", "tool_calls", "function_call":
		return provider.FinishCompleted
	case "length":
		return provider.FinishTruncated
	case "content_filter":
		return provider.FinishInappropriate
	case "":
		return provider.FinishInProgress
	default:
		return provider.FinishOther
	}
}

func mapError(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return provider.FromStatus(apiErr.StatusCode, strings.TrimSpace(apiErr.Message), err)
	}
	return &provider.ProviderError{
		Code:       provider.ErrorCodeNetwork,
		Message:    "network error",
		Underlying: err,
		Retryable:  true,
	}
}

var knownModels = map[string]provider.ModelInfo{
	"gpt-4o":       {InputTokenLimit: 128_000, OutputTokenLimit: 16_384},
	"gpt-4o-mini":  {InputTokenLimit: 128_000, OutputTokenLimit: 16_384},
	"gpt-4.1":      {InputTokenLimit: 1_047_576, OutputTokenLimit: 32_768},
	"gpt-4.1-mini": {InputTokenLimit: 1_047_576, OutputTokenLimit: 32_768},
	"gpt-5":        {InputTokenLimit: 400_000, OutputTokenLimit: 128_000},
	"o3":           {InputTokenLimit: 200_000, OutputTokenLimit: 100_000},
}

// ContextSize returns the context window of well-known OpenAI models.
func (a *Adapter) ContextSize(ctx context.Context) (int, error) {
	info, err := provider.Models.Lookup(ctx, a.model, provider.StaticLoader(knownModels))
	if err != nil {
		return 0, err
	}
	return info.InputTokenLimit, nil
}
