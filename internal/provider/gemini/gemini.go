// Package gemini adapts the Google Gemini API to provider.Adapter.
package gemini

import (
	"context"

	"github.com/Cyclone1070/reactor/internal/message"
	"github.com/Cyclone1070/reactor/internal/provider"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Adapter implements provider.Adapter for Google Gemini.
type Adapter struct {
	client      GeminiClient
	model       string
	remoteCount bool
	logger      *zap.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// WithRemoteTokenCount makes Tokenize call the CountTokens endpoint instead
// of counting locally.
func WithRemoteTokenCount() Option {
	return func(a *Adapter) { a.remoteCount = true }
}

// New creates an adapter for model using client.
func New(client GeminiClient, model string, opts ...Option) *Adapter {
	a := &Adapter{client: client, model: model, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Send sends the window to Gemini and returns the normalized reply.
func (a *Adapter) Send(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	system, contents, err := toGeminiContents(req.Messages)
	if err != nil {
		return nil, err
	}

	config := toGeminiConfig(req.Config)
	config.SystemInstruction = system
	if len(req.Tools) > 0 {
		config.Tools = toGeminiTools(req.Tools)
	}

	a.logger.Debug("gemini request",
		zap.String("model", a.model),
		zap.Int("contents", len(contents)),
		zap.Int("tools", len(req.Tools)))

	resp, err := a.client.GenerateContent(ctx, a.model, contents, config)
	if err != nil {
		return nil, mapGeminiError(err)
	}

	return fromGeminiResponse(resp, req.Tools)
}

// Tokenize counts the tokens of window as Send would serialize it.
func (a *Adapter) Tokenize(ctx context.Context, window []message.ChatMessage) (int, error) {
	system, contents, err := toGeminiContents(window)
	if err != nil {
		return 0, err
	}
	if system != nil {
		contents = append([]*genai.Content{system}, contents...)
	}

	if a.remoteCount {
		resp, err := a.client.CountTokens(ctx, a.model, contents)
		if err != nil {
			return 0, mapGeminiError(err)
		}
		return int(resp.TotalTokens), nil
	}
	return provider.CountJSON(a.model, contents)
}

// ContextSize returns the model's input token limit, cached process-wide.
func (a *Adapter) ContextSize(ctx context.Context) (int, error) {
	info, err := provider.Models.Lookup(ctx, a.model, a.loadModel)
	if err != nil {
		return 0, err
	}
	return info.InputTokenLimit, nil
}

func (a *Adapter) loadModel(ctx context.Context, model string) (provider.ModelInfo, error) {
	m, err := a.client.GetModel(ctx, model)
	if err != nil {
		return provider.ModelInfo{}, mapGeminiError(err)
	}
	return provider.ModelInfo{
		Name:             model,
		InputTokenLimit:  int(m.InputTokenLimit),
		OutputTokenLimit: int(m.OutputTokenLimit),
	}, nil
}

// Model returns the model id requests are sent to.
func (a *Adapter) Model() string { return a.model }
