package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Cyclone1070/reactor/internal/config"
	"github.com/Cyclone1070/reactor/internal/provider"
	"github.com/Cyclone1070/reactor/internal/provider/anthropic"
	"github.com/Cyclone1070/reactor/internal/provider/gemini"
	"github.com/Cyclone1070/reactor/internal/provider/openai"
	"github.com/Cyclone1070/reactor/internal/ui"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// Dependencies holds the components the commands are built from.
type Dependencies struct {
	In  io.Reader
	Out io.Writer

	// LoadConfig loads path, or the default locations when path is empty.
	LoadConfig func(path string) (*config.Config, error)

	// NewAdapter connects to the configured backend.
	NewAdapter func(ctx context.Context, cfg config.ProviderConfig, logger *zap.Logger) (provider.Adapter, error)

	// NewRenderer returns the markdown renderer for replies.
	NewRenderer func() ui.MarkdownRenderer

	Now func() time.Time
}

func defaultDependencies() Dependencies {
	return Dependencies{
		In:          os.Stdin,
		Out:         os.Stdout,
		LoadConfig:  loadConfig,
		NewAdapter:  newAdapter,
		NewRenderer: newRenderer,
		Now:         time.Now,
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.NewLoader().LoadFile(path)
	}
	return config.Load()
}

// apiKeyVariables are consulted when no key is configured.
var apiKeyVariables = map[string]string{
	"gemini":    "GEMINI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
}

func newAdapter(ctx context.Context, cfg config.ProviderConfig, logger *zap.Logger) (provider.Adapter, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(apiKeyVariables[cfg.Name])
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%s API key is required: set provider.api_key, REACTOR_API_KEY or %s", cfg.Name, apiKeyVariables[cfg.Name])
	}

	var adapter provider.Adapter
	switch cfg.Name {
	case "gemini":
		client, err := gemini.NewClient(ctx, apiKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		adapter = gemini.New(client, cfg.Model, gemini.WithLogger(logger))
	case "anthropic":
		adapter = anthropic.New(apiKey, cfg.BaseURL, cfg.Model, anthropic.WithLogger(logger))
	case "openai":
		adapter = openai.New(apiKey, cfg.BaseURL, cfg.Model, openai.WithLogger(logger))
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Name)
	}
	return provider.WithRequestsPerMinute(adapter, cfg.RequestsPerMinute), nil
}

// newRenderer styles markdown on a terminal and prints it as-is otherwise.
func newRenderer() ui.MarkdownRenderer {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return ui.PlainRenderer{}
	}
	width := 100
	if w, _, err := term.GetSize(fd); err == nil && w > 0 {
		width = w
	}
	r, err := ui.NewGlamourRenderer(width)
	if err != nil {
		return ui.PlainRenderer{}
	}
	return r
}
