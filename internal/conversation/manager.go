// Package conversation keeps the message history of one agent session and
// decides which part of it is sent with each backend call.
package conversation

import (
	"context"
	"fmt"
	"sync"

	"github.com/Cyclone1070/reactor/internal/message"
	"github.com/Cyclone1070/reactor/internal/provider"
	"github.com/Cyclone1070/reactor/internal/tool"
	"go.uber.org/zap"
)

const (
	DefaultMaxHistoryLength     = 1000
	DefaultMaxConversationSteps = 50
)

// Manager owns the history of one session. All methods are safe for concurrent
// use; overlapping Chat calls are serialized.
type Manager struct {
	mu sync.Mutex

	adapter     provider.Adapter
	history     []message.ChatMessage
	personality string

	maxHistoryLength int
	limits           limits

	tools  []tool.Tool
	config *provider.GenerateConfig
	logger *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithPersonality sets the system prompt sent on top of every window.
func WithPersonality(text string) Option {
	return func(m *Manager) { m.personality = text }
}

// WithLimits sets the stored history length and the per-call ceilings.
// Zero disables a limit; negative values are ignored.
func WithLimits(historyLength, steps, tokens int) Option {
	return func(m *Manager) {
		if historyLength >= 0 {
			m.maxHistoryLength = historyLength
		}
		if steps >= 0 {
			m.limits.steps = steps
		}
		if tokens >= 0 {
			m.limits.tokens = tokens
		}
	}
}

// WithGenerateConfig sets the generation parameters sent with every call.
func WithGenerateConfig(cfg *provider.GenerateConfig) Option {
	return func(m *Manager) { m.config = cfg.Clone() }
}

// WithTools sets the tools advertised to the backend.
func WithTools(tools ...tool.Tool) Option {
	return func(m *Manager) { m.tools = append([]tool.Tool(nil), tools...) }
}

// New creates a manager sending through adapter.
func New(adapter provider.Adapter, opts ...Option) *Manager {
	m := &Manager{
		adapter:          adapter,
		maxHistoryLength: DefaultMaxHistoryLength,
		limits:           limits{steps: DefaultMaxConversationSteps},
		logger:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Chat sends the history plus newMessages, trimmed to the current limits.
// On success the new messages and the reply are appended to the history; on
// any failure the history is left untouched.
func (m *Manager) Chat(ctx context.Context, newMessages ...message.ChatMessage) (*provider.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	working := make([]message.ChatMessage, 0, len(m.history)+len(newMessages)+1)
	working = append(working, m.history...)
	working = append(working, newMessages...)

	resp, err := m.send(ctx, working)
	if err != nil {
		return nil, err
	}

	m.history = append(working, resp.Message)
	if m.maxHistoryLength > 0 && len(m.history) > m.maxHistoryLength {
		m.history = append([]message.ChatMessage(nil), m.history[len(m.history)-m.maxHistoryLength:]...)
	}
	return resp, nil
}

// Complete sends messages on their own. The history is neither read nor written.
func (m *Manager) Complete(ctx context.Context, messages ...message.ChatMessage) (*provider.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.send(ctx, append([]message.ChatMessage(nil), messages...))
}

// send trims working, prepends the personality and performs the call.
// Callers hold m.mu.
func (m *Manager) send(ctx context.Context, working []message.ChatMessage) (*provider.Response, error) {
	window, err := m.selectWindow(ctx, working, m.limits)
	if err != nil {
		return nil, err
	}
	if m.personality != "" {
		window = append([]message.ChatMessage{message.NewText(message.AuthorDeveloper, m.personality)}, window...)
	}

	m.logger.Debug("backend call", zap.Int("messages", len(window)), zap.Int("tools", len(m.tools)))

	resp, err := m.adapter.Send(ctx, &provider.Request{
		Messages: window,
		Tools:    append([]tool.Tool(nil), m.tools...),
		Config:   m.config.Clone(),
	})
	if err != nil {
		return nil, fmt.Errorf("backend call: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("backend call: empty response")
	}

	m.logger.Debug("backend reply",
		zap.String("finish_reason", string(resp.FinishReason)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))
	return resp, nil
}

// ClearConversation drops the stored history.
func (m *Manager) ClearConversation() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = nil
}

// ReplaceHistory replaces the stored history with a copy of history.
func (m *Manager) ReplaceHistory(history []message.ChatMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append([]message.ChatMessage(nil), history...)
}

// History returns a copy of the stored history.
func (m *Manager) History() []message.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]message.ChatMessage(nil), m.history...)
}

// SetPersonality sets the system prompt. An empty string removes it.
func (m *Manager) SetPersonality(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.personality = text
}

// Personality returns the current system prompt.
func (m *Manager) Personality() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.personality
}

// SetMaxHistoryLength bounds the stored history. Zero keeps everything.
// The current history is truncated immediately.
func (m *Manager) SetMaxHistoryLength(n int) error {
	if n < 0 {
		return fmt.Errorf("max history length %d: %w", n, ErrInvalidLimit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxHistoryLength = n
	if n > 0 && len(m.history) > n {
		m.history = append([]message.ChatMessage(nil), m.history[len(m.history)-n:]...)
	}
	return nil
}

// SetMaxConversationSteps bounds the messages sent per call. Zero disables it.
func (m *Manager) SetMaxConversationSteps(n int) error {
	if n < 0 {
		return fmt.Errorf("max conversation steps %d: %w", n, ErrInvalidLimit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limits.steps = n
	return nil
}

// SetMaxConversationTokens bounds the tokens sent per call. Zero disables it.
func (m *Manager) SetMaxConversationTokens(n int) error {
	if n < 0 {
		return fmt.Errorf("max conversation tokens %d: %w", n, ErrInvalidLimit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limits.tokens = n
	return nil
}

// FitContextSize sets the token ceiling to the model's context size when no
// ceiling is set and the adapter knows it. Output tokens are reserved from
// the window when a maximum is configured.
func (m *Manager) FitContextSize(ctx context.Context) error {
	sizer, ok := m.adapter.(provider.ContextSizer)
	if !ok {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.limits.tokens > 0 {
		return nil
	}

	size, err := sizer.ContextSize(ctx)
	if err != nil {
		return fmt.Errorf("context size: %w", err)
	}
	if size <= 0 {
		return nil
	}
	if m.config != nil && m.config.MaxOutputTokens != nil && *m.config.MaxOutputTokens < size {
		size -= *m.config.MaxOutputTokens
	}
	m.limits.tokens = size
	m.logger.Debug("token ceiling fitted to model", zap.Int("tokens", size))
	return nil
}

// Limits returns the stored history length and the per-call ceilings.
func (m *Manager) Limits() (historyLength, steps, tokens int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxHistoryLength, m.limits.steps, m.limits.tokens
}

// SetTools replaces the tools advertised to the backend.
func (m *Manager) SetTools(tools []tool.Tool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tools = append([]tool.Tool(nil), tools...)
}

// Tools returns the tools advertised to the backend.
func (m *Manager) Tools() []tool.Tool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]tool.Tool(nil), m.tools...)
}

// SetGenerateConfig replaces the generation parameters.
func (m *Manager) SetGenerateConfig(cfg *provider.GenerateConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = cfg.Clone()
}
