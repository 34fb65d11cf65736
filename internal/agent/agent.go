// Package agent binds a conversation to the tools it may call. Capabilities
// are attached and detached as units and the advertised tool list follows them.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Cyclone1070/reactor/internal/conversation"
	"github.com/Cyclone1070/reactor/internal/message"
	"github.com/Cyclone1070/reactor/internal/provider"
	"github.com/Cyclone1070/reactor/internal/tool"
	"github.com/Cyclone1070/reactor/internal/workflow"
	"github.com/Cyclone1070/reactor/internal/workflow/loop"
	"github.com/Cyclone1070/reactor/internal/workflow/toolmanager"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrContractViolation is returned when a tool lacks a parameter the agent requires.
	ErrContractViolation = errors.New("tool violates the agent's parameter contract")

	// ErrDuplicateTool is returned when a tool id is already provided by another capability.
	ErrDuplicateTool = errors.New("tool id already registered")

	// ErrDuplicateCapability is returned when a capability id is already attached.
	ErrDuplicateCapability = errors.New("capability already attached")

	// ErrUnknownCapability is returned when detaching a capability that is not attached.
	ErrUnknownCapability = errors.New("capability not attached")
)

// DefaultMaxToolIterations bounds tool round trips within one Chat call.
const DefaultMaxToolIterations = 20

// Agent owns one conversation and the tools it advertises.
type Agent struct {
	id     string
	conv   *conversation.Manager
	tools  *toolmanager.ToolManager
	logger *zap.Logger
	events chan<- workflow.Event

	// required lists parameters every attached tool must declare as required.
	required []string

	mu           sync.Mutex
	capabilities map[string]tool.Capability
	owners       map[string]string // tool id -> capability id

	chatMu sync.Mutex
	loop   *loop.Loop
}

// Option configures an Agent.
type Option func(*agentConfig)

type agentConfig struct {
	id                string
	logger            *zap.Logger
	events            chan<- workflow.Event
	required          []string
	convOpts          []conversation.Option
	maxToolIterations int
}

// WithID sets the agent id. A random id is used otherwise.
func WithID(id string) Option {
	return func(c *agentConfig) { c.id = id }
}

// WithLogger sets the logger for the agent and its conversation.
func WithLogger(l *zap.Logger) Option {
	return func(c *agentConfig) { c.logger = l }
}

// WithEvents sets the channel workflow events are emitted on.
func WithEvents(events chan<- workflow.Event) Option {
	return func(c *agentConfig) { c.events = events }
}

// WithRequiredParameters makes every attached tool declare the named
// parameters as required.
func WithRequiredParameters(names ...string) Option {
	return func(c *agentConfig) { c.required = append(c.required, names...) }
}

// WithConversation passes options to the conversation manager.
func WithConversation(opts ...conversation.Option) Option {
	return func(c *agentConfig) { c.convOpts = append(c.convOpts, opts...) }
}

// WithMaxToolIterations bounds tool round trips within one Chat call.
func WithMaxToolIterations(n int) Option {
	return func(c *agentConfig) { c.maxToolIterations = n }
}

// New creates an agent talking to adapter.
func New(adapter provider.Adapter, opts ...Option) *Agent {
	cfg := agentConfig{logger: zap.NewNop(), maxToolIterations: DefaultMaxToolIterations}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.id == "" {
		cfg.id = "agent-" + uuid.NewString()
	}
	logger := cfg.logger.With(zap.String("agent", cfg.id))

	convOpts := append([]conversation.Option{conversation.WithLogger(logger)}, cfg.convOpts...)
	tools := toolmanager.NewToolManager()
	tools.SetLogger(logger)

	a := &Agent{
		id:           cfg.id,
		conv:         conversation.New(adapter, convOpts...),
		tools:        tools,
		logger:       logger,
		events:       cfg.events,
		required:     cfg.required,
		capabilities: make(map[string]tool.Capability),
		owners:       make(map[string]string),
	}
	a.loop = loop.NewLoop(a.id, a.conv, a.tools, a.events, cfg.maxToolIterations)
	return a
}

func (a *Agent) ID() string { return a.id }

// Conversation returns the agent's conversation manager.
func (a *Agent) Conversation() *conversation.Manager { return a.conv }

// ToolManager returns the agent's tool registry.
func (a *Agent) ToolManager() *toolmanager.ToolManager { return a.tools }

// Logger returns the agent's logger.
func (a *Agent) Logger() *zap.Logger { return a.logger }

// Events returns the channel workflow events are emitted on, or nil.
func (a *Agent) Events() chan<- workflow.Event { return a.events }

// Chat runs one conversational turn, answering tool calls until the backend
// replies with prose. Calls are serialized.
func (a *Agent) Chat(ctx context.Context, input ...message.ChatMessage) (*provider.Response, error) {
	a.chatMu.Lock()
	defer a.chatMu.Unlock()
	return a.loop.Run(ctx, input...)
}

// AddCapability validates, initializes and registers every tool of c. Nothing
// is initialized when validation fails.
func (a *Agent) AddCapability(c tool.Capability) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.capabilities[c.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCapability, c.ID())
	}
	tools := c.Tools()
	if err := a.validateLocked(c.ID(), tools); err != nil {
		return err
	}
	if err := c.Init(a); err != nil {
		return fmt.Errorf("add capability %s: %w", c.ID(), err)
	}

	a.capabilities[c.ID()] = c
	for _, t := range tools {
		a.tools.Register(t)
		a.owners[t.ID()] = c.ID()
	}
	c.AddListener(a)
	a.refreshLocked()

	a.logger.Debug("capability added", zap.String("capability", c.ID()), zap.Int("tools", len(tools)))
	return nil
}

// RemoveCapability unregisters and closes every tool of the capability.
func (a *Agent) RemoveCapability(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	c, ok := a.capabilities[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCapability, id)
	}
	c.RemoveListener(a)
	for toolID, owner := range a.owners {
		if owner == id {
			a.tools.Unregister(toolID)
			delete(a.owners, toolID)
		}
	}
	delete(a.capabilities, id)
	a.refreshLocked()

	a.logger.Debug("capability removed", zap.String("capability", id))
	return c.Close()
}

// Capabilities returns the ids of the attached capabilities, sorted.
func (a *Agent) Capabilities() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := make([]string, 0, len(a.capabilities))
	for id := range a.capabilities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close detaches every capability.
func (a *Agent) Close() error {
	var errs []error
	for _, id := range a.Capabilities() {
		if err := a.RemoveCapability(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ToolsAdded implements tool.Listener.
func (a *Agent) ToolsAdded(ev tool.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	capID := ev.Capability.ID()
	if _, ok := a.capabilities[capID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCapability, capID)
	}
	if err := a.validateLocked(capID, ev.Tools); err != nil {
		return err
	}
	for _, t := range ev.Tools {
		a.tools.Register(t)
		a.owners[t.ID()] = capID
	}
	a.refreshLocked()
	return nil
}

// ToolsRemoved implements tool.Listener.
func (a *Agent) ToolsRemoved(ev tool.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, t := range ev.Tools {
		if a.owners[t.ID()] == ev.Capability.ID() {
			a.tools.Unregister(t.ID())
			delete(a.owners, t.ID())
		}
	}
	a.refreshLocked()
}

func (a *Agent) validateLocked(capID string, tools []tool.Tool) error {
	for _, t := range tools {
		for _, name := range a.required {
			if !tool.HasParameter(t, name, true) {
				return fmt.Errorf("%w: tool %s in capability %s must require parameter %q",
					ErrContractViolation, t.ID(), capID, name)
			}
		}
		if owner, ok := a.owners[t.ID()]; ok && owner != capID {
			return fmt.Errorf("%w: %s (provided by %s)", ErrDuplicateTool, t.ID(), owner)
		}
	}
	return nil
}

// refreshLocked rebuilds the tool list advertised on the next call.
func (a *Agent) refreshLocked() {
	a.conv.SetTools(a.tools.Tools())
}
