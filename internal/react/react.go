// Package react runs an agent autonomously: an executor takes steps until the
// command is done or fails, and a critic reviews failed tool calls and
// conclusions.
package react

import (
	"context"
	"fmt"
	"sync"

	"github.com/Cyclone1070/reactor/internal/agent"
	"github.com/Cyclone1070/reactor/internal/conversation"
	"github.com/Cyclone1070/reactor/internal/provider"
	"github.com/Cyclone1070/reactor/internal/tool"
	"github.com/Cyclone1070/reactor/internal/workflow"
	"go.uber.org/zap"
)

// Agent composes an executor and a critic over one tool-using agent.
// Executions on the same Agent are serialized.
type Agent struct {
	mu       sync.Mutex
	base     *agent.Agent
	executor *Executor
	critic   *Critic
}

// Option configures an Agent.
type Option func(*config)

type config struct {
	agentOpts         []agent.Option
	logger            *zap.Logger
	executor          ExecutorConfig
	criticAdapter     provider.Adapter
	criticTemperature float32
	noCritic          bool
}

// WithID sets the agent id.
func WithID(id string) Option {
	return func(c *config) { c.agentOpts = append(c.agentOpts, agent.WithID(id)) }
}

// WithLogger sets the logger for the executor and the critic.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithEvents sets the channel workflow events are emitted on.
func WithEvents(events chan<- workflow.Event) Option {
	return func(c *config) { c.agentOpts = append(c.agentOpts, agent.WithEvents(events)) }
}

// WithConversation passes options to the executor's conversation manager.
func WithConversation(opts ...conversation.Option) Option {
	return func(c *config) { c.agentOpts = append(c.agentOpts, agent.WithConversation(opts...)) }
}

// WithMaxSteps bounds the trail length of one execution.
func WithMaxSteps(n int) Option {
	return func(c *config) { c.executor.MaxSteps = n }
}

// WithCheckLastStep controls whether the critic reviews terminal steps.
func WithCheckLastStep(check bool) Option {
	return func(c *config) { c.executor.CheckLastStep = check }
}

// WithContext adds background information to the executor prompt.
func WithContext(text string) Option {
	return func(c *config) { c.executor.Context = text }
}

// WithExamples adds worked examples to the executor prompt.
func WithExamples(text string) Option {
	return func(c *config) { c.executor.Examples = text }
}

// WithCriticAdapter sends critic reviews through a different backend.
func WithCriticAdapter(a provider.Adapter) Option {
	return func(c *config) { c.criticAdapter = a }
}

// WithCriticTemperature sets the critic's sampling temperature.
func WithCriticTemperature(t float32) Option {
	return func(c *config) { c.criticTemperature = t }
}

// WithoutCritic disables all reviews.
func WithoutCritic() Option {
	return func(c *config) { c.noCritic = true }
}

// New creates a ReAct agent on adapter. Every tool attached to it must
// require a "thought" parameter.
func New(adapter provider.Adapter, opts ...Option) (*Agent, error) {
	cfg := config{
		logger:   zap.NewNop(),
		executor: ExecutorConfig{MaxSteps: DefaultMaxSteps, CheckLastStep: true},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	agentOpts := append([]agent.Option{
		agent.WithLogger(cfg.logger),
		agent.WithRequiredParameters(tool.ThoughtParameter.Name),
	}, cfg.agentOpts...)
	base := agent.New(adapter, agentOpts...)

	var critic *Critic
	if !cfg.noCritic {
		criticAdapter := cfg.criticAdapter
		if criticAdapter == nil {
			criticAdapter = adapter
		}
		critic = NewCritic(criticAdapter, cfg.criticTemperature, base.Logger().Named("critic"))
	}

	executor, err := NewExecutor(base, critic, cfg.executor)
	if err != nil {
		return nil, fmt.Errorf("react agent: %w", err)
	}
	return &Agent{base: base, executor: executor, critic: critic}, nil
}

func (a *Agent) ID() string { return a.base.ID() }

// Base returns the underlying tool-using agent.
func (a *Agent) Base() *agent.Agent { return a.base }

// AddCapability attaches a capability. Tools lacking a required "thought"
// parameter are rejected with agent.ErrContractViolation.
func (a *Agent) AddCapability(c tool.Capability) error {
	return a.base.AddCapability(c)
}

// RemoveCapability detaches a capability.
func (a *Agent) RemoveCapability(id string) error {
	return a.base.RemoveCapability(id)
}

// Execute runs command to a terminal step.
func (a *Agent) Execute(ctx context.Context, command string) Step {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.executor.Execute(ctx, command)
}

// Trail returns the steps of the last execution.
func (a *Agent) Trail() Trail {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.executor.Trail()
}

// Close detaches every capability.
func (a *Agent) Close() error {
	return a.base.Close()
}
