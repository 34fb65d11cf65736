package react

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Cyclone1070/reactor/internal/agent"
	"github.com/Cyclone1070/reactor/internal/message"
	"github.com/Cyclone1070/reactor/internal/provider"
	"github.com/Cyclone1070/reactor/internal/workflow"
	"go.uber.org/zap"
)

const (
	DefaultMaxSteps = 40

	startedThought  = "Execution just started."
	exhaustedReason = "Execution entered a loop or exceeded the maximum number of steps (%d)."
	keepGoing       = "Keep going: take the next step, calling a tool if one is needed."
)

// Executor drives one agent through a command step by step. The trail is
// resent in full on every turn and the conversation history is cleared, so
// the trail is the only state carried between turns.
type Executor struct {
	agent         *agent.Agent
	critic        *Critic
	prompts       *prompts
	maxSteps      int
	checkLastStep bool
	logger        *zap.Logger

	trail Trail
}

// ExecutorConfig tunes an Executor.
type ExecutorConfig struct {
	// MaxSteps bounds the trail length. Zero means DefaultMaxSteps.
	MaxSteps int

	// CheckLastStep has the critic review every terminal step.
	CheckLastStep bool

	// Context and Examples are added to the system prompt when set.
	Context  string
	Examples string
}

// NewExecutor creates an executor for a and installs its system prompt as
// the conversation personality. A nil critic disables reviews.
func NewExecutor(a *agent.Agent, critic *Critic, cfg ExecutorConfig) (*Executor, error) {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	e := &Executor{
		agent:         a,
		critic:        critic,
		prompts:       defaultPrompts,
		maxSteps:      cfg.MaxSteps,
		checkLastStep: cfg.CheckLastStep,
		logger:        a.Logger(),
	}

	system, err := render(e.prompts.executorSystem, systemData{Actor: a.ID(), Context: cfg.Context, Examples: cfg.Examples})
	if err != nil {
		return nil, err
	}
	a.Conversation().SetPersonality(system)
	return e, nil
}

// Trail returns a copy of the steps taken for the last command.
func (e *Executor) Trail() Trail {
	return e.trail.clone()
}

// Execute runs command to a terminal step and returns it. Failures are
// recorded as ERROR steps.
func (e *Executor) Execute(ctx context.Context, command string) Step {
	e.trail = nil
	e.append(Step{Status: StatusInProgress, Thought: startedThought})

	suggestion := ""
	for len(e.trail) < e.maxSteps {
		last, _ := e.trail.Last()
		if last.Status != StatusInProgress {
			break
		}
		suggestion = e.iterate(ctx, command, suggestion)
	}

	if last, _ := e.trail.Last(); last.Status == StatusInProgress {
		e.logger.Warn("execution exhausted", zap.Int("steps", len(e.trail)))
		e.append(Step{Status: StatusError, Observation: fmt.Sprintf(exhaustedReason, e.maxSteps)})
	}

	last, _ := e.trail.Last()
	workflow.Emit(e.agent.Events(), workflow.DoneEvent{Actor: e.agent.ID(), Status: string(last.Status)})
	return last.clone()
}

// iterate performs one turn and returns the suggestion for the next.
func (e *Executor) iterate(ctx context.Context, command, suggestion string) string {
	conv := e.agent.Conversation()
	conv.ClearConversation()

	rendered, err := e.trail.Compact()
	if err != nil {
		e.fail(fmt.Sprintf("Could not serialize the trail: %v", err))
		return ""
	}
	prompt, err := render(e.prompts.executorTurn, turnData{Command: command, Trail: rendered, Suggestion: suggestion})
	if err != nil {
		e.fail(fmt.Sprintf("Could not build the prompt: %v", err))
		return ""
	}

	workflow.Emit(e.agent.Events(), workflow.ThinkingEvent{Actor: e.agent.ID()})
	resp, err := conv.Chat(ctx, message.NewText(message.AuthorUser, prompt))
	if err != nil {
		e.fail(fmt.Sprintf("Backend call failed: %v", err))
		return ""
	}
	if resp.FinishReason != provider.FinishCompleted {
		observation := fmt.Sprintf("Backend finished with reason %s.", resp.FinishReason)
		if refusal := resp.Message.Refusal(); refusal != "" {
			observation += " " + refusal
		}
		e.fail(observation)
		return ""
	}

	if resp.Message.HasToolCalls() {
		return e.runTools(ctx, command, resp.Message)
	}
	return e.recordStep(ctx, command, resp.Message.Text())
}

func (e *Executor) runTools(ctx context.Context, command string, reply message.ChatMessage) string {
	calls := reply.ToolCalls()
	results := e.agent.ToolManager().ExecuteAll(ctx, calls, e.agent.Events())

	failed := false
	for i, call := range calls {
		res := results[i]
		failed = failed || res.IsError()
		e.append(toolCallStep(call, res))
	}
	if !failed || e.critic == nil {
		return Continue
	}

	verdict := e.critic.ReviewToolCall(ctx, command, e.trail.clone(), e.agent.ToolManager().Declarations())
	workflow.Emit(e.agent.Events(), workflow.CritiqueEvent{Actor: e.agent.ID(), Suggestion: verdict})
	return verdict
}

func (e *Executor) recordStep(ctx context.Context, command, text string) string {
	step, err := ParseStep(text)
	if err != nil {
		e.logger.Info("malformed step", zap.Error(err))
		e.append(Step{Status: StatusError, Thought: err.Error(), Observation: text})
		return ""
	}

	if step.Status == StatusInProgress {
		e.append(step)
		return keepGoing
	}

	if !e.checkLastStep || e.critic == nil {
		e.append(step)
		return ""
	}

	candidate := append(e.trail.clone(), step)
	verdict := e.critic.ReviewConclusions(ctx, command, candidate, e.agent.ToolManager().Declarations())
	workflow.Emit(e.agent.Events(), workflow.CritiqueEvent{Actor: e.agent.ID(), Suggestion: verdict})
	if !Approves(verdict) {
		e.logger.Info("conclusion rejected", zap.String("status", string(step.Status)))
		step.Status = StatusInProgress
	}
	e.append(step)
	return verdict
}

func (e *Executor) fail(observation string) {
	e.append(Step{Status: StatusError, Observation: observation})
}

// append stamps the step with the executor's actor and records it.
func (e *Executor) append(step Step) {
	step.Actor = e.agent.ID()
	e.trail = append(e.trail, step)

	e.logger.Info("step",
		zap.Int("index", len(e.trail)-1),
		zap.String("status", string(step.Status)))

	ev := workflow.StepEvent{
		Actor:       step.Actor,
		Index:       len(e.trail) - 1,
		Status:      string(step.Status),
		Thought:     step.Thought,
		Observation: step.Observation,
	}
	if step.IsToolCall() {
		ev.Action = step.Action
		ev.ActionInput = step.ActionInput
	}
	workflow.Emit(e.agent.Events(), ev)
}

// toolCallStep records call and its result. The thought argument becomes the
// step's thought and is left out of the recorded input.
func toolCallStep(call message.ToolCall, res message.ToolCallResult) Step {
	args := call.Arguments()
	thought, _ := args["thought"].(string)
	delete(args, "thought")

	input := "{}"
	if len(args) > 0 {
		if raw, err := json.Marshal(args); err == nil {
			input = string(raw)
		}
	}

	inv := &Invocation{Action: call.ToolID(), ActionInput: input}
	if d, ok := res.Result().(Delegation); ok {
		inv.ActionSteps = d.Steps.clone()
	}
	return Step{
		Status:      StatusInProgress,
		Thought:     thought,
		Observation: res.ResultString(),
		Invocation:  inv,
	}
}
