package react

import (
	"context"
	"encoding/json"
	"strings"
	"text/template"

	"github.com/Cyclone1070/reactor/internal/conversation"
	"github.com/Cyclone1070/reactor/internal/message"
	"github.com/Cyclone1070/reactor/internal/provider"
	"github.com/Cyclone1070/reactor/internal/tool"
	"go.uber.org/zap"
)

// Continue is the critic's verdict when no correction is needed.
const Continue = "CONTINUE"

// Approves reports whether a critic verdict lets the executor proceed.
func Approves(verdict string) bool {
	return strings.Contains(strings.ToLower(verdict), "continue")
}

// Critic reviews an execution trail in a tool-free session.
type Critic struct {
	conv    *conversation.Manager
	prompts *prompts
	logger  *zap.Logger
}

// NewCritic creates a critic on adapter. Replies are sampled at temperature.
func NewCritic(adapter provider.Adapter, temperature float32, logger *zap.Logger) *Critic {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Critic{
		conv: conversation.New(adapter,
			conversation.WithLogger(logger),
			conversation.WithPersonality(defaultPrompts.criticSystem),
			conversation.WithGenerateConfig(&provider.GenerateConfig{Temperature: provider.Float32(temperature)}),
		),
		prompts: defaultPrompts,
		logger:  logger,
	}
}

// ReviewToolCall asks for a correction after a failed tool call.
func (c *Critic) ReviewToolCall(ctx context.Context, command string, trail Trail, tools []tool.Declaration) string {
	data, ok := c.reviewData(command, trail, tools)
	if !ok {
		return Continue
	}
	data.Repeated = trail.RepeatedCalls()
	return c.review(ctx, "tool_call", data, c.prompts.reviewToolCall)
}

// ReviewConclusions asks whether the terminal step of trail is justified.
func (c *Critic) ReviewConclusions(ctx context.Context, command string, trail Trail, tools []tool.Declaration) string {
	data, ok := c.reviewData(command, trail, tools)
	if !ok {
		return Continue
	}
	if last, ok := trail.Last(); ok {
		data.Status = last.Status
	}
	return c.review(ctx, "conclusions", data, c.prompts.reviewConclusions)
}

func (c *Critic) reviewData(command string, trail Trail, tools []tool.Declaration) (reviewData, bool) {
	rendered, err := trail.Complete()
	if err != nil {
		c.logger.Warn("critic skipped", zap.Error(err))
		return reviewData{}, false
	}
	catalogue, err := json.MarshalIndent(tools, "", "  ")
	if err != nil {
		c.logger.Warn("critic skipped", zap.Error(err))
		return reviewData{}, false
	}
	return reviewData{Command: command, Tools: string(catalogue), Trail: rendered}, true
}

// review returns Continue when the critic cannot be reached, so an outage
// never aborts an execution.
func (c *Critic) review(ctx context.Context, kind string, data reviewData, tmpl *template.Template) string {
	prompt, err := render(tmpl, data)
	if err != nil {
		c.logger.Warn("critic prompt failed", zap.String("review", kind), zap.Error(err))
		return Continue
	}

	resp, err := c.conv.Complete(ctx, message.NewText(message.AuthorUser, prompt))
	if err != nil {
		c.logger.Warn("critic call failed", zap.String("review", kind), zap.Error(err))
		return Continue
	}
	verdict := strings.TrimSpace(resp.Message.Text())
	if resp.FinishReason != provider.FinishCompleted || verdict == "" {
		c.logger.Warn("critic gave no verdict",
			zap.String("review", kind),
			zap.String("finish_reason", string(resp.FinishReason)))
		return Continue
	}

	c.logger.Info("critic verdict",
		zap.String("review", kind),
		zap.Bool("approved", Approves(verdict)))
	return verdict
}
