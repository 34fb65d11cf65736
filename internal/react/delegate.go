package react

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Cyclone1070/reactor/internal/tool"
)

// Delegation is the result of a command handed to another agent.
type Delegation struct {
	Agent string
	Final Step
	Steps Trail
}

// String renders the final step, which is what the delegating agent observes.
func (d Delegation) String() string {
	raw, err := json.Marshal(d.Final.compact())
	if err != nil {
		return d.Final.Observation
	}
	return string(raw)
}

type delegateRequest struct {
	Thought string `json:"thought"`
	Command string `json:"command"`
}

func (r *delegateRequest) Validate() error {
	if r.Command == "" {
		return errors.New("command is required")
	}
	return nil
}

// AsTool exposes the agent as a tool other agents can delegate commands to.
// The delegate's trail is attached to the caller's step.
func (a *Agent) AsTool(id, description string) tool.Tool {
	return tool.NewFuncTool(id, description, []tool.Parameter{
		tool.ThoughtParameter,
		{
			Name:        "command",
			Type:        tool.TypeString,
			Description: "The command for the agent to carry out.",
			Required:    true,
		},
	}, func(ctx context.Context, req delegateRequest) (any, error) {
		final := a.Execute(ctx, req.Command)
		return Delegation{Agent: a.ID(), Final: final, Steps: a.Trail()}, nil
	})
}
