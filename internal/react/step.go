package react

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Status is the state of a step. IN_PROGRESS is the only non-terminal status.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusError      Status = "ERROR"
)

func (s Status) Valid() bool {
	switch s {
	case StatusInProgress, StatusCompleted, StatusError:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// ErrMalformedStep is returned when a reply cannot be read as a step.
var ErrMalformedStep = errors.New("malformed step")

// Step is one entry of an execution trail.
type Step struct {
	Status      Status `json:"status"`
	Actor       string `json:"actor,omitempty"`
	Thought     string `json:"thought,omitempty"`
	Observation string `json:"observation,omitempty"`

	// Invocation is set on steps that record a tool call.
	*Invocation
}

// Invocation records the tool call a step made.
type Invocation struct {
	Action      string `json:"action"`
	ActionInput string `json:"action_input,omitempty"`

	// ActionSteps is the trail of a delegated agent.
	ActionSteps []Step `json:"action_steps,omitempty"`
}

// IsToolCall reports whether the step records a tool call.
func (s Step) IsToolCall() bool { return s.Invocation != nil }

// clone copies the step including nested trails.
func (s Step) clone() Step {
	if s.Invocation == nil {
		return s
	}
	inv := *s.Invocation
	inv.ActionSteps = Trail(inv.ActionSteps).clone()
	s.Invocation = &inv
	return s
}

// compact drops nested trails.
func (s Step) compact() Step {
	if s.Invocation == nil || s.ActionSteps == nil {
		return s
	}
	inv := *s.Invocation
	inv.ActionSteps = nil
	s.Invocation = &inv
	return s
}

// Trail is the ordered list of steps taken for one command.
type Trail []Step

func (t Trail) clone() Trail {
	if t == nil {
		return nil
	}
	out := make(Trail, len(t))
	for i, s := range t {
		out[i] = s.clone()
	}
	return out
}

// Last returns the final step, or false when the trail is empty.
func (t Trail) Last() (Step, bool) {
	if len(t) == 0 {
		return Step{}, false
	}
	return t[len(t)-1], true
}

// Compact renders the trail as JSON without nested trails.
func (t Trail) Compact() (string, error) {
	out := make([]Step, len(t))
	for i, s := range t {
		out[i] = s.compact()
	}
	return marshalSteps(out)
}

// Complete renders the trail as JSON including nested trails.
func (t Trail) Complete() (string, error) {
	return marshalSteps(t)
}

func marshalSteps(steps []Step) (string, error) {
	if steps == nil {
		steps = []Step{}
	}
	raw, err := json.MarshalIndent(steps, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal trail: %w", err)
	}
	return string(raw), nil
}

// RepeatedCalls counts how many steps at the end of the trail repeat the
// last tool call with identical input.
func (t Trail) RepeatedCalls() int {
	last, ok := t.Last()
	if !ok || !last.IsToolCall() {
		return 0
	}
	n := 0
	for i := len(t) - 1; i >= 0; i-- {
		s := t[i]
		if !s.IsToolCall() || s.Action != last.Action || s.ActionInput != last.ActionInput {
			break
		}
		n++
	}
	return n
}

// ParseStep reads a step from a backend reply. The JSON object may be
// wrapped in prose or a code fence.
func ParseStep(text string) (Step, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return Step{}, fmt.Errorf("%w: no JSON object in reply", ErrMalformedStep)
	}

	var payload struct {
		Status      Status `json:"status"`
		Thought     string `json:"thought"`
		Observation string `json:"observation"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return Step{}, fmt.Errorf("%w: %v", ErrMalformedStep, err)
	}
	payload.Status = Status(strings.ToUpper(strings.TrimSpace(string(payload.Status))))
	if !payload.Status.Valid() {
		return Step{}, fmt.Errorf("%w: unknown status %q", ErrMalformedStep, payload.Status)
	}
	return Step{
		Status:      payload.Status,
		Thought:     payload.Thought,
		Observation: payload.Observation,
	}, nil
}
