// Package workflow defines the events agents emit while they work.
package workflow

// Event is the interface for all workflow events.
// Observers handle events via type switch.
type Event interface {
	isEvent()
}

// ThinkingEvent is emitted when a backend call is in flight.
type ThinkingEvent struct {
	Actor string
}

func (ThinkingEvent) isEvent() {}

// TextEvent is emitted when the backend produces a prose reply.
type TextEvent struct {
	Actor string
	Text  string
}

func (TextEvent) isEvent() {}

// StepEvent is emitted when an executor appends a step to its trail.
type StepEvent struct {
	Actor       string
	Index       int
	Status      string
	Thought     string
	Action      string
	ActionInput string
	Observation string
}

func (StepEvent) isEvent() {}

// ToolStartEvent is emitted when a tool execution begins.
type ToolStartEvent struct {
	ToolName string
	CallID   string
	Request  string
}

func (ToolStartEvent) isEvent() {}

// ToolEndEvent is emitted when a tool execution completes.
type ToolEndEvent struct {
	ToolName string
	CallID   string
	Result   string
	IsError  bool
}

func (ToolEndEvent) isEvent() {}

// CritiqueEvent is emitted when the critic returns a verdict.
type CritiqueEvent struct {
	Actor      string
	Suggestion string
}

func (CritiqueEvent) isEvent() {}

// DoneEvent is emitted when an execution reaches a terminal step.
type DoneEvent struct {
	Actor  string
	Status string
}

func (DoneEvent) isEvent() {}

// Emit sends ev when events is non-nil.
func Emit(events chan<- Event, ev Event) {
	if events != nil {
		events <- ev
	}
}
