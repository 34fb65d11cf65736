// Package todo provides a capability that lets an agent keep a task list
// while it works.
package todo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Cyclone1070/reactor/internal/tool"
)

// ID is the capability id.
const ID = "todo"

// -- Sentinels --

var (
	ErrInvalidStatus    = errors.New("invalid status")
	ErrEmptyDescription = errors.New("description cannot be empty")
)

// Status represents the status of a todo item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Todo represents a single task item.
type Todo struct {
	Description string `json:"description"`
	Status      Status `json:"status"`
}

// Store implements todo storage using an in-memory slice.
type Store struct {
	mu    sync.RWMutex
	todos []Todo
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{todos: make([]Todo, 0)}
}

// Read returns a copy of the current list.
func (s *Store) Read() []Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Todo{}, s.todos...)
}

// Write replaces the list.
func (s *Store) Write(todos []Todo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.todos = append([]Todo{}, todos...)
}

type readRequest struct {
	Thought string `json:"thought"`
}

type writeRequest struct {
	Thought string `json:"thought"`
	Todos   []Todo `json:"todos"`
}

// Validate rejects unknown statuses and empty descriptions. An empty list is
// allowed and clears the store.
func (r *writeRequest) Validate() error {
	for i, t := range r.Todos {
		switch t.Status {
		case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		default:
			return fmt.Errorf("todo %d: %w: %q", i, ErrInvalidStatus, t.Status)
		}
		if t.Description == "" {
			return fmt.Errorf("todo %d: %w", i, ErrEmptyDescription)
		}
	}
	return nil
}

// ReadResponse contains the list of current todos.
type ReadResponse struct {
	Todos []Todo `json:"todos"`
}

// WriteResponse contains the result of a write.
type WriteResponse struct {
	Count int `json:"count"`
}

var itemSchema = &tool.Schema{
	Type: tool.TypeObject,
	Properties: map[string]*tool.Schema{
		"description": {Type: tool.TypeString},
		"status": {
			Type: tool.TypeString,
			Enum: []string{string(StatusPending), string(StatusInProgress), string(StatusCompleted), string(StatusCancelled)},
		},
	},
	Required: []string{"description", "status"},
}

// New creates the todo capability backed by store.
func New(store *Store) *tool.Toolset {
	return tool.NewToolset(ID,
		tool.NewFuncTool("todo.read", "Reads the current task list.",
			[]tool.Parameter{tool.ThoughtParameter},
			func(ctx context.Context, req readRequest) (any, error) {
				return ReadResponse{Todos: store.Read()}, nil
			}),
		tool.NewFuncTool("todo.write",
			`Replaces the task list. Pass every item, each with a description and a status of `+
				`"pending", "in_progress", "completed" or "cancelled". An empty list clears it.`,
			[]tool.Parameter{
				tool.ThoughtParameter,
				{Name: "todos", Type: tool.TypeArray, Description: "The complete task list.", Required: true, Items: itemSchema},
			},
			func(ctx context.Context, req writeRequest) (any, error) {
				store.Write(req.Todos)
				return WriteResponse{Count: len(req.Todos)}, nil
			}),
	)
}
