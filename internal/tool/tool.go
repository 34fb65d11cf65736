// Package tool defines tools the model can call, their lifecycle, and the
// capabilities that group them.
package tool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Cyclone1070/reactor/internal/message"
)

var (
	ErrNotInitialized     = errors.New("tool not initialized")
	ErrAlreadyInitialized = errors.New("tool already initialized")
	ErrClosed             = errors.New("tool closed")
)

// Owner is the agent a tool is attached to.
type Owner interface {
	ID() string
}

// Tool is a named, schema-described callable.
type Tool interface {
	message.Invoker

	// Description returns a human-readable description
	Description() string

	// Parameters returns the ordered parameter list
	Parameters() []Parameter

	// Init attaches the tool to its owning agent. It must be called exactly once before Invoke.
	Init(owner Owner) error

	// Close releases the tool. A closed tool cannot be re-initialized.
	Close() error
}

// State is the lifecycle state of a tool.
type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Base implements the lifecycle half of Tool. Embed it in concrete tools.
type Base struct {
	mu    sync.RWMutex
	state State
	owner Owner
}

// Init implements Tool.
func (b *Base) Init(owner Owner) error {
	if owner == nil {
		return fmt.Errorf("init: nil owner")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateInitialized:
		return ErrAlreadyInitialized
	case StateClosed:
		return ErrClosed
	}
	b.state = StateInitialized
	b.owner = owner
	return nil
}

// Close implements Tool. Closing twice is a no-op.
func (b *Base) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.owner = nil
	return nil
}

// State returns the current lifecycle state.
func (b *Base) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Owner returns the agent the tool is attached to, or nil.
func (b *Base) Owner() Owner {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.owner
}

// Ready returns nil when the tool may be invoked.
func (b *Base) Ready() error {
	switch b.State() {
	case StateInitialized:
		return nil
	case StateClosed:
		return ErrClosed
	default:
		return ErrNotInitialized
	}
}
