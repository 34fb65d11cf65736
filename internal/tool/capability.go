package tool

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Event describes tools joining or leaving an attached capability.
type Event struct {
	Capability Capability
	Tools      []Tool
}

// Listener is notified when an attached capability changes its tool list.
// Returning an error from ToolsAdded rejects the new tools. An added tool
// replaces any tool with the same id from the same capability.
type Listener interface {
	ToolsAdded(ev Event) error
	ToolsRemoved(ev Event)
}

// Capability is a named bundle of tools attached to and detached from an agent as a unit.
type Capability interface {
	ID() string
	Tools() []Tool
	Tool(id string) (Tool, bool)

	// Init initializes every tool with owner.
	Init(owner Owner) error

	// Close closes every tool.
	Close() error

	AddListener(l Listener)
	RemoveListener(l Listener)
}

// Toolset is the standard Capability implementation.
type Toolset struct {
	mu        sync.RWMutex
	id        string
	tools     map[string]Tool
	owner     Owner
	closed    bool
	listeners []Listener
}

// NewToolset creates a toolset. Later tools replace earlier ones with the same id.
func NewToolset(id string, tools ...Tool) *Toolset {
	s := &Toolset{
		id:    id,
		tools: make(map[string]Tool, len(tools)),
	}
	for _, t := range tools {
		s.tools[t.ID()] = t
	}
	return s
}

func (s *Toolset) ID() string { return s.id }

// Tools returns the tools sorted by id.
func (s *Toolset) Tools() []Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked()
}

// Tool returns a single tool by id.
func (s *Toolset) Tool(id string) (Tool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tools[id]
	return t, ok
}

// Init implements Capability. On failure every tool initialized so far is closed.
func (s *Toolset) Init(owner Owner) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("capability %s: %w", s.id, ErrClosed)
	}
	if s.owner != nil {
		return fmt.Errorf("capability %s: %w", s.id, ErrAlreadyInitialized)
	}

	tools := s.sortedLocked()
	for i, t := range tools {
		if err := t.Init(owner); err != nil {
			for _, done := range tools[:i] {
				_ = done.Close()
			}
			return fmt.Errorf("capability %s: init %s: %w", s.id, t.ID(), err)
		}
	}
	s.owner = owner
	return nil
}

// Close implements Capability.
func (s *Toolset) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, t := range s.sortedLocked() {
		if err := t.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", t.ID(), err))
		}
	}
	s.closed = true
	s.owner = nil
	return errors.Join(errs...)
}

func (s *Toolset) AddListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Toolset) RemoveListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.listeners {
		if existing == l {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

// PutTool adds or replaces a tool. When the toolset is attached the tool is
// initialized and listeners are notified; a listener rejection rolls the put
// back, leaving any replaced tool registered and open.
func (s *Toolset) PutTool(t Tool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("capability %s: %w", s.id, ErrClosed)
	}
	owner := s.owner
	previous, replaced := s.tools[t.ID()]
	if owner != nil {
		if err := t.Init(owner); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("capability %s: init %s: %w", s.id, t.ID(), err)
		}
	}
	s.tools[t.ID()] = t
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	if owner == nil {
		return nil
	}

	for i, l := range listeners {
		if err := l.ToolsAdded(Event{Capability: s, Tools: []Tool{t}}); err != nil {
			for _, notified := range listeners[:i] {
				if replaced {
					_ = notified.ToolsAdded(Event{Capability: s, Tools: []Tool{previous}})
				} else {
					notified.ToolsRemoved(Event{Capability: s, Tools: []Tool{t}})
				}
			}
			s.mu.Lock()
			if s.tools[t.ID()] == t {
				if replaced {
					s.tools[t.ID()] = previous
				} else {
					delete(s.tools, t.ID())
				}
			}
			s.mu.Unlock()
			_ = t.Close()
			return err
		}
	}
	if replaced {
		_ = previous.Close()
	}
	return nil
}

// RemoveTool removes and closes a tool, notifying listeners when attached.
func (s *Toolset) RemoveTool(id string) error {
	s.mu.Lock()
	t, ok := s.tools[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("capability %s: no tool %q", s.id, id)
	}
	delete(s.tools, id)
	attached := s.owner != nil
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	if attached {
		for _, l := range listeners {
			l.ToolsRemoved(Event{Capability: s, Tools: []Tool{t}})
		}
	}
	return t.Close()
}

func (s *Toolset) sortedLocked() []Tool {
	out := make([]Tool, 0, len(s.tools))
	for _, t := range s.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID() < out[j].ID()
	})
	return out
}
