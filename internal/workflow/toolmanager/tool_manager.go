// Package toolmanager keeps the tools an agent can call, keyed by id, and
// dispatches tool calls to them.
package toolmanager

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/Cyclone1070/reactor/internal/message"
	"github.com/Cyclone1070/reactor/internal/tool"
	"github.com/Cyclone1070/reactor/internal/workflow"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type ToolManager struct {
	mu       sync.RWMutex
	registry map[string]tool.Tool
	logger   *zap.Logger

	// MaxParallel bounds concurrent calls in ExecuteAll. Zero means unbounded.
	MaxParallel int
}

func NewToolManager(tools ...tool.Tool) *ToolManager {
	tm := &ToolManager{
		registry: make(map[string]tool.Tool),
		logger:   zap.NewNop(),
	}
	for _, t := range tools {
		tm.Register(t)
	}
	return tm
}

// SetLogger sets the logger used for dispatch failures.
func (m *ToolManager) SetLogger(l *zap.Logger) {
	m.logger = l
}

// Register adds t, replacing any tool with the same id.
func (m *ToolManager) Register(t tool.Tool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry[t.ID()] = t
}

// Unregister removes the tool with the given id.
func (m *ToolManager) Unregister(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.registry, id)
}

func (m *ToolManager) Get(id string) (tool.Tool, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.registry[id]
	return t, ok
}

// Tools returns the registered tools sorted by id.
func (m *ToolManager) Tools() []tool.Tool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tools := make([]tool.Tool, 0, len(m.registry))
	for _, t := range m.registry {
		tools = append(tools, t)
	}
	sort.Slice(tools, func(i, j int) bool {
		return tools[i].ID() < tools[j].ID()
	})
	return tools
}

func (m *ToolManager) Declarations() []tool.Declaration {
	tools := m.Tools()
	decls := make([]tool.Declaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, tool.Declare(t))
	}
	return decls
}

// Execute runs one call. It never fails: unknown tools, tool errors and
// panics are all reported back as error results.
func (m *ToolManager) Execute(ctx context.Context, tc message.ToolCall, events chan<- workflow.Event) message.ToolCallResult {
	workflow.Emit(events, workflow.ToolStartEvent{
		ToolName: tc.ToolID(),
		CallID:   tc.ID(),
		Request:  requestDisplay(tc),
	})

	res := m.execute(ctx, tc)

	workflow.Emit(events, workflow.ToolEndEvent{
		ToolName: tc.ToolID(),
		CallID:   tc.ID(),
		Result:   res.ResultString(),
		IsError:  res.IsError(),
	})
	return res
}

func (m *ToolManager) execute(ctx context.Context, tc message.ToolCall) (res message.ToolCallResult) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("tool panicked", zap.String("tool", tc.ToolID()), zap.Any("panic", r))
			res = message.NewToolCallError(tc, fmt.Errorf("tool %q panicked: %v", tc.ToolID(), r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return message.NewToolCallError(tc, err)
	}

	var (
		out message.ToolCallResult
		err error
	)
	if tc.Tool() != nil {
		out, err = tc.Execute(ctx)
	} else if t, ok := m.Get(tc.ToolID()); ok {
		out, err = t.Invoke(ctx, tc)
	} else {
		declsJSON, _ := json.MarshalIndent(m.Declarations(), "", "  ")
		return message.NewToolCallResult(tc,
			fmt.Sprintf("Error: tool %q does not exist.\n\nAvailable tools:\n%s", tc.ToolID(), declsJSON), true)
	}

	if err != nil {
		m.logger.Warn("tool call failed", zap.String("tool", tc.ToolID()), zap.String("call", tc.ID()), zap.Error(err))
		return message.NewToolCallError(tc, err)
	}
	if out.ToolCallID() != tc.ID() {
		// Tools that build their own result must still answer this call
		return message.NewToolCallResult(tc, out.Result(), out.IsError())
	}
	return out
}

// ExecuteAll runs calls concurrently and returns their results in call order.
// It returns only once every call has finished.
func (m *ToolManager) ExecuteAll(ctx context.Context, calls []message.ToolCall, events chan<- workflow.Event) []message.ToolCallResult {
	results := make([]message.ToolCallResult, len(calls))

	var g errgroup.Group
	if m.MaxParallel > 0 {
		g.SetLimit(m.MaxParallel)
	}
	for i, tc := range calls {
		g.Go(func() error {
			results[i] = m.Execute(ctx, tc, events)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func requestDisplay(tc message.ToolCall) string {
	args := tc.Arguments()
	delete(args, tool.ThoughtParameter.Name)
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprint(args)
	}
	return string(raw)
}
