package react

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Cyclone1070/reactor/internal/agent"
	"github.com/Cyclone1070/reactor/internal/message"
	"github.com/Cyclone1070/reactor/internal/provider"
	"github.com/Cyclone1070/reactor/internal/testing/testhelpers"
	"github.com/Cyclone1070/reactor/internal/tool"
	"github.com/Cyclone1070/reactor/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func stepJSON(status Status, thought, observation string) map[string]any {
	return map[string]any{"status": string(status), "thought": thought, "observation": observation}
}

func lastUserText(req *provider.Request) string {
	texts := testhelpers.Texts(req)
	return texts[len(texts)-1]
}

type failRequest struct {
	Thought string `json:"thought"`
	Path    string `json:"path"`
}

func failingTool(id string) tool.Tool {
	return tool.NewFuncTool(id, "Always fails", []tool.Parameter{
		tool.ThoughtParameter,
		{Name: "path", Type: tool.TypeString},
	}, func(ctx context.Context, req failRequest) (any, error) {
		return nil, errors.New("path is required")
	})
}

func TestExecute_CompletesWithoutReview(t *testing.T) {
	adapter := testhelpers.NewMockAdapter().
		WithJSONResponse(stepJSON(StatusCompleted, "done", "42"))
	a, err := New(adapter, WithID("solver"), WithCheckLastStep(false))
	require.NoError(t, err)

	final := a.Execute(context.Background(), "what is six times seven")

	assert.Equal(t, StatusCompleted, final.Status)
	assert.Equal(t, "42", final.Observation)
	assert.Equal(t, "solver", final.Actor)

	trail := a.Trail()
	require.Len(t, trail, 2)
	assert.Equal(t, StatusInProgress, trail[0].Status)
	assert.Equal(t, startedThought, trail[0].Thought)
	assert.Equal(t, "solver", trail[0].Actor)

	req := adapter.LastRequest()
	require.Len(t, req.Messages, 2)
	assert.Equal(t, message.AuthorDeveloper, req.Messages[0].Author())
	assert.Contains(t, req.Messages[0].Text(), "solver")
	assert.Contains(t, lastUserText(req), "what is six times seven")
}

func TestExecute_TerminatesAtMaxSteps(t *testing.T) {
	adapter := testhelpers.NewMockAdapter()
	adapter.SendFunc = func(ctx context.Context, req *provider.Request) (*provider.Response, error) {
		return &provider.Response{
			FinishReason: provider.FinishCompleted,
			Message:      message.NewText(message.AuthorBot, `{"status":"IN_PROGRESS","thought":"thinking"}`),
		}, nil
	}
	a, err := New(adapter, WithMaxSteps(5), WithoutCritic())
	require.NoError(t, err)

	final := a.Execute(context.Background(), "never finish")

	assert.Equal(t, StatusError, final.Status)
	assert.Contains(t, final.Observation, "maximum number of steps")
	assert.Len(t, a.Trail(), 6)
	assert.Equal(t, 4, adapter.Calls())
}

func TestExecute_InProgressForcesKeepGoing(t *testing.T) {
	adapter := testhelpers.NewMockAdapter().
		WithJSONResponse(stepJSON(StatusInProgress, "first I plan", "")).
		WithJSONResponse(stepJSON(StatusCompleted, "done", "ok"))
	a, err := New(adapter, WithCheckLastStep(false))
	require.NoError(t, err)

	final := a.Execute(context.Background(), "plan then finish")

	assert.Equal(t, StatusCompleted, final.Status)
	assert.Contains(t, lastUserText(adapter.LastRequest()), keepGoing)
}

func TestExecute_CriticDowngradesPrematureConclusion(t *testing.T) {
	adapter := testhelpers.NewMockAdapter().
		WithJSONResponse(stepJSON(StatusCompleted, "I wrote the file", "file written")).
		WithJSONResponse(stepJSON(StatusCompleted, "nothing to write after all", "no file needed"))
	critic := testhelpers.NewMockAdapter().
		WithTextResponse("You never called a tool to write the file.").
		WithTextResponse("CONTINUE")
	a, err := New(adapter, WithCriticAdapter(critic))
	require.NoError(t, err)

	final := a.Execute(context.Background(), "write a file")

	assert.Equal(t, StatusCompleted, final.Status)
	assert.Equal(t, "no file needed", final.Observation)
	assert.Equal(t, 2, adapter.Calls())
	assert.Equal(t, 2, critic.Calls())

	trail := a.Trail()
	require.Len(t, trail, 3)
	assert.Equal(t, StatusInProgress, trail[1].Status)
	assert.Equal(t, "file written", trail[1].Observation)

	second := lastUserText(adapter.LastRequest())
	assert.Contains(t, second, "You never called a tool to write the file.")
	assert.Contains(t, second, `"observation": "file written"`)

	review := critic.Requests()[0]
	assert.Empty(t, review.Tools)
	require.NotNil(t, review.Config)
	require.NotNil(t, review.Config.Temperature)
	assert.Equal(t, float32(0), *review.Config.Temperature)
	assert.Contains(t, lastUserText(review), "declared the last step COMPLETED")
}

func TestExecute_ToolCallRecorded(t *testing.T) {
	adapter := testhelpers.NewMockAdapter().
		WithToolCallResponse("call-1", "echo", map[string]any{"thought": "say hi", "text": "hi"}).
		WithJSONResponse(stepJSON(StatusCompleted, "echoed", "hi"))
	critic := testhelpers.NewMockAdapter().WithTextResponse("CONTINUE")
	a, err := New(adapter, WithCriticAdapter(critic))
	require.NoError(t, err)
	require.NoError(t, a.AddCapability(tool.NewToolset("echoes", testhelpers.EchoTool("echo"))))

	final := a.Execute(context.Background(), "say hi")
	require.Equal(t, StatusCompleted, final.Status)

	trail := a.Trail()
	require.Len(t, trail, 3)
	step := trail[1]
	require.True(t, step.IsToolCall())
	assert.Equal(t, "echo", step.Action)
	assert.Equal(t, `{"text":"hi"}`, step.ActionInput)
	assert.Equal(t, "say hi", step.Thought)
	assert.Equal(t, "hi", step.Observation)
	assert.Equal(t, StatusInProgress, step.Status)

	// History is rebuilt from the trail on every turn.
	assert.Len(t, a.Base().Conversation().History(), 2)
	assert.Equal(t, []string{"echo"}, testhelpers.ToolIDs(adapter.LastRequest()))
	// Only the conclusion is reviewed when every call succeeds.
	assert.Equal(t, 1, critic.Calls())
}

func TestExecute_ToolErrorAsksCritic(t *testing.T) {
	adapter := testhelpers.NewMockAdapter().
		WithToolCallResponse("call-1", "read", map[string]any{"thought": "read it"}).
		WithJSONResponse(stepJSON(StatusCompleted, "done", "read"))
	critic := testhelpers.NewMockAdapter().
		WithTextResponse("Pass the path parameter.").
		WithTextResponse("CONTINUE")
	a, err := New(adapter, WithCriticAdapter(critic))
	require.NoError(t, err)
	require.NoError(t, a.AddCapability(tool.NewToolset("files", failingTool("read"))))

	final := a.Execute(context.Background(), "read the file")
	require.Equal(t, StatusCompleted, final.Status)

	trail := a.Trail()
	assert.Contains(t, trail[1].Observation, "path is required")
	assert.Contains(t, lastUserText(adapter.LastRequest()), "Pass the path parameter.")
	assert.Contains(t, lastUserText(critic.Requests()[0]), "The last tool call failed")
}

func TestExecute_MalformedOutputBecomesError(t *testing.T) {
	adapter := testhelpers.NewMockAdapter().WithTextResponse("I am not JSON")
	a, err := New(adapter)
	require.NoError(t, err)

	final := a.Execute(context.Background(), "anything")

	assert.Equal(t, StatusError, final.Status)
	assert.Equal(t, "I am not JSON", final.Observation)
}

func TestExecute_BackendFailures(t *testing.T) {
	tests := []struct {
		name    string
		adapter *testhelpers.MockAdapter
		want    string
	}{
		{
			name:    "call error",
			adapter: testhelpers.NewMockAdapter().WithError(errors.New("connection reset")),
			want:    "connection reset",
		},
		{
			name: "truncated",
			adapter: testhelpers.NewMockAdapter().
				WithResponse(provider.FinishTruncated, message.NewText(message.AuthorBot, `{"status":`)),
			want: "TRUNCATED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(tt.adapter)
			require.NoError(t, err)

			final := a.Execute(context.Background(), "anything")

			assert.Equal(t, StatusError, final.Status)
			assert.Contains(t, final.Observation, tt.want)
			assert.Len(t, a.Trail(), 2)
		})
	}
}

func TestExecute_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a, err := New(testhelpers.NewMockAdapter())
	require.NoError(t, err)

	final := a.Execute(ctx, "anything")
	assert.Equal(t, StatusError, final.Status)
	assert.Contains(t, final.Observation, context.Canceled.Error())
}

func TestExecute_ResetsTrailPerCommand(t *testing.T) {
	adapter := testhelpers.NewMockAdapter().
		WithJSONResponse(stepJSON(StatusCompleted, "one", "1")).
		WithJSONResponse(stepJSON(StatusCompleted, "two", "2"))
	a, err := New(adapter, WithCheckLastStep(false))
	require.NoError(t, err)

	a.Execute(context.Background(), "first")
	final := a.Execute(context.Background(), "second")

	assert.Equal(t, "2", final.Observation)
	assert.Len(t, a.Trail(), 2)
}

func TestExecute_NestedDelegation(t *testing.T) {
	innerAdapter := testhelpers.NewMockAdapter().
		WithJSONResponse(stepJSON(StatusCompleted, "handled", "inner done"))
	inner, err := New(innerAdapter, WithID("inner"), WithCheckLastStep(false))
	require.NoError(t, err)

	outerAdapter := testhelpers.NewMockAdapter().
		WithToolCallResponse("call-1", "delegate", map[string]any{"thought": "hand off", "command": "do inner work"}).
		WithJSONResponse(stepJSON(StatusCompleted, "delegated", "all done"))
	outer, err := New(outerAdapter, WithID("outer"), WithCheckLastStep(false))
	require.NoError(t, err)
	require.NoError(t, outer.AddCapability(tool.NewToolset("team", inner.AsTool("delegate", "Delegates to the inner agent"))))

	final := outer.Execute(context.Background(), "coordinate")
	require.Equal(t, StatusCompleted, final.Status)

	trail := outer.Trail()
	require.Len(t, trail, 3)
	call := trail[1]
	require.True(t, call.IsToolCall())
	require.Len(t, call.ActionSteps, 2)
	assert.Equal(t, "inner", call.ActionSteps[1].Actor)
	assert.Equal(t, "inner done", call.ActionSteps[1].Observation)
	assert.Contains(t, call.Observation, "inner done")
	assert.Contains(t, lastUserText(innerAdapter.LastRequest()), "do inner work")

	compact, err := trail.Compact()
	require.NoError(t, err)
	assert.NotContains(t, compact, "action_steps")

	complete, err := trail.Complete()
	require.NoError(t, err)
	assert.Contains(t, complete, "action_steps")
	assert.Contains(t, complete, "inner done")
}

func TestAddCapability_RequiresThought(t *testing.T) {
	a, err := New(testhelpers.NewMockAdapter())
	require.NoError(t, err)

	type bareRequest struct {
		Text string `json:"text"`
	}
	bare := tool.NewFuncTool("bare", "No thought", []tool.Parameter{
		{Name: "text", Type: tool.TypeString, Required: true},
	}, func(ctx context.Context, req bareRequest) (any, error) { return req.Text, nil })

	err = a.AddCapability(tool.NewToolset("bare", bare))
	assert.ErrorIs(t, err, agent.ErrContractViolation)
	assert.Equal(t, tool.StateUninitialized, bare.State())
}

func TestExecute_EmitsEvents(t *testing.T) {
	events := make(chan workflow.Event, 64)
	adapter := testhelpers.NewMockAdapter().
		WithJSONResponse(stepJSON(StatusCompleted, "done", "ok"))
	a, err := New(adapter, WithEvents(events), WithCheckLastStep(false))
	require.NoError(t, err)

	a.Execute(context.Background(), "go")
	close(events)

	var steps, done int
	for ev := range events {
		switch e := ev.(type) {
		case workflow.StepEvent:
			steps++
		case workflow.DoneEvent:
			done++
			assert.Equal(t, string(StatusCompleted), e.Status)
		}
	}
	assert.Equal(t, 2, steps)
	assert.Equal(t, 1, done)
}

func TestDelegation_String(t *testing.T) {
	d := Delegation{
		Final: Step{
			Status:      StatusCompleted,
			Observation: "ok",
			Invocation:  &Invocation{Action: "x", ActionSteps: []Step{{Status: StatusCompleted}}},
		},
	}
	s := d.String()
	assert.True(t, strings.Contains(s, `"observation":"ok"`))
	assert.NotContains(t, s, "action_steps")
}
