package executors

import (
	"context"
	"errors"
	"testing"

	"github.com/flowcraft/workflowengine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	data any
	err  error
	seen map[string]any
}

func (s *stubRunner) RunAgent(_ context.Context, _, _ string, agentInput map[string]any) (any, error) {
	s.seen = agentInput
	return s.data, s.err
}

func TestAgentExecutor_Success(t *testing.T) {
	runner := &stubRunner{data: map[string]any{"ok": true}}
	e := NewAgentExecutor(runner)
	step := &core.WorkflowStep{ID: "plan", Kind: core.StepAgent, Agent: "planner", Next: "code"}
	wctx := core.NewContext("wf", "do it")

	result := e.Execute(context.Background(), step, wctx)
	require.True(t, result.Success)

	next, ok := e.Route(step, result, wctx)
	assert.True(t, ok)
	assert.Equal(t, "code", next)
}

func TestAgentExecutor_WrapsDelegateError(t *testing.T) {
	runner := &stubRunner{err: errors.New("boom")}
	e := NewAgentExecutor(runner)
	step := &core.WorkflowStep{ID: "plan", Agent: "planner", OnError: "rescue"}
	retries := 0
	step.MaxRetries = &retries
	wctx := core.NewContext("wf", "x")

	result := e.Execute(context.Background(), step, wctx)
	require.False(t, result.Success)
	var agentErr *core.AgentError
	require.ErrorAs(t, result.Error, &agentErr)
	assert.Equal(t, "planner", agentErr.AgentName)

	next, ok := e.Route(step, result, wctx)
	assert.True(t, ok)
	assert.Equal(t, "rescue", next)
}

func TestAgentExecutor_PassesPriorStepContext(t *testing.T) {
	runner := &stubRunner{data: "done"}
	e := NewAgentExecutor(runner)
	wctx := core.NewContext("wf", "x")
	wctx = wctx.AddResult("plan", core.NewSuccess("plan", map[string]any{"steps": 3}, wctx.StartTime(), 0))

	step := &core.WorkflowStep{ID: "code", Agent: "coder", Input: "plan"}
	e.Execute(context.Background(), step, wctx)

	require.Contains(t, runner.seen, "context")
	contextData, ok := runner.seen["context"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, contextData, "plan")

	// step.Input names "plan" as the explicit back-reference: its data must
	// also surface as its own sibling top-level key, not just nested under
	// "context" (§4.4.1's input_field_ref requirement).
	require.Contains(t, runner.seen, "plan")
	// The context store deep-clones via a JSON round-trip, so the stored
	// number comes back as float64.
	assert.Equal(t, map[string]any{"steps": float64(3)}, runner.seen["plan"])
}

func TestAgentExecutor_NoInputFieldRefOmitsSiblingKey(t *testing.T) {
	runner := &stubRunner{data: "done"}
	e := NewAgentExecutor(runner)
	wctx := core.NewContext("wf", "x")
	wctx = wctx.AddResult("plan", core.NewSuccess("plan", map[string]any{"steps": 3}, wctx.StartTime(), 0))

	step := &core.WorkflowStep{ID: "code", Agent: "coder"}
	e.Execute(context.Background(), step, wctx)

	assert.NotContains(t, runner.seen, "plan")
}

func TestAgentExecutor_BuildsInputAndContextShape(t *testing.T) {
	runner := &stubRunner{data: map[string]any{"ok": true}}
	e := NewAgentExecutor(runner)
	step := &core.WorkflowStep{ID: "plan", Kind: core.StepAgent, Agent: "planner"}
	wctx := core.NewContext("wf", "do it")

	e.Execute(context.Background(), step, wctx)

	assert.Equal(t, "do it", runner.seen["input"])
	assert.Equal(t, map[string]any{}, runner.seen["context"])
}
