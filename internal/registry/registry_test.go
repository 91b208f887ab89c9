package registry

import (
	"context"
	"testing"

	"github.com/flowcraft/workflowengine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExecutor struct{ name string }

func (s *stubExecutor) Execute(_ context.Context, step *core.WorkflowStep, wctx *core.WorkflowContext) core.StepResult {
	return core.NewSuccess(step.ID, s.name, wctx.StartTime(), 0)
}

func (s *stubExecutor) Route(step *core.WorkflowStep, result core.StepResult, _ *core.WorkflowContext) (string, bool) {
	if result.Success {
		return step.Next, step.Next != ""
	}
	return step.OnError, step.OnError != ""
}

func TestRegisterAndGet(t *testing.T) {
	r := New()
	exec := &stubExecutor{name: "agent"}
	r.Register(core.StepAgent, exec)

	got, ok := r.Get(core.StepAgent)
	require.True(t, ok)
	assert.Same(t, exec, got)

	_, ok = r.Get(core.StepCondition)
	assert.False(t, ok)
}

func TestRegisterLastWriteWins(t *testing.T) {
	r := New()
	first := &stubExecutor{name: "first"}
	second := &stubExecutor{name: "second"}
	r.Register(core.StepTransform, first)
	r.Register(core.StepTransform, second)

	got, _ := r.Get(core.StepTransform)
	assert.Same(t, second, got)
}

func TestTypes(t *testing.T) {
	r := New()
	r.Register(core.StepAgent, &stubExecutor{})
	r.Register(core.StepCondition, &stubExecutor{})

	types := r.Types()
	assert.ElementsMatch(t, []core.StepKind{core.StepAgent, core.StepCondition}, types)
}
