package executors

import (
	"context"
	"testing"

	"github.com/flowcraft/workflowengine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionExecutor_RoutesThenOnTrue(t *testing.T) {
	e := NewConditionExecutor()
	wctx := core.NewContext("wf", nil)
	wctx = wctx.AddResult("test", core.NewSuccess("test", map[string]any{"passed": true}, wctx.StartTime(), 0))

	step := &core.WorkflowStep{ID: "check", Condition: `test.passed == true`, Then: "deploy", Else: "rollback"}
	result := e.Execute(context.Background(), step, wctx)
	require.True(t, result.Success)

	next, ok := e.Route(step, result, wctx)
	assert.True(t, ok)
	assert.Equal(t, "deploy", next)
}

func TestConditionExecutor_RoutesElseOnFalse(t *testing.T) {
	e := NewConditionExecutor()
	wctx := core.NewContext("wf", nil)
	wctx = wctx.AddResult("test", core.NewSuccess("test", map[string]any{"passed": false}, wctx.StartTime(), 0))

	step := &core.WorkflowStep{ID: "check", Condition: `test.passed == true`, Then: "deploy", Else: "rollback"}
	result := e.Execute(context.Background(), step, wctx)
	require.True(t, result.Success)

	next, ok := e.Route(step, result, wctx)
	assert.True(t, ok)
	assert.Equal(t, "rollback", next)
}

func TestConditionExecutor_FailureRoutesOnError(t *testing.T) {
	e := NewConditionExecutor()
	wctx := core.NewContext("wf", nil)
	retries := 0
	step := &core.WorkflowStep{ID: "check", Condition: `missing.field`, Then: "deploy", OnError: "rescue", MaxRetries: &retries}

	result := e.Execute(context.Background(), step, wctx)
	require.False(t, result.Success)

	next, ok := e.Route(step, result, wctx)
	assert.True(t, ok)
	assert.Equal(t, "rescue", next)
}
