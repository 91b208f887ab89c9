package executors

import (
	"context"
	"testing"
	"time"

	"github.com/flowcraft/workflowengine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformExecutor_ComputesValue(t *testing.T) {
	e := NewTransformExecutor()
	wctx := core.NewContext("wf", map[string]any{"n": 4})
	step := &core.WorkflowStep{ID: "t", Transform: `input.n * 2`}

	result := e.Execute(context.Background(), step, wctx)
	require.True(t, result.Success)
	assert.EqualValues(t, 8, result.Data)
}

func TestTransformExecutor_InvalidExpressionFails(t *testing.T) {
	e := NewTransformExecutor()
	wctx := core.NewContext("wf", nil)
	retries := 0
	step := &core.WorkflowStep{ID: "t", Transform: `input.__proto__`, MaxRetries: &retries}

	result := e.Execute(context.Background(), step, wctx)
	require.False(t, result.Success)
	var invalid *core.InvalidValueError
	require.ErrorAs(t, result.Error, &invalid)
}

func TestTransformExecutor_Route(t *testing.T) {
	e := NewTransformExecutor()
	step := &core.WorkflowStep{ID: "t", Next: "n", OnError: "err"}
	next, ok := DefaultRoute(step, core.NewSuccess("t", 1, time.Now(), 0))
	assert.True(t, ok)
	assert.Equal(t, "n", next)
	_ = e
}
