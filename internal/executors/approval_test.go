package executors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flowcraft/workflowengine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNotifier struct {
	approved bool
	err      error
}

func (s *stubNotifier) WorkflowStarted(string, any)                                {}
func (s *stubNotifier) StepProgress(string, string, int)                           {}
func (s *stubNotifier) WorkflowCompleted(string, time.Duration, *core.WorkflowResult) {}
func (s *stubNotifier) WorkflowFailed(string, time.Duration, error)                 {}
func (s *stubNotifier) RequestApproval(_ context.Context, _, _ string, _ map[string]any) (bool, error) {
	return s.approved, s.err
}

func TestApprovalExecutor_Approved(t *testing.T) {
	n := &stubNotifier{approved: true}
	e := NewApprovalExecutor(n)
	step := &core.WorkflowStep{ID: "gate", Message: "proceed?", OnApprove: "deploy", OnReject: "stop"}
	wctx := core.NewContext("wf", nil)

	result := e.Execute(context.Background(), step, wctx)
	require.True(t, result.Success)

	next, ok := e.Route(step, result, wctx)
	assert.True(t, ok)
	assert.Equal(t, "deploy", next)
}

func TestApprovalExecutor_Rejected(t *testing.T) {
	n := &stubNotifier{approved: false}
	e := NewApprovalExecutor(n)
	step := &core.WorkflowStep{ID: "gate", Message: "proceed?", OnApprove: "deploy", OnReject: "stop"}
	wctx := core.NewContext("wf", nil)

	result := e.Execute(context.Background(), step, wctx)
	require.True(t, result.Success)

	next, ok := e.Route(step, result, wctx)
	assert.True(t, ok)
	assert.Equal(t, "stop", next)
}

func TestApprovalExecutor_UIFailureRoutesOnError(t *testing.T) {
	n := &stubNotifier{err: errors.New("ui down")}
	e := NewApprovalExecutor(n)
	step := &core.WorkflowStep{ID: "gate", Message: "proceed?", OnApprove: "deploy", OnReject: "stop", OnError: "rescue"}
	wctx := core.NewContext("wf", nil)

	result := e.Execute(context.Background(), step, wctx)
	require.False(t, result.Success)

	next, ok := e.Route(step, result, wctx)
	assert.True(t, ok)
	assert.Equal(t, "rescue", next)
}
