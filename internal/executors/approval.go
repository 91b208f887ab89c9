package executors

import (
	"context"
	"time"

	"github.com/flowcraft/workflowengine/core"
	"github.com/flowcraft/workflowengine/internal/uisurface"
)

// ApprovalExecutor implements registry.Executor for kind "approval"
// (§4.4.4): asks the UI Surface for a human decision and routes on it.
// Retries don't apply to a human decision, so the executor bypasses
// RunWithRetry and drives its own single-attempt timeout race.
type ApprovalExecutor struct {
	Notifier uisurface.Notifier
}

func NewApprovalExecutor(notifier uisurface.Notifier) *ApprovalExecutor {
	return &ApprovalExecutor{Notifier: notifier}
}

func (e *ApprovalExecutor) Execute(ctx context.Context, step *core.WorkflowStep, wctx *core.WorkflowContext) core.StepResult {
	start := time.Now()
	timeout := time.Duration(step.EffectiveTimeoutMs()) * time.Millisecond
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	snapshot := wctx.BuildContextObject()

	type outcome struct {
		approved bool
		err      error
	}
	ch := make(chan outcome, 1)
	go func() {
		approved, err := e.Notifier.RequestApproval(attemptCtx, step.ID, step.Message, snapshot)
		ch <- outcome{approved, err}
	}()

	select {
	case o := <-ch:
		if o.err != nil {
			return core.NewFailure(step.ID, o.err, start, 0)
		}
		return core.NewSuccess(step.ID, map[string]any{"approved": o.approved}, start, 0)
	case <-attemptCtx.Done():
		return core.NewFailure(step.ID, &core.TimeoutError{Scope: core.TimeoutScopeStep, ElapsedMs: timeout.Milliseconds()}, start, 0)
	}
}

// Route sends an approved decision to on_approve, a rejected decision to
// on_reject, and a failed/timed-out decision to on_error.
func (e *ApprovalExecutor) Route(step *core.WorkflowStep, result core.StepResult, _ *core.WorkflowContext) (string, bool) {
	if !result.Success {
		return step.OnError, step.OnError != ""
	}
	data, _ := result.Data.(map[string]any)
	if approved, _ := data["approved"].(bool); approved {
		return step.OnApprove, step.OnApprove != ""
	}
	return step.OnReject, step.OnReject != ""
}
