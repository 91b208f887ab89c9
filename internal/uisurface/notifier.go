// Package uisurface is the C8 external collaborator: lifecycle
// notifications (start/progress/complete/error) and human approval
// decisions. spec.md §1 places the real UI toast surface out of core
// scope, so this package is deliberately thin — an interface the engine
// and approval executor can call, plus a console implementation backed by
// the teacher's structured-logging stack so the module compiles and is
// runnable end to end without a real UI host.
package uisurface

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/flowcraft/workflowengine/core"
	"github.com/flowcraft/workflowengine/internal/xlog"
)

// Notifier receives the lifecycle events the Workflow Executor (C7) and
// the Approval Step Executor emit.
type Notifier interface {
	WorkflowStarted(workflowID string, input any)
	StepProgress(workflowID, stepID string, iteration int)
	WorkflowCompleted(workflowID string, elapsed time.Duration, result *core.WorkflowResult)
	WorkflowFailed(workflowID string, elapsed time.Duration, err error)

	// RequestApproval asks a human for a decision. A non-interactive
	// implementation may auto-approve; ctx carries the approval's own
	// timeout, if any. err is non-nil only for a genuine UI failure (the
	// approval executor maps both a timeout and an error to on_error).
	RequestApproval(ctx context.Context, stepID, message string, snapshot map[string]any) (approved bool, err error)
}

// ConsoleNotifier logs every lifecycle event through the shared logger and
// auto-approves every approval request — the minimal non-interactive
// Notifier a headless CLI run needs.
type ConsoleNotifier struct {
	AutoApprove bool
}

// NewConsoleNotifier returns a ConsoleNotifier that auto-approves, matching
// spec.md §4.4.4's "falls back to auto-approve if the UI surface is
// non-interactive" default.
func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{AutoApprove: true}
}

func (n *ConsoleNotifier) WorkflowStarted(workflowID string, _ any) {
	xlog.Get().Info().Str("workflow_id", workflowID).Msg("workflow started")
}

func (n *ConsoleNotifier) StepProgress(workflowID, stepID string, iteration int) {
	xlog.Get().Debug().Str("workflow_id", workflowID).Str("step_id", stepID).Int("iteration", iteration).Msg("step dispatched")
}

func (n *ConsoleNotifier) WorkflowCompleted(workflowID string, elapsed time.Duration, result *core.WorkflowResult) {
	ev := xlog.Get().Info()
	logResult(ev, workflowID, elapsed, result)
	ev.Msg("workflow completed")
}

func (n *ConsoleNotifier) WorkflowFailed(workflowID string, elapsed time.Duration, err error) {
	xlog.Get().Error().Str("workflow_id", workflowID).Dur("elapsed", elapsed).Err(err).Msg("workflow failed")
}

func (n *ConsoleNotifier) RequestApproval(_ context.Context, stepID, message string, _ map[string]any) (bool, error) {
	xlog.Get().Info().Str("step_id", stepID).Str("message", message).Bool("auto_approve", n.AutoApprove).Msg("approval requested")
	return n.AutoApprove, nil
}

func logResult(ev *zerolog.Event, workflowID string, elapsed time.Duration, result *core.WorkflowResult) {
	ev.Str("workflow_id", workflowID).Dur("elapsed", elapsed)
	if result != nil {
		ev.Bool("success", result.Success).Bool("final_step_success", result.FinalStepSuccess)
	}
}
