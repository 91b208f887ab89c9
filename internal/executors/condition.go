package executors

import (
	"context"

	"github.com/flowcraft/workflowengine/core"
	"github.com/flowcraft/workflowengine/internal/exprlang"
)

// ConditionExecutor implements registry.Executor for kind "condition"
// (§4.4.3): evaluates a boolean expression over the same scope as
// Transform and routes to then/else based on the result rather than on
// success/failure of the step itself.
type ConditionExecutor struct{}

func NewConditionExecutor() *ConditionExecutor { return &ConditionExecutor{} }

func (e *ConditionExecutor) Execute(ctx context.Context, step *core.WorkflowStep, wctx *core.WorkflowContext) core.StepResult {
	return RunWithRetry(ctx, step, func(_ context.Context) (any, error) {
		env := exprlang.BuildEnv(wctx)
		ok, err := exprlang.EvalCondition(step.Condition, env)
		if err != nil {
			return nil, withScopeHint(err, step.Condition, env)
		}
		return ok, nil
	})
}

// Route sends a successful evaluation to then/else based on the boolean
// result; a failed evaluation (step.Success == false) goes to on_error.
func (e *ConditionExecutor) Route(step *core.WorkflowStep, result core.StepResult, _ *core.WorkflowContext) (string, bool) {
	if !result.Success {
		return step.OnError, step.OnError != ""
	}
	passed, _ := result.Data.(bool)
	if passed {
		return step.Then, step.Then != ""
	}
	return step.Else, step.Else != ""
}
