package executors

import (
	"context"
	"fmt"
	"sort"

	"github.com/flowcraft/workflowengine/core"
	"github.com/flowcraft/workflowengine/internal/exprlang"
)

// TransformExecutor implements registry.Executor for kind "transform"
// (§4.4.2): evaluates a restricted pure expression over the successful-step
// scope and stores the result as result.data.
type TransformExecutor struct{}

func NewTransformExecutor() *TransformExecutor { return &TransformExecutor{} }

func (e *TransformExecutor) Execute(ctx context.Context, step *core.WorkflowStep, wctx *core.WorkflowContext) core.StepResult {
	return RunWithRetry(ctx, step, func(_ context.Context) (any, error) {
		env := exprlang.BuildEnv(wctx)
		out, err := exprlang.EvalTransform(step.Transform, env)
		if err != nil {
			return nil, withScopeHint(err, step.Transform, env)
		}
		return out, nil
	})
}

func (e *TransformExecutor) Route(step *core.WorkflowStep, result core.StepResult, _ *core.WorkflowContext) (string, bool) {
	return DefaultRoute(step, result)
}

// withScopeHint enriches an expression failure with the available scope
// names, per §4.4.2's "quote the expression, list the available scope
// names" requirement.
func withScopeHint(err error, expression string, env map[string]any) error {
	names := make([]string, 0, len(env))
	for k := range env {
		names = append(names, k)
	}
	sort.Strings(names)
	return &core.InvalidValueError{
		Where: "transform",
		What:  expression,
		Why:   fmt.Sprintf("%v (available scope: %v)", err, names),
	}
}
