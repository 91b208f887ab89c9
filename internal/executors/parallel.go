package executors

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/flowcraft/workflowengine/core"
)

// ChildDispatcher resolves and runs a single child step, returning its
// StepResult. The CLI wiring (cmd/workflowctl's dispatchChild) binds this to
// the same Executor Registry the top-level loop uses, so parallel children are dispatched through the
// identical per-kind machinery (retry, timeout, ...) as sequential steps.
type ChildDispatcher func(ctx context.Context, child *core.WorkflowStep, wctx *core.WorkflowContext) core.StepResult

// ParallelExecutor implements registry.Executor for kind "parallel"
// (§4.4.5): fans children out concurrently over a shared read-only context
// snapshot, waits for all to settle regardless of individual failures, and
// assembles one composite StepResult for the parent context. Grounded
// directly on core/vnext/workflow.go's executeParallel (WaitGroup plus a
// mutex-protected result slice, no cancellation of siblings on failure).
type ParallelExecutor struct {
	Dispatch ChildDispatcher
}

func NewParallelExecutor(dispatch ChildDispatcher) *ParallelExecutor {
	return &ParallelExecutor{Dispatch: dispatch}
}

type childOutcome struct {
	id     string
	result core.StepResult
}

func (e *ParallelExecutor) Execute(ctx context.Context, step *core.WorkflowStep, wctx *core.WorkflowContext) core.StepResult {
	start := time.Now()
	if len(step.Steps) == 0 {
		return core.NewFailure(step.ID, &core.MissingFieldError{Component: "parallel", StepID: step.ID, Field: "steps"}, start, 0)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	outcomes := make([]childOutcome, 0, len(step.Steps))

	for i := range step.Steps {
		child := &step.Steps[i]
		wg.Add(1)
		go func(child *core.WorkflowStep) {
			defer wg.Done()
			result := e.Dispatch(ctx, child, wctx)
			mu.Lock()
			outcomes = append(outcomes, childOutcome{id: child.ID, result: result})
			mu.Unlock()
		}(child)
	}
	wg.Wait()

	sort.SliceStable(outcomes, func(i, j int) bool {
		return indexOf(step.Steps, outcomes[i].id) < indexOf(step.Steps, outcomes[j].id)
	})

	data := make(map[string]core.StepResult, len(outcomes))
	successCount := 0
	for _, o := range outcomes {
		data[o.id] = o.result
		if o.result.Success {
			successCount++
		}
	}

	minSuccess := step.EffectiveMinSuccess()
	success := successCount >= minSuccess
	if success {
		return core.NewSuccess(step.ID, data, start, 0)
	}
	now := time.Now()
	return core.StepResult{
		StepID:    step.ID,
		Success:   false,
		Data:      data,
		Error:     &core.InvalidValueError{Where: "parallel", What: step.ID, Why: "fewer than min_success children succeeded"},
		ErrorText: "fewer than min_success children succeeded",
		StartTime: start,
		EndTime:   now,
		Duration:  now.Sub(start),
	}
}

func indexOf(steps []core.WorkflowStep, id string) int {
	for i, s := range steps {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func (e *ParallelExecutor) Route(step *core.WorkflowStep, result core.StepResult, _ *core.WorkflowContext) (string, bool) {
	return DefaultRoute(step, result)
}
