// Package engine implements the Workflow Executor (C7): the main driver
// loop that discovers the entry step, applies safety guards, dispatches
// through the Executor Registry, records trace entries, and routes to the
// next step until routing yields none or a fatal error is raised.
// Grounded on core/vnext/workflow.go's Run loop (guard → dispatch → route)
// and internal/orchestrator/route.go's hook-invocation-around-dispatch
// shape; per-step OpenTelemetry spans via go.opentelemetry.io/otel/trace
// (a teacher go.mod dependency with no wired consumer in the reduced core
// otherwise) drive this engine's own span-per-dispatch, replacing the
// teacher's CallbackRegistry-based event tracing (internal/tracing),
// whose hook points this spec's core has no analogue for.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowcraft/workflowengine/core"
	"github.com/flowcraft/workflowengine/internal/guards"
	"github.com/flowcraft/workflowengine/internal/registry"
	"github.com/flowcraft/workflowengine/internal/uisurface"
	"github.com/flowcraft/workflowengine/internal/validator"
	"github.com/flowcraft/workflowengine/internal/xlog"
)

// Engine drives a single workflow execution. It holds no per-run state;
// Execute is safe to call repeatedly and concurrently from distinct goroutines.
type Engine struct {
	Registry *registry.Registry
	Guards   []guards.Guard
	Notifier uisurface.Notifier
	Tracer   trace.Tracer
}

// New builds an Engine. A nil notifier falls back to a ConsoleNotifier; a
// nil tracer falls back to a tracer from a fresh no-op tracer provider.
func New(reg *registry.Registry, customGuards []guards.Guard, notifier uisurface.Notifier, tracer trace.Tracer) *Engine {
	if notifier == nil {
		notifier = uisurface.NewConsoleNotifier()
	}
	if tracer == nil {
		tracer = trace.NewNoopTracerProvider().Tracer("workflowengine")
	}
	return &Engine{Registry: reg, Guards: customGuards, Notifier: notifier, Tracer: tracer}
}

// Execute runs wf against input end to end, per spec.md §4.7.
func (e *Engine) Execute(ctx context.Context, wf *core.WorkflowDefinition, input any) *core.WorkflowResult {
	start := time.Now()

	if err := checkStructure(wf); err != nil {
		e.Notifier.WorkflowFailed(wf.ID, time.Since(start), err)
		return &core.WorkflowResult{Success: false, Error: err, ErrorText: err.Error(), Duration: time.Since(start)}
	}
	if vr := validator.Validate(wf); !vr.Valid {
		err := fmt.Errorf("workflow failed validation: %d error(s), first: %s", len(vr.Errors), vr.Errors[0].Message)
		e.Notifier.WorkflowFailed(wf.ID, time.Since(start), err)
		return &core.WorkflowResult{Success: false, Error: err, ErrorText: err.Error(), Duration: time.Since(start)}
	}

	wctx := core.NewContext(wf.ID, input)
	e.Notifier.WorkflowStarted(wf.ID, input)

	entry := validator.EntryStep(wf)
	if entry == nil {
		err := fmt.Errorf("workflow %q has no entry step", wf.ID)
		return &core.WorkflowResult{Success: false, Context: wctx, Error: err, ErrorText: err.Error(), Duration: time.Since(start)}
	}

	var trail []core.TraceEntry
	currentID := entry.ID

	for currentID != "" {
		wctx = wctx.IncrementIteration()

		if err := e.checkGuards(wctx, wf, start); err != nil {
			wctx = wctx.IncrementError()
			e.Notifier.WorkflowFailed(wf.ID, time.Since(start), err)
			return &core.WorkflowResult{Success: false, Context: wctx, Error: err, ErrorText: err.Error(), Trace: trail, Duration: time.Since(start)}
		}

		step, ok := wf.StepByID(currentID)
		if !ok {
			err := &core.NotFoundError{Component: "step", Name: currentID, Available: wf.AllStepIDs(), Hint: "check routing fields for a stale step id"}
			e.Notifier.WorkflowFailed(wf.ID, time.Since(start), err)
			return &core.WorkflowResult{Success: false, Context: wctx, Error: err, ErrorText: err.Error(), Trace: trail, Duration: time.Since(start)}
		}

		wctx = wctx.SetCurrentStep(step.ID)
		e.Notifier.StepProgress(wf.ID, step.ID, wctx.IterationCount())

		exec, ok := e.Registry.Get(step.Kind)
		if !ok {
			err := &core.NotFoundError{Component: "executor", Name: string(step.Kind), Available: kindStrings(e.Registry.Types()), Hint: "register an executor for this step kind before running the workflow"}
			e.Notifier.WorkflowFailed(wf.ID, time.Since(start), err)
			return &core.WorkflowResult{Success: false, Context: wctx, Error: err, ErrorText: err.Error(), Trace: trail, Duration: time.Since(start)}
		}

		result := e.dispatch(ctx, exec, step, wctx)

		if wf.Trace {
			trail = append(trail, core.TraceEntry{StepID: step.ID, Timestamp: time.Now(), Result: result, Context: wctx})
		}

		wctx = wctx.AddResult(step.ID, result)
		if !result.Success {
			wctx = wctx.IncrementError()
		}
		if wctx.ResultCount() > wf.EffectiveMaxContextSize() {
			if wf.EffectiveContextRetention() == core.RetentionReferenced {
				wctx = wctx.PruneReferenced(wf.EffectiveMaxContextSize(), remainingStepsAfter(wf, step.ID))
			} else {
				wctx = wctx.Prune(wf.EffectiveMaxContextSize())
			}
		}

		next, has := exec.Route(step, result, wctx)
		if !has {
			currentID = ""
		} else {
			currentID = next
		}
	}

	e.Notifier.WorkflowCompleted(wf.ID, time.Since(start), &core.WorkflowResult{Success: true, Context: wctx})
	lastSuccess := wctx.ResultCount() > 0
	if last, ok := wctx.GetResult(wctx.CurrentStep()); ok {
		lastSuccess = last.Success
	}
	return &core.WorkflowResult{
		Success:          true,
		FinalStepSuccess: lastSuccess,
		Context:          wctx,
		Trace:            trail,
		Duration:         time.Since(start),
	}
}

func (e *Engine) checkGuards(wctx *core.WorkflowContext, wf *core.WorkflowDefinition, start time.Time) error {
	if wctx.IterationCount() > wf.EffectiveMaxIterations() {
		return &core.GuardFailureError{Guard: "iteration_limit", WorkflowID: wf.ID, CurrentStep: wctx.CurrentStep(), IterationCount: wctx.IterationCount(), Reason: "exceeded maximum iterations"}
	}
	if time.Since(start) >= time.Duration(wf.EffectiveMaxDurationMs())*time.Millisecond {
		return &core.GuardFailureError{Guard: "duration_limit", WorkflowID: wf.ID, CurrentStep: wctx.CurrentStep(), IterationCount: wctx.IterationCount(), Reason: "exceeded maximum duration"}
	}
	for _, g := range e.Guards {
		if err := g.Check(wctx, wf); err != nil {
			return &core.GuardFailureError{Guard: g.Name(), WorkflowID: wf.ID, CurrentStep: wctx.CurrentStep(), IterationCount: wctx.IterationCount(), Reason: err.Error()}
		}
	}
	return nil
}

func (e *Engine) dispatch(ctx context.Context, exec registry.Executor, step *core.WorkflowStep, wctx *core.WorkflowContext) core.StepResult {
	spanCtx, span := e.Tracer.Start(ctx, fmt.Sprintf("step.%s", step.Kind))
	defer span.End()
	span.SetAttributes(
		attribute.String("step.id", step.ID),
		attribute.String("step.kind", string(step.Kind)),
		attribute.String("workflow.id", wctx.WorkflowID()),
	)

	result := exec.Execute(spanCtx, step, wctx)

	if !result.Success {
		span.SetStatus(codes.Error, result.ErrorText)
		if result.Error != nil {
			span.RecordError(result.Error)
		}
	} else {
		span.SetStatus(codes.Ok, "")
	}
	xlog.Get().Debug().Str("step_id", step.ID).Bool("success", result.Success).Dur("duration", result.Duration).Msg("step executed")
	return result
}

// checkStructure is the engine's own minimal pre-flight check, distinct
// from (and run before) the full Workflow Validator: required top-level
// fields, non-empty steps, and every step carrying an id and kind.
func checkStructure(wf *core.WorkflowDefinition) error {
	if wf == nil {
		return &core.MissingFieldError{Component: "workflow", Field: "definition"}
	}
	if wf.ID == "" {
		return &core.MissingFieldError{Component: "workflow", Field: "id"}
	}
	if len(wf.Steps) == 0 {
		return &core.MissingFieldError{Component: "workflow", Field: "steps", StepID: wf.ID}
	}
	for _, s := range wf.Steps {
		if s.ID == "" {
			return &core.MissingFieldError{Component: "step", Field: "id"}
		}
		if s.Kind == "" {
			return &core.MissingFieldError{Component: "step", StepID: s.ID, Field: "type"}
		}
	}
	return nil
}

func kindStrings(kinds []core.StepKind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

// remainingStepsAfter returns every top-level step of wf except
// executedID, used by the "referenced" retention mode to decide which older
// results are still named by a routing/input field. Steps that already ran
// earlier in the run are not excluded.
func remainingStepsAfter(wf *core.WorkflowDefinition, executedID string) []core.WorkflowStep {
	all := wf.Steps
	var out []core.WorkflowStep
	for _, s := range all {
		if s.ID != executedID {
			out = append(out, s)
		}
	}
	return out
}
