// Package guards implements the Safety Guards (C3): pluggable predicates
// consulted once per iteration before executor dispatch. The two mandatory
// guards (iteration-limit, duration-limit) live in internal/engine because
// they need workflow-level timing the engine owns; this package holds the
// pluggable ones spec.md §4.3 names explicitly, grounded on the
// threshold/circuit-breaker shape of core/error_routing.go's
// CircuitBreakerConfigToml and the hook-consulted-before-dispatch style of
// internal/orchestrator/route.go.
package guards

import (
	"github.com/flowcraft/workflowengine/core"
)

// Guard is consulted before every step dispatch. It returns a non-nil error
// to terminate the workflow; the engine wraps it into a
// *core.GuardFailureError annotated with workflow id/current step/iteration.
type Guard interface {
	Name() string
	Check(wctx *core.WorkflowContext, wf *core.WorkflowDefinition) error
}

// MaxErrorGuard raises once context.metadata.error_count reaches Limit.
type MaxErrorGuard struct {
	Limit int
}

func (g *MaxErrorGuard) Name() string { return "max_error_guard" }

func (g *MaxErrorGuard) Check(wctx *core.WorkflowContext, _ *core.WorkflowDefinition) error {
	if wctx.ErrorCount() >= g.Limit {
		return &guardError{reason: "error count reached configured maximum"}
	}
	return nil
}

// NewMaxErrorGuard constructs a MaxErrorGuard with the given threshold.
func NewMaxErrorGuard(limit int) *MaxErrorGuard {
	return &MaxErrorGuard{Limit: limit}
}

// CircularDependencyGuard raises when the current step id has occurred at
// least three times within the last five entries of previous_steps — the
// heuristic fixed-window cycle detector spec.md §9 Open Question (ii)
// describes as insufficient alone. internal/validator's checkCircularDependency
// flags cycles in the routing graph ahead of a run (advisory, since a
// self-loop guarded by max_iterations is a legitimate pattern); this guard
// is what actually stops a run that keeps revisiting the same step.
type CircularDependencyGuard struct {
	WindowSize    int
	Threshold     int
}

// NewCircularDependencyGuard returns the guard with spec.md's defaults
// (3-of-last-5).
func NewCircularDependencyGuard() *CircularDependencyGuard {
	return &CircularDependencyGuard{WindowSize: 5, Threshold: 3}
}

func (g *CircularDependencyGuard) Name() string { return "circular_dependency_guard" }

func (g *CircularDependencyGuard) Check(wctx *core.WorkflowContext, _ *core.WorkflowDefinition) error {
	current := wctx.CurrentStep()
	if current == "" {
		return nil
	}
	prev := wctx.PreviousSteps()
	window := g.WindowSize
	if window > len(prev) {
		window = len(prev)
	}
	count := 0
	for _, id := range prev[len(prev)-window:] {
		if id == current {
			count++
		}
	}
	if count >= g.Threshold {
		return &guardError{reason: "current step repeated within recent window"}
	}
	return nil
}

type guardError struct{ reason string }

func (e *guardError) Error() string { return e.reason }
