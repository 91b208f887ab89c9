// Package registry implements the Executor Registry (C2): a lookup table
// from step-kind tag to a Step Executor, grounded on the teacher's
// WorkflowFactory register/get pattern in core/vnext/workflow.go
// (SetWorkflowFactory/getWorkflowFactory behind a sync.RWMutex) and the
// kind-registry in internal/orchestrator/factory.go.
package registry

import (
	"context"
	"sync"

	"github.com/flowcraft/workflowengine/core"
)

// Executor is the common contract every step-kind implementation satisfies.
// Execute drives retry/timeout/backoff and never panics or returns a raw
// error for an expected step-level failure — see internal/executors.
type Executor interface {
	Execute(ctx context.Context, step *core.WorkflowStep, wctx *core.WorkflowContext) core.StepResult
	Route(step *core.WorkflowStep, result core.StepResult, wctx *core.WorkflowContext) (string, bool)
}

// Registry maps a step kind tag to its Executor. Last registration wins.
type Registry struct {
	mu        sync.RWMutex
	executors map[core.StepKind]Executor
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{executors: make(map[core.StepKind]Executor)}
}

// Register inserts (or overwrites) the executor for a step kind.
func (r *Registry) Register(kind core.StepKind, executor Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[kind] = executor
}

// Get returns the executor registered for kind, or (nil, false).
func (r *Registry) Get(kind core.StepKind) (Executor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.executors[kind]
	return e, ok
}

// Types enumerates every registered step kind.
func (r *Registry) Types() []core.StepKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]core.StepKind, 0, len(r.executors))
	for k := range r.executors {
		kinds = append(kinds, k)
	}
	return kinds
}
