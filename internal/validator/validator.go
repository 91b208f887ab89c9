// Package validator implements the Workflow Validator (C6): structural
// pre-execution checks over a core.WorkflowDefinition. Grounded on
// core/config_validator.go's error/warning-kind split (the teacher
// distinguishes hard errors from advisory warnings in exactly this shape)
// and on internal/orchestrator's reachability-from-entry concerns,
// reimplemented over the spec's step-kind/routing model. Pure graph and
// field validation — no pack library addresses this generically, so this
// package is intentionally stdlib-only.
package validator

import (
	"fmt"

	"github.com/flowcraft/workflowengine/core"
	"github.com/flowcraft/workflowengine/internal/exprlang"
)

// Severity distinguishes a hard validation error from an advisory warning.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Kind enumerates the error/warning kinds spec.md §4.6 names.
type Kind string

const (
	KindMissingField        Kind = "missing_field"
	KindInvalidReference     Kind = "invalid_reference"
	KindCircularDependency   Kind = "circular_dependency"
	KindInvalidType          Kind = "invalid_type"
	KindInvalidValue         Kind = "invalid_value"
	KindUnusedStep           Kind = "unused_step"
	KindMissingErrorHandler  Kind = "missing_error_handler"
	KindLongWorkflow         Kind = "long_workflow"
)

// Finding is one error or warning produced by Validate.
type Finding struct {
	Severity Severity
	Kind     Kind
	StepID   string
	Message  string
}

// Result is the {valid, errors, warnings} triple spec.md §4.6 specifies.
type Result struct {
	Valid    bool
	Errors   []Finding
	Warnings []Finding
}

const longWorkflowThreshold = 50

// Validate runs every structural check from spec.md §4.6 against wf.
func Validate(wf *core.WorkflowDefinition) Result {
	v := &validation{wf: wf, seen: map[string]int{}}
	v.checkIDsUnique()
	v.checkRequiredFields()
	v.checkReferencesResolve()
	v.checkMinSuccess()
	v.checkExpressionShapes()
	v.checkReachability()
	v.checkCircularDependency()
	v.checkLongWorkflow()

	return Result{
		Valid:    len(v.errors) == 0,
		Errors:   v.errors,
		Warnings: v.warnings,
	}
}

type validation struct {
	wf       *core.WorkflowDefinition
	errors   []Finding
	warnings []Finding
	seen     map[string]int
}

func (v *validation) addError(kind Kind, stepID, msg string) {
	v.errors = append(v.errors, Finding{Severity: SeverityError, Kind: kind, StepID: stepID, Message: msg})
}

func (v *validation) addWarning(kind Kind, stepID, msg string) {
	v.warnings = append(v.warnings, Finding{Severity: SeverityWarning, Kind: kind, StepID: stepID, Message: msg})
}

// allSteps walks the full step tree, including nested parallel children.
func (v *validation) allSteps() []*core.WorkflowStep {
	var out []*core.WorkflowStep
	var walk func([]core.WorkflowStep)
	walk = func(steps []core.WorkflowStep) {
		for i := range steps {
			out = append(out, &steps[i])
			if len(steps[i].Steps) > 0 {
				walk(steps[i].Steps)
			}
		}
	}
	walk(v.wf.Steps)
	return out
}

func (v *validation) checkIDsUnique() {
	for _, s := range v.allSteps() {
		v.seen[s.ID]++
	}
	for id, count := range v.seen {
		if count > 1 {
			v.addError(KindInvalidValue, id, fmt.Sprintf("step id %q is used %d times", id, count))
		}
	}
}

func (v *validation) checkRequiredFields() {
	for _, s := range v.allSteps() {
		if s.ID == "" {
			v.addError(KindMissingField, "", "step is missing required field \"id\"")
		}
		switch s.Kind {
		case core.StepAgent:
			if s.Agent == "" {
				v.addError(KindMissingField, s.ID, "agent step is missing required field \"agent\"")
			}
		case core.StepTransform:
			if s.Transform == "" {
				v.addError(KindMissingField, s.ID, "transform step is missing required field \"transform\"")
			}
		case core.StepCondition:
			if s.Condition == "" {
				v.addError(KindMissingField, s.ID, "condition step is missing required field \"condition\"")
			}
			if s.Then == "" {
				v.addError(KindMissingField, s.ID, "condition step is missing required field \"then\"")
			}
		case core.StepApproval:
			if s.Message == "" {
				v.addError(KindMissingField, s.ID, "approval step is missing required field \"message\"")
			}
		case core.StepParallel:
			if len(s.Steps) == 0 {
				v.addError(KindMissingField, s.ID, "parallel step is missing required non-empty field \"steps\"")
			}
		default:
			v.addError(KindInvalidType, s.ID, fmt.Sprintf("unknown step kind %q", s.Kind))
		}

		if s.Kind == core.StepAgent && s.OnError == "" {
			v.addWarning(KindMissingErrorHandler, s.ID, "agent step has no on_error handler")
		}
	}
}

func (v *validation) checkReferencesResolve() {
	ids := map[string]bool{}
	for _, s := range v.allSteps() {
		ids[s.ID] = true
	}
	for _, s := range v.allSteps() {
		for _, field := range []struct {
			name string
			ref  string
		}{
			{"next", s.Next}, {"on_error", s.OnError}, {"then", s.Then}, {"else", s.Else},
			{"on_approve", s.OnApprove}, {"on_reject", s.OnReject}, {"input", s.Input},
		} {
			if field.ref == "" {
				continue
			}
			if !ids[field.ref] {
				v.addError(KindInvalidReference, s.ID, fmt.Sprintf("%s references unknown step id %q", field.name, field.ref))
			}
		}
	}
}

func (v *validation) checkMinSuccess() {
	for _, s := range v.allSteps() {
		if s.Kind != core.StepParallel {
			continue
		}
		if s.MinSuccess != nil && *s.MinSuccess > len(s.Steps) {
			v.addError(KindInvalidValue, s.ID, fmt.Sprintf("min_success (%d) exceeds child count (%d)", *s.MinSuccess, len(s.Steps)))
		}
	}
}

func (v *validation) checkExpressionShapes() {
	for _, s := range v.allSteps() {
		if s.Kind == core.StepTransform && s.Transform != "" {
			if _, err := exprlang.Compile(s.Transform); err != nil {
				v.addError(KindInvalidValue, s.ID, fmt.Sprintf("transform expression invalid: %v", err))
			}
		}
		if s.Kind == core.StepCondition && s.Condition != "" {
			if _, err := exprlang.Compile(s.Condition); err != nil {
				v.addError(KindInvalidValue, s.ID, fmt.Sprintf("condition expression invalid: %v", err))
			}
		}
	}
}

// checkReachability finds the entry step (same algorithm the engine uses)
// and walks every routing edge from it, warning about any step never
// reached.
func (v *validation) checkReachability() {
	all := v.allSteps()
	if len(all) == 0 {
		return
	}
	entry := EntryStep(v.wf)
	if entry == nil {
		return
	}

	reached := map[string]bool{}
	var walk func(id string)
	byID := map[string]*core.WorkflowStep{}
	for _, s := range all {
		byID[s.ID] = s
	}
	walk = func(id string) {
		if id == "" || reached[id] {
			return
		}
		s, ok := byID[id]
		if !ok {
			return
		}
		reached[id] = true
		for _, next := range []string{s.Next, s.OnError, s.Then, s.Else, s.OnApprove, s.OnReject} {
			walk(next)
		}
		for _, child := range s.Steps {
			walk(child.ID)
		}
	}
	walk(entry.ID)

	for _, s := range all {
		if !reached[s.ID] {
			v.addWarning(KindUnusedStep, s.ID, "step is unreachable from the entry step")
		}
	}
}

// checkCircularDependency walks the routing graph (next/on_error/then/
// else/on_approve/on_reject) from every step with a three-color DFS and
// warns on each back edge found. This is a structural, whole-graph check —
// distinct from guards.CircularDependencyGuard's runtime window over
// previous_steps, which catches actual repeated execution rather than mere
// graph shape. A self-referencing "next" (spec.md §8 scenario 3's infinite
// loop guard case) is a legitimate, intentional workflow pattern guarded by
// max_iterations at runtime, so this is advisory, not an error.
func (v *validation) checkCircularDependency() {
	byID := map[string]*core.WorkflowStep{}
	for _, s := range v.allSteps() {
		byID[s.ID] = s
	}

	const (
		white = iota
		gray
		black
	)
	color := map[string]int{}
	warned := map[string]bool{}

	var visit func(id string)
	visit = func(id string) {
		if id == "" {
			return
		}
		s, ok := byID[id]
		if !ok {
			return
		}
		switch color[id] {
		case gray:
			if !warned[id] {
				warned[id] = true
				v.addWarning(KindCircularDependency, id, fmt.Sprintf("step %q is reachable from itself via routing edges", id))
			}
			return
		case black:
			return
		}
		color[id] = gray
		for _, next := range []string{s.Next, s.OnError, s.Then, s.Else, s.OnApprove, s.OnReject} {
			visit(next)
		}
		color[id] = black
	}

	for _, s := range v.allSteps() {
		if color[s.ID] == white {
			visit(s.ID)
		}
	}
}

func (v *validation) checkLongWorkflow() {
	if len(v.wf.Steps) > longWorkflowThreshold {
		v.addWarning(KindLongWorkflow, "", fmt.Sprintf("workflow has %d top-level steps (>%d)", len(v.wf.Steps), longWorkflowThreshold))
	}
}

// EntryStep implements spec.md §4.7 step 4 / §2's entry-step discovery:
// the first step not referenced by any routing field of any other step;
// falls back to definition order if every step is referenced.
func EntryStep(wf *core.WorkflowDefinition) *core.WorkflowStep {
	if len(wf.Steps) == 0 {
		return nil
	}
	referenced := map[string]bool{}
	var walk func([]core.WorkflowStep)
	walk = func(steps []core.WorkflowStep) {
		for _, s := range steps {
			for _, ref := range []string{s.Next, s.OnError, s.Then, s.Else, s.OnApprove, s.OnReject} {
				if ref != "" {
					referenced[ref] = true
				}
			}
			if len(s.Steps) > 0 {
				walk(s.Steps)
			}
		}
	}
	walk(wf.Steps)

	for i := range wf.Steps {
		if !referenced[wf.Steps[i].ID] {
			return &wf.Steps[i]
		}
	}
	return &wf.Steps[0]
}
