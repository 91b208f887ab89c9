// Package exprlang wraps expr-lang/expr into the restricted, host-isolated
// expression language spec.md §4.4/§4.5 requires for transform and
// condition steps: no access to Go values beyond the evaluation
// environment, no call into the host runtime, and a static pre-compile
// token check that rejects a known-unsafe deny-list regardless of what
// expr's own sandboxing would already stop. Grounded on the expression
// language choice recorded in SPEC_FULL.md §2 (the pack's workflow-engine
// manifests consistently pull in expr-lang/expr for this exact role).
package exprlang

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/flowcraft/workflowengine/core"
)

// forbiddenTokens are rejected by a plain substring scan before the
// expression ever reaches the compiler, closing off prototype-pollution
// and constructor-escape idioms that make sense to block even though expr's
// own AST has no JS prototype chain to escape into — defense in depth per
// spec.md's explicit "no eval" requirement.
var forbiddenTokens = []string{"__proto__", "constructor", "prototype"}

// Program is a compiled expression ready for repeated evaluation against
// different environments.
type Program struct {
	source   string
	compiled *vm.Program
}

// Compile validates and compiles expr source. It returns an
// *core.InvalidValueError if a forbidden token is present or the source
// fails to compile.
func Compile(source string) (*Program, error) {
	if err := checkForbidden(source); err != nil {
		return nil, err
	}
	compiled, err := expr.Compile(source, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, &core.InvalidValueError{
			Where: "expression",
			What:  source,
			Why:   err.Error(),
		}
	}
	return &Program{source: source, compiled: compiled}, nil
}

func checkForbidden(source string) error {
	for _, tok := range forbiddenTokens {
		if strings.Contains(source, tok) {
			return &core.InvalidValueError{
				Where: "expression",
				What:  source,
				Why:   fmt.Sprintf("use of forbidden token %q is not permitted", tok),
			}
		}
	}
	return nil
}

// BuildEnv assembles the evaluation environment spec.md §4.4 describes:
// "input" bound to the workflow's original input, plus one entry per
// successfully-completed step id bound to that step's data.
func BuildEnv(wctx *core.WorkflowContext) map[string]any {
	env := wctx.BuildContextObject()
	if env == nil {
		env = map[string]any{}
	}
	env["input"] = wctx.Input()
	return env
}

// Eval runs the compiled program against env and returns the raw result.
func (p *Program) Eval(env map[string]any) (any, error) {
	out, err := expr.Run(p.compiled, env)
	if err != nil {
		return nil, &core.InvalidValueError{
			Where: "expression",
			What:  p.source,
			Why:   err.Error(),
		}
	}
	return out, nil
}

// EvalBool runs the compiled program and coerces the result to bool,
// failing closed (false, error) on a non-boolean result — spec.md requires
// condition steps to treat a malformed predicate as an edge case, not a
// silent truthy/falsy JS-style coercion.
func (p *Program) EvalBool(env map[string]any) (bool, error) {
	out, err := p.Eval(env)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, &core.InvalidValueError{
			Where: "condition expression",
			What:  p.source,
			Why:   fmt.Sprintf("expression evaluated to non-boolean value %v (%T)", out, out),
		}
	}
	return b, nil
}

// EvalCondition compiles and evaluates source in one call; convenient for
// callers that don't need to reuse the compiled program.
func EvalCondition(source string, env map[string]any) (bool, error) {
	p, err := Compile(source)
	if err != nil {
		return false, err
	}
	return p.EvalBool(env)
}

// EvalTransform compiles and evaluates source in one call for transform
// steps, which may produce any value (map, slice, scalar).
func EvalTransform(source string, env map[string]any) (any, error) {
	p, err := Compile(source)
	if err != nil {
		return nil, err
	}
	return p.Eval(env)
}
