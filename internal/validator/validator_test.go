package validator

import (
	"testing"

	"github.com/flowcraft/workflowengine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_HappyPath(t *testing.T) {
	wf := &core.WorkflowDefinition{
		ID: "simple",
		Steps: []core.WorkflowStep{
			{ID: "plan", Kind: core.StepAgent, Agent: "plan", Next: "code", OnError: "rescue"},
			{ID: "code", Kind: core.StepAgent, Agent: "code", Input: "plan", OnError: "rescue"},
			{ID: "rescue", Kind: core.StepAgent, Agent: "rescue"},
		},
	}
	result := Validate(wf)
	require.True(t, result.Valid, "%+v", result.Errors)
}

func TestValidate_DuplicateStepIDs(t *testing.T) {
	wf := &core.WorkflowDefinition{
		Steps: []core.WorkflowStep{
			{ID: "a", Kind: core.StepAgent, Agent: "x"},
			{ID: "a", Kind: core.StepAgent, Agent: "y"},
		},
	}
	result := Validate(wf)
	assert.False(t, result.Valid)
}

func TestValidate_DuplicateAcrossParallelChildren(t *testing.T) {
	wf := &core.WorkflowDefinition{
		Steps: []core.WorkflowStep{
			{ID: "a", Kind: core.StepAgent, Agent: "x"},
			{ID: "p", Kind: core.StepParallel, Steps: []core.WorkflowStep{
				{ID: "a", Kind: core.StepAgent, Agent: "z"},
			}},
		},
	}
	result := Validate(wf)
	assert.False(t, result.Valid)
}

func TestValidate_MissingRequiredField(t *testing.T) {
	wf := &core.WorkflowDefinition{
		Steps: []core.WorkflowStep{
			{ID: "a", Kind: core.StepAgent},
		},
	}
	result := Validate(wf)
	require.False(t, result.Valid)
	assert.Equal(t, KindMissingField, result.Errors[0].Kind)
}

func TestValidate_UnresolvedReference(t *testing.T) {
	wf := &core.WorkflowDefinition{
		Steps: []core.WorkflowStep{
			{ID: "a", Kind: core.StepAgent, Agent: "x", Next: "ghost"},
		},
	}
	result := Validate(wf)
	require.False(t, result.Valid)
	assert.Equal(t, KindInvalidReference, result.Errors[0].Kind)
}

func TestValidate_MinSuccessExceedsChildCount(t *testing.T) {
	minSuccess := 3
	wf := &core.WorkflowDefinition{
		Steps: []core.WorkflowStep{
			{ID: "p", Kind: core.StepParallel, MinSuccess: &minSuccess, Steps: []core.WorkflowStep{
				{ID: "a", Kind: core.StepAgent, Agent: "x"},
				{ID: "b", Kind: core.StepAgent, Agent: "y"},
			}},
		},
	}
	result := Validate(wf)
	require.False(t, result.Valid)
	assert.Equal(t, KindInvalidValue, result.Errors[0].Kind)
}

func TestValidate_ForbiddenTransformToken(t *testing.T) {
	wf := &core.WorkflowDefinition{
		Steps: []core.WorkflowStep{
			{ID: "t", Kind: core.StepTransform, Transform: "input.__proto__"},
		},
	}
	result := Validate(wf)
	require.False(t, result.Valid)
	assert.Equal(t, KindInvalidValue, result.Errors[0].Kind)
}

func TestValidate_UnreachableStepWarns(t *testing.T) {
	wf := &core.WorkflowDefinition{
		Steps: []core.WorkflowStep{
			{ID: "a", Kind: core.StepAgent, Agent: "x", OnError: "h"},
			{ID: "h", Kind: core.StepAgent, Agent: "rescue"},
			{ID: "orphan", Kind: core.StepAgent, Agent: "z", OnError: "h"},
		},
	}
	result := Validate(wf)
	require.True(t, result.Valid)
	var found bool
	for _, w := range result.Warnings {
		if w.Kind == KindUnusedStep && w.StepID == "orphan" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidate_MissingErrorHandlerWarns(t *testing.T) {
	wf := &core.WorkflowDefinition{
		Steps: []core.WorkflowStep{
			{ID: "a", Kind: core.StepAgent, Agent: "x"},
		},
	}
	result := Validate(wf)
	require.True(t, result.Valid)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, KindMissingErrorHandler, result.Warnings[0].Kind)
}

func TestValidate_SelfLoopWarnsButStaysValid(t *testing.T) {
	maxIter := 5
	wf := &core.WorkflowDefinition{
		MaxIterations: &maxIter,
		Steps: []core.WorkflowStep{
			{ID: "x", Kind: core.StepAgent, Agent: "x", Next: "x"},
		},
	}
	result := Validate(wf)
	require.True(t, result.Valid, "%+v", result.Errors)

	var found bool
	for _, w := range result.Warnings {
		if w.Kind == KindCircularDependency && w.StepID == "x" {
			found = true
		}
	}
	assert.True(t, found, "expected a circular_dependency warning for step x, got %+v", result.Warnings)
}

func TestValidate_MultiStepCycleWarnsOnce(t *testing.T) {
	wf := &core.WorkflowDefinition{
		Steps: []core.WorkflowStep{
			{ID: "a", Kind: core.StepAgent, Agent: "a", Next: "b"},
			{ID: "b", Kind: core.StepAgent, Agent: "b", Next: "a"},
		},
	}
	result := Validate(wf)
	require.True(t, result.Valid, "%+v", result.Errors)

	count := 0
	for _, w := range result.Warnings {
		if w.Kind == KindCircularDependency {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestValidate_AcyclicWorkflowHasNoCircularDependencyWarning(t *testing.T) {
	wf := &core.WorkflowDefinition{
		Steps: []core.WorkflowStep{
			{ID: "plan", Kind: core.StepAgent, Agent: "plan", Next: "code", OnError: "rescue"},
			{ID: "code", Kind: core.StepAgent, Agent: "code", Input: "plan", OnError: "rescue"},
			{ID: "rescue", Kind: core.StepAgent, Agent: "rescue"},
		},
	}
	result := Validate(wf)
	for _, w := range result.Warnings {
		assert.NotEqual(t, KindCircularDependency, w.Kind)
	}
}

func TestEntryStep_FallsBackToDefinitionOrderWhenAllReferenced(t *testing.T) {
	wf := &core.WorkflowDefinition{
		Steps: []core.WorkflowStep{
			{ID: "x", Kind: core.StepAgent, Agent: "x", Next: "x"},
		},
	}
	entry := EntryStep(wf)
	require.NotNil(t, entry)
	assert.Equal(t, "x", entry.ID)
}

func TestEntryStep_FindsUnreferencedStep(t *testing.T) {
	wf := &core.WorkflowDefinition{
		Steps: []core.WorkflowStep{
			{ID: "b", Kind: core.StepAgent, Agent: "x"},
			{ID: "a", Kind: core.StepAgent, Agent: "y", Next: "b"},
		},
	}
	entry := EntryStep(wf)
	require.NotNil(t, entry)
	assert.Equal(t, "a", entry.ID)
}
