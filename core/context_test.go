package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddResult_ImmutableAndSized(t *testing.T) {
	ctx1 := NewContext("wf-1", "input")
	require.Equal(t, 0, ctx1.ResultCount())

	data := map[string]any{"value": 1}
	result := NewSuccess("step-a", data, ctx1.StartTime(), 0)

	ctx2 := ctx1.AddResult("step-a", result)

	assert.Equal(t, 0, ctx1.ResultCount(), "original context must be untouched")
	assert.Equal(t, 1, ctx2.ResultCount())

	got, ok := ctx2.GetResult("step-a")
	require.True(t, ok)
	assert.Equal(t, result.StepID, got.StepID)
	assert.Equal(t, result.Success, got.Success)

	// Mutating the caller's data after insertion must not change the store.
	data["value"] = 999
	got2, _ := ctx2.GetResult("step-a")
	gotMap := got2.Data.(map[string]any)
	assert.EqualValues(t, 1, gotMap["value"])
}

func TestAddResult_StructurallyEqualNotReferenceEqual(t *testing.T) {
	ctx := NewContext("wf-1", nil)
	original := map[string]any{"a": 1}
	result := NewSuccess("s", original, ctx.StartTime(), 0)
	ctx2 := ctx.AddResult("s", result)

	got, ok := ctx2.GetResult("s")
	require.True(t, ok)
	gotMap, ok := got.Data.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, original["a"], gotMap["a"])

	// Different underlying map instance.
	gotMap["a"] = 2
	assert.EqualValues(t, 1, original["a"])
}

func TestIncrementIteration_MonotonicAndDoesNotMutateParent(t *testing.T) {
	ctx := NewContext("wf-1", nil)
	ctx2 := ctx.IncrementIteration()
	ctx3 := ctx2.IncrementIteration()

	assert.Equal(t, 0, ctx.IterationCount())
	assert.Equal(t, 1, ctx2.IterationCount())
	assert.Equal(t, 2, ctx3.IterationCount())
}

func TestAddResult_PreviousStepsAppendOnly(t *testing.T) {
	ctx := NewContext("wf-1", nil)
	ctx = ctx.AddResult("a", NewSuccess("a", nil, ctx.StartTime(), 0))
	ctx = ctx.AddResult("b", NewSuccess("b", nil, ctx.StartTime(), 0))

	assert.Equal(t, []string{"a", "b"}, ctx.PreviousSteps())
	assert.Equal(t, "b", ctx.CurrentStep())
}

func TestPrune_KeepsMostRecentAndIsIdempotent(t *testing.T) {
	ctx := NewContext("wf-1", nil)
	for _, id := range []string{"a", "b", "c", "d"} {
		ctx = ctx.AddResult(id, NewSuccess(id, id, ctx.StartTime(), 0))
	}

	pruned := ctx.Prune(2)
	_, hasA := pruned.GetResult("a")
	_, hasC := pruned.GetResult("c")
	_, hasD := pruned.GetResult("d")
	assert.False(t, hasA)
	assert.True(t, hasC)
	assert.True(t, hasD)
	assert.Equal(t, 2, pruned.ResultCount())

	prunedAgain := pruned.Prune(2)
	assert.Equal(t, pruned.ResultCount(), prunedAgain.ResultCount())
	_, stillHasC := prunedAgain.GetResult("c")
	assert.True(t, stillHasC)
}

func TestBuildContextObject_OnlyIncludesSuccessful(t *testing.T) {
	ctx := NewContext("wf-1", nil)
	ctx = ctx.AddResult("ok", NewSuccess("ok", "value", ctx.StartTime(), 0))
	ctx = ctx.AddResult("fail", NewFailure("fail", assertErr{}, ctx.StartTime(), 1))

	obj := ctx.BuildContextObject()
	assert.Contains(t, obj, "ok")
	assert.NotContains(t, obj, "fail")
}

func TestGetValue_DottedPath(t *testing.T) {
	ctx := NewContext("wf-1", nil)
	ctx = ctx.AddResult("test", NewSuccess("test", map[string]any{"passed": true}, ctx.StartTime(), 0))

	v, ok := ctx.GetValue("test.passed")
	require.True(t, ok)
	assert.Equal(t, true, v)

	_, ok = ctx.GetValue("test.missing")
	assert.False(t, ok)

	_, ok = ctx.GetValue("missing.field")
	assert.False(t, ok)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
