package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowcraft/workflowengine/core"
	"github.com/flowcraft/workflowengine/internal/appconfig"
)

func TestBuildEngine_RegistersEveryStepKind(t *testing.T) {
	wf := &core.WorkflowDefinition{
		ID: "wf-1",
		Steps: []core.WorkflowStep{
			{ID: "a", Kind: core.StepAgent, Agent: "summarizer"},
			{
				ID: "p", Kind: core.StepParallel,
				Steps: []core.WorkflowStep{
					{ID: "p1", Kind: core.StepAgent, Agent: "reviewer"},
				},
			},
		},
	}

	wiring := buildEngine(appconfig.Default(), wf)

	for _, kind := range []core.StepKind{core.StepAgent, core.StepTransform, core.StepCondition, core.StepApproval, core.StepParallel} {
		_, ok := wiring.Engine.Registry.Get(kind)
		assert.True(t, ok, "expected an executor registered for %s", kind)
	}
	assert.Len(t, wiring.Engine.Guards, 2)
	assert.NotNil(t, wiring.AgentClient)
	assert.Empty(t, wiring.AgentClient.LeakedSessions())
}

func TestAgentDescriptors_CollectsNestedAndDedupes(t *testing.T) {
	wf := &core.WorkflowDefinition{
		Steps: []core.WorkflowStep{
			{ID: "a", Kind: core.StepAgent, Agent: "summarizer"},
			{
				ID: "p", Kind: core.StepParallel,
				Steps: []core.WorkflowStep{
					{ID: "p1", Kind: core.StepAgent, Agent: "reviewer"},
					{ID: "p2", Kind: core.StepAgent, Agent: "summarizer"},
				},
			},
		},
	}

	descs := agentDescriptors(wf)

	names := make([]string, len(descs))
	for i, d := range descs {
		names[i] = d.Name
	}
	assert.ElementsMatch(t, []string{"summarizer", "reviewer"}, names)
}
