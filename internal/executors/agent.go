package executors

import (
	"context"

	"github.com/flowcraft/workflowengine/core"
)

// AgentRunner is the subset of *agentclient.Client the Agent Step Executor
// needs — kept as an interface so this package has no import-time
// dependency on the HTTP transport, and so tests can substitute a stub.
type AgentRunner interface {
	RunAgent(ctx context.Context, stepID, agentName string, agentInput map[string]any) (any, error)
}

// AgentExecutor implements registry.Executor for kind "agent" (§4.4.1):
// builds the agent input object from the workflow input, the successful
// prior-step context, and step.input's explicit back-reference, then
// delegates to the Remote Agent Client.
type AgentExecutor struct {
	Runner AgentRunner
}

func NewAgentExecutor(runner AgentRunner) *AgentExecutor {
	return &AgentExecutor{Runner: runner}
}

func (e *AgentExecutor) Execute(ctx context.Context, step *core.WorkflowStep, wctx *core.WorkflowContext) core.StepResult {
	return RunWithRetry(ctx, step, func(attemptCtx context.Context) (any, error) {
		contextData := wctx.BuildContextObject()
		agentInput := map[string]any{
			"input":   wctx.Input(),
			"context": contextData,
		}
		// step.Input is the explicit back-reference to a prior step id
		// (§4.4.1); its data is surfaced under its own sibling top-level key,
		// not just nested inside context, so the agent can address it
		// directly without walking the whole context map.
		if step.Input != "" {
			if data, ok := wctx.GetValue(step.Input); ok {
				agentInput[step.Input] = data
			}
		}

		data, err := e.Runner.RunAgent(attemptCtx, step.ID, step.Agent, agentInput)
		if err != nil {
			return nil, &core.AgentError{
				StepID:    step.ID,
				AgentName: step.Agent,
				Message:   err.Error(),
				InputKeys: keysOf(agentInput),
			}
		}
		return data, nil
	})
}

func (e *AgentExecutor) Route(step *core.WorkflowStep, result core.StepResult, _ *core.WorkflowContext) (string, bool) {
	return DefaultRoute(step, result)
}

func keysOf(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
