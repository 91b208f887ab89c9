package cmd

import (
	"context"
	"time"

	"github.com/flowcraft/workflowengine/core"
	"github.com/flowcraft/workflowengine/internal/agentclient"
	"github.com/flowcraft/workflowengine/internal/appconfig"
	"github.com/flowcraft/workflowengine/internal/engine"
	"github.com/flowcraft/workflowengine/internal/executors"
	"github.com/flowcraft/workflowengine/internal/guards"
	"github.com/flowcraft/workflowengine/internal/registry"
	"github.com/flowcraft/workflowengine/internal/uisurface"
)

// engineWiring bundles the assembled Engine with the collaborators the CLI
// needs after a run completes — today just the Remote Agent Client, whose
// LeakedSessions() feeds the trace store and `workflowctl trace` output.
type engineWiring struct {
	Engine      *engine.Engine
	AgentClient *agentclient.Client
}

// buildEngine assembles an Engine wired to every step-kind executor,
// including a ParallelExecutor whose ChildDispatcher recurses back into
// the same registry. wf supplies the set of agent names to resolve: the
// core has no agent catalog file format of its own (spec.md §1 excludes
// loading agent definitions from disk), so the CLI resolves whatever
// names the workflow itself references.
func buildEngine(cfg *appconfig.Config, wf *core.WorkflowDefinition) *engineWiring {
	reg := registry.New()

	resolver := agentclient.NewStaticResolver(agentDescriptors(wf)...)
	client := agentclient.New(cfg.Session.BaseURL, resolver, agentclient.Config{
		PollIntervalMs:           cfg.Session.PollIntervalMs,
		MaxPollDurationMs:        cfg.Session.MaxPollDurationMs,
		SessionCleanupMaxRetries: cfg.Session.SessionCleanupMaxRetries,
		CleanupRetryDelayMs:      cfg.Session.CleanupRetryDelayMs,
	})

	notifier := uisurface.NewConsoleNotifier()

	reg.Register(core.StepAgent, executors.NewAgentExecutor(client))
	reg.Register(core.StepTransform, executors.NewTransformExecutor())
	reg.Register(core.StepCondition, executors.NewConditionExecutor())
	reg.Register(core.StepApproval, executors.NewApprovalExecutor(notifier))
	reg.Register(core.StepParallel, executors.NewParallelExecutor(dispatchChild(reg)))

	customGuards := []guards.Guard{
		guards.NewMaxErrorGuard(cfg.Engine.MaxErrors),
		guards.NewCircularDependencyGuard(),
	}

	return &engineWiring{
		Engine:      engine.New(reg, customGuards, notifier, nil),
		AgentClient: client,
	}
}

// dispatchChild closes over reg so a ParallelExecutor can run a child step
// through the very same registry its siblings and the top-level driver
// loop use, without internal/executors importing internal/registry.
func dispatchChild(reg *registry.Registry) executors.ChildDispatcher {
	return func(ctx context.Context, child *core.WorkflowStep, wctx *core.WorkflowContext) core.StepResult {
		exec, ok := reg.Get(child.Kind)
		if !ok {
			err := &core.NotFoundError{Component: "executor", Name: string(child.Kind), Available: kindNames(reg), Hint: "register an executor for this step kind"}
			return core.NewFailure(child.ID, err, time.Now(), 0)
		}
		return exec.Execute(ctx, child, wctx)
	}
}

func kindNames(reg *registry.Registry) []string {
	kinds := reg.Types()
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

// agentDescriptors walks wf (including parallel children) collecting every
// distinct agent name referenced by an agent step.
func agentDescriptors(wf *core.WorkflowDefinition) []agentclient.AgentDescriptor {
	seen := map[string]bool{}
	var out []agentclient.AgentDescriptor
	var walk func([]core.WorkflowStep)
	walk = func(steps []core.WorkflowStep) {
		for _, s := range steps {
			if s.Kind == core.StepAgent && s.Agent != "" && !seen[s.Agent] {
				seen[s.Agent] = true
				out = append(out, agentclient.AgentDescriptor{Name: s.Agent})
			}
			if len(s.Steps) > 0 {
				walk(s.Steps)
			}
		}
	}
	if wf != nil {
		walk(wf.Steps)
	}
	return out
}
