package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowcraft/workflowengine/core"
	"github.com/flowcraft/workflowengine/internal/appconfig"
	"github.com/flowcraft/workflowengine/internal/tracestore"
	"github.com/flowcraft/workflowengine/internal/xlog"
)

var (
	runInputJSON string
	runLogLevel  string
)

var runCmd = &cobra.Command{
	Use:   "run <workflow-file.json>",
	Short: "Execute a workflow definition against an input",
	Long: `Load a workflow definition from a JSON file and execute it end to end.

Examples:
  workflowctl run order-fulfillment.json
  workflowctl run order-fulfillment.json --input '{"order_id":"o-123"}'`,
	Args: cobra.ExactArgs(1),
	RunE: runRunCommand,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runInputJSON, "input", "{}", "JSON-encoded initial input passed to the entry step")
	runCmd.Flags().StringVar(&runLogLevel, "log-level", "", "override the configured logging level (debug, info, warn, error)")
}

func runRunCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runLogLevel != "" {
		cfg.Logging.Level = runLogLevel
	}
	if lvl, err := xlog.ParseLevel(cfg.Logging.Level); err == nil {
		xlog.SetLevel(lvl)
	}

	wf, err := loadWorkflowFile(args[0])
	if err != nil {
		return err
	}
	applyEngineDefaults(cfg, wf)

	var input any
	if err := json.Unmarshal([]byte(runInputJSON), &input); err != nil {
		return fmt.Errorf("workflowctl: --input is not valid JSON: %w", err)
	}

	wiring := buildEngine(cfg, wf)
	result := wiring.Engine.Execute(context.Background(), wf, input)

	store := buildTraceStore(cfg)
	_ = store.RecordRun(context.Background(), wf.ID, result, wiring.AgentClient.LeakedSessions())

	printRunResult(wf.ID, result)

	if !result.Success {
		os.Exit(1)
	}
	return nil
}

func printRunResult(workflowID string, result *core.WorkflowResult) {
	status := "SUCCESS"
	if !result.Success {
		status = "FAILED"
	}
	fmt.Printf("workflow %q: %s (%s)\n", workflowID, status, result.Duration)
	if result.ErrorText != "" {
		fmt.Printf("error: %s\n", result.ErrorText)
	}
	if result.Context != nil {
		out, err := json.MarshalIndent(result.Context.BuildContextObject(), "", "  ")
		if err == nil {
			fmt.Println(string(out))
		}
	}
}

// applyEngineDefaults fills in the workflow's own execution-limit fields
// from the process config when the definition leaves them unset, so a
// deployment can tune limits centrally instead of editing every workflow
// file (the per-workflow fields still win whenever the author sets them).
func applyEngineDefaults(cfg *appconfig.Config, wf *core.WorkflowDefinition) {
	if wf.MaxIterations == nil {
		wf.MaxIterations = &cfg.Engine.MaxIterations
	}
	if wf.MaxDurationMs == nil {
		wf.MaxDurationMs = &cfg.Engine.MaxDurationMs
	}
	if wf.MaxContextSize == nil {
		wf.MaxContextSize = &cfg.Engine.MaxContextSize
	}
}

func loadWorkflowFile(path string) (*core.WorkflowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("workflowctl: failed to read %s: %w", path, err)
	}
	var wf core.WorkflowDefinition
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("workflowctl: failed to parse workflow definition: %w", err)
	}
	return &wf, nil
}

func buildTraceStore(cfg *appconfig.Config) tracestore.Store {
	if cfg.TraceStore.Backend == "postgres" && cfg.TraceStore.DSN != "" {
		if store, err := tracestore.OpenPostgresStore(context.Background(), cfg.TraceStore.DSN); err == nil {
			return store
		}
		xlog.Get().Warn().Msg("failed to open postgres trace store, falling back to in-memory")
	}
	return tracestore.NewMemoryStore()
}
