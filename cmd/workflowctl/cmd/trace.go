package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var traceLimit int

var traceCmd = &cobra.Command{
	Use:   "trace <workflow-id>",
	Short: "Show recent run history and leaked agent sessions",
	Long: `Trace surfaces what internal/tracestore has recorded: recent run
summaries for a workflow id, and any agent sessions the Remote Agent
Client observed but could not clean up.

This only shows history if --config points at a trace_store backend =
"postgres" entry — the default in-memory store never outlives the process
that ran the workflow.

Examples:
  workflowctl trace order-fulfillment --config prod.toml`,
	Args: cobra.ExactArgs(1),
	RunE: runTraceCommand,
}

func init() {
	rootCmd.AddCommand(traceCmd)
	traceCmd.Flags().IntVar(&traceLimit, "limit", 20, "maximum number of runs to show")
}

func runTraceCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store := buildTraceStore(cfg)
	if closer, ok := store.(interface{ Close() }); ok {
		defer closer.Close()
	}

	ctx := context.Background()
	runs, err := store.RecentRuns(ctx, args[0], traceLimit)
	if err != nil {
		return fmt.Errorf("workflowctl: failed to read run history: %w", err)
	}
	if len(runs) == 0 {
		fmt.Printf("no recorded runs for workflow %q\n", args[0])
	}
	for _, r := range runs {
		status := "SUCCESS"
		if !r.Success {
			status = "FAILED"
		}
		fmt.Printf("%s  %s  %dms  (%d trace entries)\n", r.RanAt.Format("2006-01-02T15:04:05"), status, r.DurationMs, len(r.Trace))
	}

	leaked, err := store.LeakedSessions(ctx)
	if err != nil {
		return fmt.Errorf("workflowctl: failed to read leaked sessions: %w", err)
	}
	if len(leaked) > 0 {
		fmt.Printf("\n%d leaked session(s):\n", len(leaked))
		for _, ls := range leaked {
			fmt.Printf("  session=%s agent=%s step=%s error=%s observed=%s\n",
				ls.SessionID, ls.AgentName, ls.StepID, ls.LastError, ls.ObservedAt.Format("2006-01-02T15:04:05"))
		}
	}
	return nil
}
