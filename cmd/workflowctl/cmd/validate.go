package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowcraft/workflowengine/internal/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate <workflow-file.json>",
	Short: "Lint a workflow definition without running it",
	Long: `Validate performs the same structural checks the engine runs before
executing a workflow — id/reference uniqueness, reachability, required
fields per step kind, and expression-shape checks — without dispatching
any step.

Examples:
  workflowctl validate order-fulfillment.json`,
	Args: cobra.ExactArgs(1),
	RunE: runValidateCommand,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidateCommand(cmd *cobra.Command, args []string) error {
	wf, err := loadWorkflowFile(args[0])
	if err != nil {
		return err
	}

	result := validator.Validate(wf)

	for _, f := range result.Errors {
		fmt.Printf("ERROR [%s] %s: %s\n", f.Kind, f.StepID, f.Message)
	}
	for _, f := range result.Warnings {
		fmt.Printf("WARN  [%s] %s: %s\n", f.Kind, f.StepID, f.Message)
	}

	if result.Valid {
		fmt.Printf("workflow %q is valid (%d warning(s))\n", wf.ID, len(result.Warnings))
		return nil
	}

	fmt.Printf("workflow %q failed validation: %d error(s)\n", wf.ID, len(result.Errors))
	os.Exit(1)
	return nil
}
