package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/flowcraft/workflowengine/internal/appconfig"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "workflowctl",
	Short: "workflowctl - run and inspect declarative multi-agent workflows",
	Long: `workflowctl drives the declarative multi-agent workflow engine end to end.

RUNNING WORKFLOWS
  run         Execute a workflow definition against an input
  validate    Lint a workflow definition without running it

INSPECTION
  trace       Show recent run history and leaked agent sessions

UTILITIES
  version     Show version information

For detailed help on any command, use: workflowctl <command> --help`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a workflowctl TOML config file (defaults applied if omitted)")
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads --config if set, otherwise falls back to built-in
// defaults (appconfig.Default()).
func loadConfig() (*appconfig.Config, error) {
	if configPath == "" {
		return appconfig.Default(), nil
	}
	return appconfig.Load(configPath)
}
