// Package cmd wires the CLI surface: the cobra command tree, the viper
// configuration layering, and the translation of a run's outcome into
// the process exit code.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sciops/benchrun/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "benchrun",
	Short: "Behavior experiment run orchestrator",
	Long: `Benchrun drives one behavior-experiment run end to end: it validates
the environment (repository cleanliness, services, resource constraints),
resolves the rig, session and task-logic configuration, executes the
external acquisition app, and maps and transfers the session data.`,

	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config-dir", ".", "directory holding benchrun.yaml and benchrun.local.yaml")
	_ = viper.BindPFlag("config_dir", rootCmd.PersistentFlags().Lookup("config-dir"))
}

func initConfig() {
	dir := viper.GetString("config_dir")
	if dir == "" {
		dir = "."
	}
	// Missing config files are fine; defaults and env still apply.
	_ = config.Setup(viper.GetViper(), dir)
}
