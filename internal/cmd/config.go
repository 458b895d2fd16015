package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sciops/benchrun/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or create benchrun configuration",
	Long: `View or create benchrun configuration.

Without arguments, displays the effective configuration after merging
defaults, benchrun.yaml, benchrun.local.yaml, environment variables and
flags.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default benchrun.yaml",
	Long:  `Write a benchrun.yaml with every option at its default value into the config directory.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file paths",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Fprintf(out, "Config file: %s\n", used)
	} else {
		fmt.Fprintln(out, "Config file: (none - using defaults)")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "directories:")
	fmt.Fprintf(out, "  data: %s\n", cfg.Directories.Data)
	fmt.Fprintf(out, "  repository: %s\n", cfg.Directories.Repository)
	fmt.Fprintf(out, "  config_library: %s\n", cfg.Directories.ConfigLibrary)
	fmt.Fprintf(out, "  temp: %s\n", cfg.Directories.Temp)
	fmt.Fprintf(out, "  create: %v\n", cfg.Directories.Create)

	fmt.Fprintln(out, "run:")
	fmt.Fprintf(out, "  debug: %v\n", cfg.Run.Debug)
	fmt.Fprintf(out, "  allow_dirty: %v\n", cfg.Run.AllowDirty)
	fmt.Fprintf(out, "  skip_hardware_validation: %v\n", cfg.Run.SkipHardwareValidation)
	fmt.Fprintf(out, "  subject: %s\n", cfg.Run.Subject)
	fmt.Fprintf(out, "  rig_path: %s\n", cfg.Run.RigPath)
	fmt.Fprintf(out, "  task_logic_path: %s\n", cfg.Run.TaskLogicPath)
	fmt.Fprintf(out, "  group_by_subject: %v\n", cfg.Run.GroupBySubject)
	fmt.Fprintf(out, "  skip_data_transfer: %v\n", cfg.Run.SkipDataTransfer)
	fmt.Fprintf(out, "  skip_data_mapping: %v\n", cfg.Run.SkipDataMapping)

	fmt.Fprintln(out, "app:")
	fmt.Fprintf(out, "  executable: %s\n", cfg.App.Executable)
	fmt.Fprintf(out, "  workflow: %s\n", cfg.App.Workflow)
	fmt.Fprintf(out, "  layout_dir: %s\n", cfg.App.LayoutDir)
	fmt.Fprintf(out, "  allow_stderr: %v\n", cfg.App.AllowStderr)
	fmt.Fprintf(out, "  timeout_minutes: %d\n", cfg.App.TimeoutMinutes)

	fmt.Fprintln(out, "transfer:")
	fmt.Fprintf(out, "  destination: %s\n", cfg.Transfer.Destination)
	fmt.Fprintf(out, "  manifest_dir: %s\n", cfg.Transfer.ManifestDir)
	fmt.Fprintf(out, "  project: %s\n", cfg.Transfer.Project)
	fmt.Fprintf(out, "  force_cloud_sync: %v\n", cfg.Transfer.ForceCloudSync)
	fmt.Fprintf(out, "  min_free_bytes: %d\n", cfg.Transfer.MinFreeBytes)

	fmt.Fprintln(out, "logging:")
	fmt.Fprintf(out, "  level: %s\n", cfg.Logging.Level)

	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	dir := configDir()
	path := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	defaults := config.Default()
	content := fmt.Sprintf(`# Benchrun configuration
# Values here are overridden by benchrun.local.yaml, BENCHRUN_* environment
# variables, and command-line flags, in that order.

directories:
  # Root directory for session data
  data: %s
  # Experiment source repository checked for cleanliness before a run
  repository: ""
  # Directory holding the Rig/, Subjects/ and TaskLogic/ pools
  config_library: %s
  # Temp workspace root (empty: system temp)
  temp: ""
  # Create missing data and config directories on startup
  create: false

run:
  debug: false
  allow_dirty: false
  skip_hardware_validation: false
  group_by_subject: false
  skip_data_transfer: false
  skip_data_mapping: false

app:
  # Acquisition app executable and the workflow file passed to it
  executable: ""
  workflow: ""
  # Directory of optional visualizer layouts
  layout_dir: ""
  allow_stderr: false
  # Hard deadline for one acquisition run; 0 disables the deadline
  timeout_minutes: 0

transfer:
  # Destination root; empty disables the post-run transfer
  destination: ""
  # Watchdog manifest directory; empty selects the direct copy service
  manifest_dir: ""
  project: ""
  force_cloud_sync: false
  # Required free space on the data drive before a run starts
  min_free_bytes: %d

logging:
  # debug, info, warn or error
  level: %s
`, defaults.Directories.Data, defaults.Directories.ConfigLibrary,
		defaults.Transfer.MinFreeBytes, defaults.Logging.Level)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", path)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	dir := configDir()
	fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(dir, config.FileName))
	fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(dir, config.LocalFileName))
	return nil
}

func configDir() string {
	dir := viper.GetString("config_dir")
	if dir == "" {
		dir = "."
	}
	return dir
}
