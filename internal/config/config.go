// Package config loads the layered benchrun configuration. Sources
// merge in increasing priority: built-in defaults, benchrun.yaml, the
// machine-local benchrun.local.yaml, BENCHRUN_* environment variables,
// and finally explicit CLI flags bound by the cmd layer.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// File names looked up in the config directory.
const (
	FileName      = "benchrun.yaml"
	LocalFileName = "benchrun.local.yaml"

	// EnvPrefix namespaces environment overrides, e.g.
	// BENCHRUN_DIRECTORIES_DATA for directories.data.
	EnvPrefix = "BENCHRUN"
)

// Config represents the complete benchrun configuration.
type Config struct {
	Directories DirectoriesConfig `mapstructure:"directories"`
	Run         RunConfig         `mapstructure:"run"`
	App         AppConfig         `mapstructure:"app"`
	Transfer    TransferConfig    `mapstructure:"transfer"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// DirectoriesConfig controls where benchrun reads and writes.
type DirectoriesConfig struct {
	// Data is the root under which session directories are created.
	Data string `mapstructure:"data"`
	// Repository is the experiment source tree checked by the vcs guard.
	Repository string `mapstructure:"repository"`
	// ConfigLibrary holds the Rig/, Subjects/ and TaskLogic/ pools.
	ConfigLibrary string `mapstructure:"config_library"`
	// Temp overrides the temp workspace root (default: system temp).
	Temp string `mapstructure:"temp"`
	// Create bootstraps missing data/config directories instead of
	// failing validation.
	Create bool `mapstructure:"create"`
}

// RunConfig controls one run's behavior.
type RunConfig struct {
	// Debug enables debug logging and the environment diagnosis dump.
	Debug bool `mapstructure:"debug"`
	// AllowDirty tolerates an unclean repository; the dirty flag is
	// recorded as session provenance.
	AllowDirty bool `mapstructure:"allow_dirty"`
	// SkipHardwareValidation is forwarded into the session record.
	SkipHardwareValidation bool `mapstructure:"skip_hardware_validation"`
	// Subject, RigPath and TaskLogicPath short-circuit the picker.
	Subject       string `mapstructure:"subject"`
	RigPath       string `mapstructure:"rig_path"`
	TaskLogicPath string `mapstructure:"task_logic_path"`
	// GroupBySubject nests session directories under the subject.
	GroupBySubject bool `mapstructure:"group_by_subject"`
	// SkipDataTransfer and SkipDataMapping disable the corresponding
	// post-run steps.
	SkipDataTransfer bool `mapstructure:"skip_data_transfer"`
	SkipDataMapping  bool `mapstructure:"skip_data_mapping"`
}

// AppConfig controls the external app adapter.
type AppConfig struct {
	// Executable is the process the run hook launches.
	Executable string `mapstructure:"executable"`
	// Workflow is the workflow file handed to the executable.
	Workflow string `mapstructure:"workflow"`
	// LayoutDir holds optional visualizer layouts.
	LayoutDir string `mapstructure:"layout_dir"`
	// AllowStderr accepts stderr output from a zero-exit run.
	AllowStderr bool `mapstructure:"allow_stderr"`
	// TimeoutMinutes bounds the process runtime (0 = unbounded).
	TimeoutMinutes int `mapstructure:"timeout_minutes"`
}

// TransferConfig controls the post-run data transfer.
type TransferConfig struct {
	// Destination is the remote root the session is mirrored or queued
	// to. Empty disables transfer.
	Destination string `mapstructure:"destination"`
	// ManifestDir switches to the watchdog strategy: a manifest is
	// queued there for the external transfer daemon.
	ManifestDir string `mapstructure:"manifest_dir"`
	// Project and ExtraInfo are opaque pass-through manifest fields.
	Project   string            `mapstructure:"project"`
	ExtraInfo map[string]string `mapstructure:"extra_info"`
	// ForceCloudSync is forwarded to the transfer daemon.
	ForceCloudSync bool `mapstructure:"force_cloud_sync"`
	// MinFreeBytes is the storage constraint threshold for the data
	// drive.
	MinFreeBytes uint64 `mapstructure:"min_free_bytes"`
}

// LoggingConfig controls the run log.
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Directories: DirectoriesConfig{
			Data:          "data",
			ConfigLibrary: "config-library",
		},
		App: AppConfig{
			AllowStderr: false,
		},
		Transfer: TransferConfig{
			MinFreeBytes: 2e11, // 200 GB headroom on the data drive
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// SetDefaults registers default values with the given viper instance.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("directories.data", defaults.Directories.Data)
	v.SetDefault("directories.repository", defaults.Directories.Repository)
	v.SetDefault("directories.config_library", defaults.Directories.ConfigLibrary)
	v.SetDefault("directories.temp", defaults.Directories.Temp)
	v.SetDefault("directories.create", defaults.Directories.Create)

	v.SetDefault("run.debug", defaults.Run.Debug)
	v.SetDefault("run.allow_dirty", defaults.Run.AllowDirty)
	v.SetDefault("run.skip_hardware_validation", defaults.Run.SkipHardwareValidation)
	v.SetDefault("run.subject", defaults.Run.Subject)
	v.SetDefault("run.rig_path", defaults.Run.RigPath)
	v.SetDefault("run.task_logic_path", defaults.Run.TaskLogicPath)
	v.SetDefault("run.group_by_subject", defaults.Run.GroupBySubject)
	v.SetDefault("run.skip_data_transfer", defaults.Run.SkipDataTransfer)
	v.SetDefault("run.skip_data_mapping", defaults.Run.SkipDataMapping)

	v.SetDefault("app.executable", defaults.App.Executable)
	v.SetDefault("app.workflow", defaults.App.Workflow)
	v.SetDefault("app.layout_dir", defaults.App.LayoutDir)
	v.SetDefault("app.allow_stderr", defaults.App.AllowStderr)
	v.SetDefault("app.timeout_minutes", defaults.App.TimeoutMinutes)

	v.SetDefault("transfer.destination", defaults.Transfer.Destination)
	v.SetDefault("transfer.manifest_dir", defaults.Transfer.ManifestDir)
	v.SetDefault("transfer.project", defaults.Transfer.Project)
	v.SetDefault("transfer.force_cloud_sync", defaults.Transfer.ForceCloudSync)
	v.SetDefault("transfer.min_free_bytes", defaults.Transfer.MinFreeBytes)

	v.SetDefault("logging.level", defaults.Logging.Level)
}

// Setup wires the full merge order into v: defaults, benchrun.yaml and
// benchrun.local.yaml from dir, then BENCHRUN_* environment variables.
// Missing config files are not an error. Flag bindings added by the
// caller afterwards take the highest priority.
func Setup(v *viper.Viper, dir string) error {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, name := range []string{FileName, LocalFileName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return err
		}
	}
	return nil
}

// Load reads the merged configuration from v into a Config and
// validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}
