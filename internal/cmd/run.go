package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sciops/benchrun/internal/app"
	"github.com/sciops/benchrun/internal/config"
	"github.com/sciops/benchrun/internal/datamapper"
	"github.com/sciops/benchrun/internal/launcher"
	"github.com/sciops/benchrun/internal/picker"
	"github.com/sciops/benchrun/internal/resource"
	"github.com/sciops/benchrun/internal/schema"
	"github.com/sciops/benchrun/internal/services"
	"github.com/sciops/benchrun/internal/transfer"
	"github.com/sciops/benchrun/internal/ux"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one experiment run",
	Long: `Run validates the environment, resolves the rig, session and task
logic configuration, launches the acquisition app, and performs the
post-run data mapping and transfer. Exit code 0 means clean disposal;
any fatal failure or operator interrupt exits 1.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

// flagBindings maps run flags onto their config keys; a flag the
// operator sets wins over files and environment.
var flagBindings = map[string]string{
	"data-dir":                 "directories.data",
	"repository-dir":           "directories.repository",
	"config-library-dir":       "directories.config_library",
	"temp-dir":                 "directories.temp",
	"create-directories":       "directories.create",
	"debug":                    "run.debug",
	"allow-dirty":              "run.allow_dirty",
	"skip-hardware-validation": "run.skip_hardware_validation",
	"subject":                  "run.subject",
	"rig-path":                 "run.rig_path",
	"task-logic-path":          "run.task_logic_path",
	"group-by-subject":         "run.group_by_subject",
	"skip-data-transfer":       "run.skip_data_transfer",
	"skip-data-mapping":        "run.skip_data_mapping",
	"executable":               "app.executable",
	"workflow":                 "app.workflow",
	"layout-dir":               "app.layout_dir",
	"allow-stderr":             "app.allow_stderr",
}

func init() {
	rootCmd.AddCommand(runCmd)

	flags := runCmd.Flags()
	flags.String("data-dir", "", "root directory for session data")
	flags.String("repository-dir", "", "experiment source repository checked for cleanliness")
	flags.String("config-library-dir", "", "directory holding the Rig/, Subjects/ and TaskLogic/ pools")
	flags.String("temp-dir", "", "temp workspace root (default: system temp)")
	flags.Bool("create-directories", false, "create missing data and config directories")
	flags.Bool("debug", false, "debug logging and environment diagnosis")
	flags.Bool("allow-dirty", false, "tolerate an unclean repository")
	flags.Bool("skip-hardware-validation", false, "skip hardware validation in the session record")
	flags.String("subject", "", "subject override, skips the subject prompt")
	flags.String("rig-path", "", "rig configuration file, skips the rig prompt")
	flags.String("task-logic-path", "", "task logic configuration file, skips the task prompt")
	flags.Bool("group-by-subject", false, "nest session directories under the subject")
	flags.Bool("skip-data-transfer", false, "skip the post-run data transfer")
	flags.Bool("skip-data-mapping", false, "skip the post-run data mapping")
	flags.String("executable", "", "acquisition app executable")
	flags.String("workflow", "", "workflow file passed to the executable")
	flags.String("layout-dir", "", "directory of optional visualizer layouts")
	flags.Bool("allow-stderr", false, "accept stderr output from a zero-exit run")

	for flag, key := range flagBindings {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	settings := launcher.Settings{
		DataDir:           cfg.Directories.Data,
		RepositoryDir:     cfg.Directories.Repository,
		ConfigLibraryDir:  cfg.Directories.ConfigLibrary,
		TempRoot:          cfg.Directories.Temp,
		VisualizerLayout:  cfg.App.LayoutDir,
		LogLevel:          cfg.Logging.Level,
		Debug:             cfg.Run.Debug,
		AllowDirty:        cfg.Run.AllowDirty,
		SkipHardwareCheck: cfg.Run.SkipHardwareValidation,
		CreateDirectories: cfg.Directories.Create,
		GroupBySubject:    cfg.Run.GroupBySubject,
		SkipDataTransfer:  cfg.Run.SkipDataTransfer,
		SkipDataMapping:   cfg.Run.SkipDataMapping,
		AllowStderr:       cfg.App.AllowStderr,
	}

	prompter := ux.NewTerminal()
	manager := services.NewManager()

	pick := picker.NewDirectoryPicker(cfg.Directories.ConfigLibrary, cfg.Directories.Data, picker.Overrides{
		Subject:       cfg.Run.Subject,
		RigPath:       cfg.Run.RigPath,
		TaskLogicPath: cfg.Run.TaskLogicPath,
	}, nil)

	l, err := launcher.New[schema.RigConfig, schema.SessionConfig, schema.TaskLogicConfig](
		settings, manager, pick, prompter)
	if err != nil {
		return err
	}

	if err := attachServices(manager, l, cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	outcome := l.Execute(ctx)
	if !outcome.Ok() {
		return fmt.Errorf("run failed: %w", outcome.Err)
	}
	return nil
}

// attachServices registers the app adapter and the optional services
// against the launcher-bound manager. Deferred constructors close over
// the launcher so they see the resolved session.
func attachServices(manager *services.Manager, l *launcher.Default, cfg *config.Config) error {
	appOpts := []app.Option{app.WithLogger(l.Log())}
	if cfg.App.LayoutDir != "" {
		appOpts = append(appOpts, app.WithLayoutDir(cfg.App.LayoutDir))
	}
	if cfg.App.TimeoutMinutes > 0 {
		appOpts = append(appOpts, app.WithTimeout(time.Duration(cfg.App.TimeoutMinutes)*time.Minute))
	}
	adapter := app.NewWorkflowApp(cfg.App.Executable, cfg.App.Workflow, appOpts...)
	if err := manager.AttachService(services.NameApp, adapter); err != nil {
		return err
	}

	err := manager.AttachConstructor(services.NameDataMapper, func(owner services.Owner) (services.Service, error) {
		dir, err := owner.SessionDirectory()
		if err != nil {
			return nil, err
		}
		return datamapper.NewSessionSummaryMapper(l.Rig(), l.Session(), l.TaskLogic(), dir), nil
	})
	if err != nil {
		return err
	}

	if cfg.Transfer.Destination != "" {
		err := manager.AttachConstructor(services.NameDataTransfer, func(owner services.Owner) (services.Service, error) {
			dir, err := owner.SessionDirectory()
			if err != nil {
				return nil, err
			}
			if cfg.Transfer.ManifestDir != "" {
				svc := transfer.NewWatchdogService(cfg.Transfer.ManifestDir, dir, cfg.Transfer.Destination, owner.Log())
				svc.Project = cfg.Transfer.Project
				svc.ExtraInfo = cfg.Transfer.ExtraInfo
				svc.ForceCloudSync = cfg.Transfer.ForceCloudSync
				return svc, nil
			}
			remote := filepath.Join(cfg.Transfer.Destination, filepath.Base(dir))
			return transfer.NewCopyService(dir, remote, owner.Log()), nil
		})
		if err != nil {
			return err
		}
	}

	monitor := resource.NewMonitor(l.Log(),
		resource.AvailableStorage(cfg.Directories.Data, cfg.Transfer.MinFreeBytes))
	if cfg.Transfer.Destination != "" && cfg.Transfer.ManifestDir == "" {
		monitor.Add(resource.RemoteDirExists(cfg.Transfer.Destination, 5*time.Second))
	}
	return manager.AttachService(services.NameResourceMonitor, monitor)
}
