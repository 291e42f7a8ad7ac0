package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"autoresponder/internal/config"
	"autoresponder/internal/installer"
	"autoresponder/internal/logger"
	"autoresponder/internal/supervisor"
)

// defaultConfigName is looked up in the base directory when --config is
// not given. Its absence is not an error.
const defaultConfigName = "responderctl.json"

// app carries flag values and the loaded configuration between the root
// pre-run hook and the subcommands.
type app struct {
	baseDir    string
	configPath string
	verbose    bool

	cfg *config.Config

	newSupervisor func(cfg *config.Config) supervisor.Supervisor
}

func newApp() *app {
	return &app{
		newSupervisor: func(cfg *config.Config) supervisor.Supervisor {
			return supervisor.NewLaunchctl(cfg.SupervisorTimeout)
		},
	}
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "responderctl",
		Short: "Install and manage the auto-responder background service",
		Long: `responderctl registers the auto-responder worker with launchd so it
starts at login and is restarted whenever it exits.

Run the setup step first so the project's dependency environment exists,
then run "responderctl install" from the project directory.`,
		SilenceUsage:      true,
		Version:           version,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			logger.Close()
		},
	}
	cmd.SetVersionTemplate(`{{printf "responderctl version %s\n" .Version}}`)

	cmd.PersistentFlags().StringVar(&a.baseDir, "base", "", "project directory (default is the directory holding this binary)")
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default is "+defaultConfigName+" in the project directory)")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newPrecheckCmd(a))
	cmd.AddCommand(newInstallCmd(a))
	cmd.AddCommand(newUninstallCmd(a))
	cmd.AddCommand(newStatusCmd(a))
	cmd.AddCommand(newLogsCmd(a))
	cmd.AddCommand(newPrintDescriptorCmd(a))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// setup resolves the project directory, loads configuration and starts
// logging. Every subcommand depends on it.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	base := a.baseDir
	if base == "" {
		dir, err := config.ExecutableDir()
		if err != nil {
			return err
		}
		base = dir
	}
	base, err := filepath.Abs(config.ExpandHome(base))
	if err != nil {
		return fmt.Errorf("failed to resolve project directory: %w", err)
	}

	var cfg *config.Config
	if a.configPath != "" {
		cfg, err = config.Load(config.ExpandHome(a.configPath), base)
	} else {
		cfg, err = config.LoadOptional(filepath.Join(base, defaultConfigName), base)
	}
	if err != nil {
		return err
	}

	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	if cfg.Logging.FilePath != "" {
		cfg.Logging.FilePath = cfg.Resolve(cfg.Logging.FilePath)
	}
	logger.SetConsoleOutput(cmd.ErrOrStderr())
	if err := logger.Init(cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	log := logger.WithComponent("main")
	log.Debug().
		Str("base", base).
		Str("label", cfg.Label).
		Str("descriptor", cfg.DescriptorPath()).
		Msg("Configuration loaded")

	a.cfg = cfg
	return nil
}

func (a *app) installer() *installer.Installer {
	return installer.New(a.cfg, a.newSupervisor(a.cfg))
}
