// Package installer makes the worker run as a supervised LaunchAgent and
// tears the registration down again.
//
// Install and Uninstall are idempotent. Install always rewrites the
// descriptor from configuration and replaces any previous registration
// under the same label; Uninstall only removes the registration and its
// descriptor, never user data.
package installer

import (
	"context"
	"errors"
	"fmt"
	"os"

	"autoresponder/internal/config"
	"autoresponder/internal/descriptor"
	"autoresponder/internal/logger"
	"autoresponder/internal/service"
	"autoresponder/internal/supervisor"
)

// Installer manages the supervisor registration for one label.
type Installer struct {
	cfg *config.Config
	sup supervisor.Supervisor
}

// New creates an Installer for cfg using sup.
func New(cfg *config.Config, sup supervisor.Supervisor) *Installer {
	return &Installer{cfg: cfg, sup: sup}
}

// credentialsFile is read by the worker at startup; it is optional for the
// installer but the worker exits immediately without it.
const credentialsFile = ".env"

// Precheck verifies the dependency environment exists and its interpreter
// is executable. It has no side effects.
func (i *Installer) Precheck() error {
	log := logger.WithComponent("installer")

	envPath := i.cfg.EnvPath()
	info, err := os.Stat(envPath)
	if err != nil {
		return &EnvironmentError{Path: envPath, Err: err}
	}
	if !info.IsDir() {
		return &EnvironmentError{Path: envPath, Err: errors.New("not a directory")}
	}

	interp := i.cfg.InterpreterPath()
	if err := checkExecutable(interp); err != nil {
		return &EnvironmentError{Path: interp, Err: err}
	}

	if _, err := os.Stat(i.cfg.EntryPointPath()); err != nil {
		log.Warn().Str("path", i.cfg.EntryPointPath()).Msg("Worker entry point not found, the service will fail to start")
	}
	if _, err := os.Stat(i.cfg.Resolve(credentialsFile)); err != nil {
		log.Warn().Str("path", i.cfg.Resolve(credentialsFile)).Msg("Credentials file not found, the worker will exit until it is created")
	}

	log.Debug().Str("interpreter", interp).Msg("Precheck passed")
	return nil
}

// Render returns the descriptor Install would write, without side effects.
func (i *Installer) Render() (descriptor.Descriptor, error) {
	d := descriptor.FromConfig(i.cfg)
	if err := d.Validate(); err != nil {
		return descriptor.Descriptor{}, err
	}
	return d, nil
}

// Install registers the worker with the supervisor. Steps run strictly in
// order and any fatal failure stops before the next one.
func (i *Installer) Install(ctx context.Context) error {
	if err := i.Precheck(); err != nil {
		return err
	}

	log := logger.WithComponent("installer")
	logsDir := i.cfg.LogsPath()

	if err := i.install(ctx); err != nil {
		if werr := service.WriteErrorFile(logsDir, service.InstallErrorFile, "INSTALL", err); werr != nil {
			log.Warn().Err(werr).Msg("Failed to record install error")
		}
		return err
	}
	service.ClearErrorFile(logsDir, service.InstallErrorFile)
	return nil
}

func (i *Installer) install(ctx context.Context) error {
	log := logger.WithComponent("installer")
	path := i.cfg.DescriptorPath()

	if err := os.MkdirAll(i.cfg.LogsPath(), 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	d, err := i.Render()
	if err != nil {
		return fmt.Errorf("failed to render descriptor: %w", err)
	}

	if err := descriptor.WriteFile(path, d); err != nil {
		return err
	}
	log.Info().Str("path", path).Str("label", d.Label).Msg("Descriptor written")

	if err := i.unregister(ctx, path); err != nil {
		return err
	}

	if err := i.sup.Register(ctx, path); err != nil {
		return &RegistrationError{Label: d.Label, DescriptorPath: path, Err: err}
	}
	log.Info().Str("label", d.Label).Msg("Service registered")
	return nil
}

// unregister removes a previous registration. Only an unresponsive
// supervisor is fatal: not-found is expected and other supervisor errors
// must not block forward progress.
func (i *Installer) unregister(ctx context.Context, path string) error {
	log := logger.WithComponent("installer")

	err := i.sup.Unregister(ctx, path)
	switch {
	case err == nil:
		log.Info().Str("label", i.cfg.Label).Msg("Previous registration unloaded")
	case errors.Is(err, supervisor.ErrNotFound):
		log.Debug().Str("label", i.cfg.Label).Msg("No previous registration")
	case errors.Is(err, supervisor.ErrUnresponsive):
		return err
	default:
		log.Warn().Err(err).Str("label", i.cfg.Label).Msg("Unregister failed, continuing")
	}
	return nil
}

// Uninstall unregisters the service and deletes its descriptor. It returns
// NotInstalled without touching anything when no descriptor exists.
func (i *Installer) Uninstall(ctx context.Context) (UninstallResult, error) {
	log := logger.WithComponent("installer")
	path := i.cfg.DescriptorPath()

	exists, err := descriptor.Exists(path)
	if err != nil {
		return NotInstalled, fmt.Errorf("failed to check descriptor: %w", err)
	}
	if !exists {
		log.Info().Str("path", path).Msg("Service not installed")
		return NotInstalled, nil
	}

	if err := i.unregister(ctx, path); err != nil {
		return NotInstalled, err
	}

	if _, err := descriptor.Remove(path); err != nil {
		return NotInstalled, err
	}
	log.Info().Str("path", path).Msg("Descriptor removed")
	return Removed, nil
}

// State is a snapshot of the installation.
type State struct {
	Installed      bool
	DescriptorPath string
	Descriptor     *descriptor.Descriptor
	Registration   *supervisor.Registration
}

// State reports whether the descriptor exists and what the supervisor
// currently knows about the label.
func (i *Installer) State(ctx context.Context) (State, error) {
	st := State{DescriptorPath: i.cfg.DescriptorPath()}

	exists, err := descriptor.Exists(st.DescriptorPath)
	if err != nil {
		return st, fmt.Errorf("failed to check descriptor: %w", err)
	}
	st.Installed = exists
	if exists {
		d, err := descriptor.ReadFile(st.DescriptorPath)
		if err != nil {
			return st, err
		}
		st.Descriptor = &d
	}

	reg, err := i.sup.Lookup(ctx, i.cfg.Label)
	switch {
	case err == nil:
		st.Registration = &reg
	case errors.Is(err, supervisor.ErrNotFound):
	default:
		return st, err
	}
	return st, nil
}

// Config returns the configuration the installer was built with.
func (i *Installer) Config() *config.Config {
	return i.cfg
}
