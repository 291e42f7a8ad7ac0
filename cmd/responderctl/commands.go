package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"autoresponder/internal/descriptor"
	"autoresponder/internal/installer"
)

func newPrecheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "precheck",
		Short: "Check that the dependency environment is ready",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.installer().Precheck(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Environment OK: %s\n", a.cfg.InterpreterPath())
			return nil
		},
	}
}

func newInstallCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Register the worker as a background service",
		Long: `Install writes the service descriptor and registers it with launchd.
Running it again replaces the existing registration, so it is also the
way to pick up configuration changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.installer().Install(cmd.Context()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Service installed.")
			fmt.Fprintf(out, "  Label:       %s\n", a.cfg.Label)
			fmt.Fprintf(out, "  Descriptor:  %s\n", a.cfg.DescriptorPath())
			fmt.Fprintf(out, "  Stdout log:  %s\n", a.cfg.StdoutPath())
			fmt.Fprintf(out, "  Stderr log:  %s\n", a.cfg.StderrPath())
			fmt.Fprintln(out, "The service starts now and at every login; it is restarted if it exits.")
			return nil
		},
	}
}

func newUninstallCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Stop the service and remove its registration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.installer().Uninstall(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res == installer.NotInstalled {
				fmt.Fprintln(out, "Service not installed; nothing to do.")
				return nil
			}
			fmt.Fprintln(out, "Service removed.")
			fmt.Fprintln(out, "Kept user data:")
			for _, p := range a.cfg.Preserved() {
				fmt.Fprintf(out, "  %s\n", p)
			}
			return nil
		},
	}
}

func newPrintDescriptorCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "print-descriptor",
		Short: "Print the service descriptor install would write",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := a.installer().Render()
			if err != nil {
				return err
			}
			data, err := descriptor.Marshal(d)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
