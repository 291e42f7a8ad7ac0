package main

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"autoresponder/internal/logtail"
	"autoresponder/internal/scheduler"
	"autoresponder/internal/service"
	"autoresponder/internal/status"
)

func newStatusCmd(a *app) *cobra.Command {
	var watch time.Duration

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the service is installed and running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			insp := status.NewInspector(a.installer())
			if watch <= 0 {
				rep, err := insp.Inspect(cmd.Context())
				if err != nil {
					return err
				}
				return status.Render(out, rep)
			}

			s := scheduler.New("status", watch, func(ctx context.Context) error {
				rep, err := insp.Inspect(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "--- %s\n", time.Now().Format(time.TimeOnly))
				return status.Render(out, rep)
			})
			return service.RunUntilSignal(cmd.Context(), func(ctx context.Context) error {
				if err := s.Start(ctx); err != nil {
					return err
				}
				<-ctx.Done()
				s.Stop()
				return nil
			})
		},
	}
	cmd.Flags().DurationVarP(&watch, "watch", "w", 0, "refresh the report at this interval until interrupted")
	return cmd
}

func newLogsCmd(a *app) *cobra.Command {
	var (
		lines  int
		follow bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the worker's recent output",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			srcs := logtail.Sources(a.cfg)
			if err := logtail.Print(out, srcs, lines); err != nil {
				return err
			}
			if !follow {
				return nil
			}

			f, err := logtail.NewFollower(srcs)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "\nFollowing logs, press Ctrl-C to stop.")
			return service.RunUntilSignal(cmd.Context(), func(ctx context.Context) error {
				return f.Run(ctx, out)
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "number of lines to show from each log")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing new lines as they are written")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// No configuration is needed to print the version.
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "responderctl %s (built %s, %s %s/%s)\n",
				version, buildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
