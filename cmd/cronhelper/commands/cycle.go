package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jdziat/simple-durable-cron/pkg/service"
)

// signalContext is canceled on SIGINT or SIGTERM so a cycle stops between
// instances instead of being killed mid-write.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func newRunCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one full cycle",
		Long:  "Run schedule, process, recover and cleanup in order. A failing stage does not stop later stages.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()
			svc, err := e.service(ctx)
			if err != nil {
				return err
			}
			return svc.Run(ctx)
		},
	}
}

func newStageCmd(e *env, name, short string, stage func(*service.Service, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()
			svc, err := e.service(ctx)
			if err != nil {
				return err
			}
			return stage(svc, ctx)
		},
	}
}

func newTriggerCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "trigger <code>",
		Short: "Queue a run of a job for the current minute",
		Long:  "Create a pending instance of the job for the current minute. The next process or run picks it up.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := e.service(cmd.Context())
			if err != nil {
				return err
			}
			inst, err := svc.Trigger(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %s %s at %s\n",
				inst.Code, inst.ID, inst.ScheduledAt.Format("2006-01-02 15:04"))
			return nil
		},
	}
}
