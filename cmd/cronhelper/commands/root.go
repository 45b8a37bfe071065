// Package commands implements the cronhelper command line.
//
// Programs that bind callback or route targets build their own binary
// around NewRootCmd, passing registry.WithBinder.
package commands

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jdziat/simple-durable-cron/pkg/config"
	"github.com/jdziat/simple-durable-cron/pkg/registry"
	"github.com/jdziat/simple-durable-cron/pkg/service"
	"github.com/jdziat/simple-durable-cron/pkg/storage"
)

// env holds everything a command needs, built once per invocation.
type env struct {
	cfg     *config.Config
	log     *zap.SugaredLogger
	store   *storage.GormStorage
	reg     *registry.Registry
	regOpts []registry.Option
	closed  bool
}

// close releases the logger and database handle. It is safe to call more
// than once.
func (e *env) close() {
	if e.closed {
		return
	}
	e.closed = true
	if e.log != nil {
		_ = e.log.Sync()
	}
	if e.store == nil {
		return
	}
	if sqlDB, err := e.store.DB().DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// service builds a cycle service from the loaded configuration. The
// instance table is created first when missing.
func (e *env) service(ctx context.Context, opts ...service.Option) (*service.Service, error) {
	if err := e.store.Migrate(ctx); err != nil {
		return nil, err
	}
	base := []service.Option{
		service.WithOptions(e.cfg.Options),
		service.WithLogger(e.log),
	}
	return service.New(e.store, e.reg, append(base, opts...)...)
}

// NewRootCmd builds the cronhelper command tree. Registry options, such as
// a binder holding callback and route targets, apply to the registry built
// from configuration.
func NewRootCmd(regOpts ...registry.Option) *cobra.Command {
	return newRootCmd(&env{regOpts: regOpts})
}

func newRootCmd(e *env) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "cronhelper",
		Short: "Database-backed periodic job scheduler",
		Long: `cronhelper materializes job instances from cron expressions, runs the
due ones and keeps their history in a database.

Install a single crontab entry that runs a full cycle every minute:

  * * * * * cronhelper run --config /etc/cronhelper/cronhelper.yaml

Examples:
  cronhelper run               # schedule, process, recover and clean up
  cronhelper jobs              # list configured jobs
  cronhelper trigger report    # queue a run of report now
  cronhelper db create         # create the instance table`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.load(configPath); err != nil {
				e.close()
				return err
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./cronhelper.yaml or /etc/cronhelper/cronhelper.yaml)")

	root.AddCommand(
		newRunCmd(e),
		newStageCmd(e, "schedule", "Create pending instances for the schedule-ahead window", (*service.Service).Schedule),
		newStageCmd(e, "process", "Run due pending instances", (*service.Service).Process),
		newStageCmd(e, "recover", "Mark instances running longer than maxRunningTime as failed", (*service.Service).RecoverRunning),
		newStageCmd(e, "cleanup", "Remove instances older than their log lifetime", (*service.Service).Cleanup),
		newTriggerCmd(e),
		newJobsCmd(e),
		newDBCmd(e),
		newServeCmd(e),
	)
	e.closeAfterRun(root)
	return root
}

// closeAfterRun wraps every RunE in the tree so the env is closed whether
// the command succeeds or fails. Cobra skips post-run hooks on error.
func (e *env) closeAfterRun(cmd *cobra.Command) {
	for _, sub := range cmd.Commands() {
		e.closeAfterRun(sub)
	}
	if cmd.RunE == nil {
		return
	}
	run := cmd.RunE
	cmd.RunE = func(c *cobra.Command, args []string) error {
		defer e.close()
		return run(c, args)
	}
}

func (e *env) load(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}
	e.cfg = cfg

	if e.log, err = cfg.Logger(); err != nil {
		return err
	}
	if e.reg, err = cfg.Registry(e.regOpts...); err != nil {
		return errors.Wrap(err, "failed to build job registry")
	}
	if e.store, err = cfg.OpenStorage(); err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	return nil
}
