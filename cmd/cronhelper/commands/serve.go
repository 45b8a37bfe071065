package commands

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/jdziat/simple-durable-cron/api"
	"github.com/jdziat/simple-durable-cron/pkg/logging"
)

// ErrAPIDisabled is returned by serve when allowJsonApi is false.
var ErrAPIDisabled = errors.New("json api is disabled (set options.allowJsonApi)")

func newServeCmd(e *env) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only JSON status API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !e.cfg.Options.AllowJSONAPI {
				return ErrAPIDisabled
			}
			if listen == "" {
				listen = e.cfg.API.Listen
			}
			if err := e.store.Migrate(cmd.Context()); err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              listen,
				Handler:           api.Handler(e.store, e.reg, e.cfg.Options.JSONAPISecurityHash, api.WithLogger(e.log)),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			errCh := make(chan error, 1)
			go func() {
				e.log.Infow("status api listening", logging.FieldAddress, listen)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return errors.Wrap(err, "status api")
			case <-ctx.Done():
			}

			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides api.listen)")
	return cmd
}
