package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDBCmd(e *env) *cobra.Command {
	db := &cobra.Command{
		Use:   "db",
		Short: "Manage the instance table",
		Long: `Manage the instance table.

Examples:
  cronhelper db create     # create the table and its indexes
  cronhelper db clear      # delete every instance
  cronhelper db destroy    # drop the table`,
	}

	db.AddCommand(
		&cobra.Command{
			Use:   "create",
			Short: "Create the instance table and indexes",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := e.store.Migrate(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "instance table ready")
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete every instance",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				n, err := e.store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d instances\n", n)
				return nil
			},
		},
		&cobra.Command{
			Use:   "destroy",
			Short: "Drop the instance table",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := e.store.Destroy(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "instance table dropped")
				return nil
			},
		},
	)
	return db
}
