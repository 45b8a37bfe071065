package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newJobsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List configured jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tFREQUENCY\tTASK\tARGS")
			for _, def := range e.reg.Definitions() {
				freq := def.Frequency
				if freq == "" {
					freq = "(on demand)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", def.Code, freq, def.Task.Kind(), len(def.Args))
			}
			return w.Flush()
		},
	}
}
