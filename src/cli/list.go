package cli

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"btrsnap/src/snapshot"
)

func newListCmd(v *viper.Viper, stdout io.Writer) *cobra.Command {
	var targetSide bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List snapshots on the source (or target) side",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(v)
			if err != nil {
				return err
			}
			defer env.log.Sync()

			ctx := commandContext(cmd)
			var names []string
			if targetSide {
				names, err = env.eng.ListTarget(ctx)
			} else {
				names, err = env.eng.ListSource(ctx)
			}
			if err != nil {
				return err
			}
			sort.Strings(names)

			tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SNAPSHOT\tCREATED\tAGE")
			now := time.Now()
			for _, name := range names {
				created, err := snapshot.ParseTime(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n",
					name,
					created.Format("2006-01-02 15:04"),
					now.Sub(created).Round(time.Minute))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&targetSide, "target-side", false, "List the target repository instead of the source")
	return cmd
}
