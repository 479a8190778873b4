package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"btrsnap/src/safety"
	"btrsnap/src/syncer"
)

func newSyncCmd(v *viper.Viper, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replicate source snapshots to the target, then prune obsolete ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(v)
			if err != nil {
				return err
			}
			defer env.log.Sync()

			ctx := commandContext(cmd)
			plan, obsolete, err := env.eng.PlanSync(ctx)
			if err != nil {
				return err
			}
			renderSyncPlan(stdout, plan, obsolete)

			opts := getSafetyOptions(cmd)
			if opts.DryRun || (len(plan) == 0 && len(obsolete) == 0) {
				return nil
			}
			if len(obsolete) > 0 {
				ok, err := safety.Confirm(opts, os.Stdin, stdout,
					fmt.Sprintf("Transfer %d snapshots and delete %d target snapshots?", len(plan), len(obsolete)))
				if err != nil || !ok {
					return err
				}
			}
			return env.withLock(ctx, func(ctx context.Context) error {
				if err := env.eng.Preflight(ctx); err != nil {
					return err
				}
				return env.eng.SyncToTarget(ctx)
			})
		},
	}
}

func renderSyncPlan(out io.Writer, plan syncer.Plan, obsolete []string) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BASE\tSNAPSHOT\tACTION")
	for _, step := range plan {
		if step.Incremental() {
			fmt.Fprintf(tw, "%s\t%s\tincremental send\n", step.Base, step.Snapshot)
		} else {
			fmt.Fprintf(tw, "-\t%s\tfull send\n", step.Snapshot)
		}
	}
	for _, name := range obsolete {
		fmt.Fprintf(tw, "-\t%s\tdelete from target\n", name)
	}
	_ = tw.Flush()
}
