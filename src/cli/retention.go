package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"btrsnap/src/retention"
	"btrsnap/src/safety"
)

func newRetentionCmd(v *viper.Viper, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "retention",
		Short: "Prune source snapshots per the configured retention policies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(v)
			if err != nil {
				return err
			}
			defer env.log.Sync()

			ctx := commandContext(cmd)
			candidates, err := env.eng.PlanRetention(ctx)
			if err != nil {
				return err
			}
			renderRetentionPlan(stdout, candidates)

			opts := getSafetyOptions(cmd)
			if opts.DryRun || len(candidates) == 0 {
				return nil
			}
			ok, err := safety.Confirm(opts, os.Stdin, stdout,
				fmt.Sprintf("Delete %d snapshots?", len(candidates)))
			if err != nil || !ok {
				return err
			}
			return env.withLock(ctx, func(ctx context.Context) error {
				if err := env.eng.Preflight(ctx); err != nil {
					return err
				}
				return env.eng.ApplyRetention(ctx)
			})
		},
	}
}

func renderRetentionPlan(out io.Writer, candidates []retention.Candidate) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "POLICY\tSNAPSHOT\tACTION")
	for _, c := range candidates {
		fmt.Fprintf(tw, "%s\t%s\tdelete\n", c.Policy, c.Snapshot)
	}
	_ = tw.Flush()
}
