package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"btrsnap/src/snapshot"
)

func newSnapshotCmd(v *viper.Viper, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Create read-only snapshots of all configured subvolumes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(v)
			if err != nil {
				return err
			}
			defer env.log.Sync()

			ctx := commandContext(cmd)
			if getSafetyOptions(cmd).DryRun {
				for _, subvol := range env.cfg.Source.Btrfs.SubvolumePaths {
					fmt.Fprintf(stdout, "would snapshot %s as %s\n",
						subvol, snapshot.Subject(subvol))
				}
				return nil
			}
			return env.withLock(ctx, func(ctx context.Context) error {
				if err := env.eng.Preflight(ctx); err != nil {
					return err
				}
				return env.eng.CreateSnapshots(ctx)
			})
		},
	}
}
