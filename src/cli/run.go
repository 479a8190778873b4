package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRunCmd(v *viper.Viper, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run snapshot, retention, and sync in order under one lock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(v)
			if err != nil {
				return err
			}
			defer env.log.Sync()

			ctx := commandContext(cmd)
			if getSafetyOptions(cmd).DryRun {
				// same conditions as runCycle: phases absent from the config
				// have nothing to preview
				if len(env.cfg.Source.Btrfs.RetentionPolicies) > 0 {
					candidates, err := env.eng.PlanRetention(ctx)
					if err != nil {
						return err
					}
					renderRetentionPlan(stdout, candidates)
				}
				if env.cfg.Target != nil {
					plan, obsolete, err := env.eng.PlanSync(ctx)
					if err != nil {
						return err
					}
					renderSyncPlan(stdout, plan, obsolete)
				}
				return nil
			}
			return env.withLock(ctx, func(ctx context.Context) error {
				return runCycle(ctx, env)
			})
		},
	}
}

// runCycle is the full lifecycle pass shared by run and daemon: preflight,
// snapshot, retention, sync. Retention and sync only run when their config
// sections exist; an explicit `retention` or `sync` invocation still fails
// loudly on missing config.
func runCycle(ctx context.Context, env *environment) error {
	if err := env.eng.Preflight(ctx); err != nil {
		return err
	}
	if err := env.eng.CreateSnapshots(ctx); err != nil {
		return err
	}
	if len(env.cfg.Source.Btrfs.RetentionPolicies) > 0 {
		if err := env.eng.ApplyRetention(ctx); err != nil {
			return err
		}
	} else {
		env.log.Info("no retention policies configured, skipping retention")
	}
	if env.cfg.Target != nil {
		if err := env.eng.SyncToTarget(ctx); err != nil {
			return err
		}
	} else {
		env.log.Info("no target configured, skipping sync")
	}
	return nil
}
