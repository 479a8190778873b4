package cli

import (
	"context"
	"errors"
	"io"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func newDaemonCmd(v *viper.Viper, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the snapshot/retention/sync cycle on the configured cron schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(v)
			if err != nil {
				return err
			}
			defer env.log.Sync()

			if env.cfg.Schedule == "" {
				return errors.New("daemon mode needs a 'schedule' in the config file")
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c := cron.New()
			_, err = c.AddFunc(env.cfg.Schedule, func() {
				// each tick behaves like one `run` invocation; a held lock
				// means an external run is in flight and this tick is skipped
				if err := env.withLock(ctx, func(ctx context.Context) error {
					return runCycle(ctx, env)
				}); err != nil {
					env.log.Error("scheduled cycle failed", zap.Error(err))
				}
			})
			if err != nil {
				return err
			}

			env.log.Info("daemon started", zap.String("schedule", env.cfg.Schedule))
			c.Start()
			<-ctx.Done()
			env.log.Info("shutting down, waiting for running cycle")
			<-c.Stop().Done()
			return nil
		},
	}
}
