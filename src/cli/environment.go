package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"btrsnap/src/backend"
	"btrsnap/src/config"
	"btrsnap/src/lockfile"
	"btrsnap/src/logging"
)

// environment is everything a command needs after flag parsing: the loaded
// config, the backend engine for it, and the process logger.
type environment struct {
	cfg *config.Config
	eng backend.Engine
	log *zap.Logger
}

// engineFactory is swapped out by tests to run commands against a fake
// engine.
var engineFactory = backend.ForConfig

// SetEngineFactoryForTest replaces the engine factory and returns a restore
// function.
func SetEngineFactoryForTest(f func(*config.Config, *zap.Logger) (backend.Engine, error)) func() {
	prev := engineFactory
	engineFactory = f
	return func() { engineFactory = prev }
}

func newEnvironment(v *viper.Viper) (*environment, error) {
	log, err := logging.New(logLevelFlag(v), logFormatFlag(v))
	if err != nil {
		return nil, err
	}
	path := configFlag(v)
	if path == "" {
		return nil, errors.New("--config is required (or set BTRSNAP_CONFIG)")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	eng, err := engineFactory(cfg, log)
	if err != nil {
		return nil, err
	}
	return &environment{cfg: cfg, eng: eng, log: log}, nil
}

// withLock acquires the process-wide lock, runs fn, and releases the lock on
// every path. Mutating phases all go through here.
func (e *environment) withLock(ctx context.Context, fn func(ctx context.Context) error) error {
	lock, err := lockfile.Acquire(e.cfg.LockPath)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := lock.Release(); rerr != nil {
			e.log.Error("lock release failed", zap.Error(rerr))
		}
	}()
	return fn(ctx)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
