package backend

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"btrsnap/src/backend/btrfs"
	"btrsnap/src/config"
	"btrsnap/src/retention"
	"btrsnap/src/syncer"
)

// Engine is the capability surface of one snapshot backend. Each phase of an
// invocation maps to one method; the Plan variants preview without mutating
// and back the --dry-run flag.
type Engine interface {
	// Preflight verifies the configured environment: paths exist, subvolumes
	// are real, the remote host answers. Run once before any phase.
	Preflight(ctx context.Context) error

	// CreateSnapshots takes one read-only snapshot per configured subvolume.
	CreateSnapshots(ctx context.Context) error

	// ListSource returns the source repository's snapshot names.
	ListSource(ctx context.Context) ([]string, error)
	// ListTarget returns the target repository's snapshot names; without a
	// configured target it fails with syncer.ErrNoTarget.
	ListTarget(ctx context.Context) ([]string, error)

	// PlanRetention computes the deletions ApplyRetention would perform.
	PlanRetention(ctx context.Context) ([]retention.Candidate, error)
	// ApplyRetention prunes source snapshots per the configured policies.
	ApplyRetention(ctx context.Context) error

	// PlanSync computes the transfer plan and the target-only snapshots the
	// sync pass would prune afterwards.
	PlanSync(ctx context.Context) (syncer.Plan, []string, error)
	// SyncToTarget runs one full sync pass against the configured target.
	SyncToTarget(ctx context.Context) error
}

// ForConfig selects the engine matching the configured source type.
// Backends this build does not implement are simply absent: the config layer
// already rejects their sections as unknown keys.
func ForConfig(cfg *config.Config, log *zap.Logger) (Engine, error) {
	if cfg.Source.Btrfs != nil {
		return btrfs.New(cfg, log), nil
	}
	return nil, errors.New("no supported source type configured")
}
