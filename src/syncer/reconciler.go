package syncer

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"btrsnap/src/repo"
)

// ErrNoTarget reports a sync attempt with no target configured. Raised
// before any repository is listed.
var ErrNoTarget = errors.New("no sync target configured")

// Transport executes transfer steps against the underlying send/receive
// primitive. Implementations decide locality; the reconciler does not care.
type Transport interface {
	SendFull(ctx context.Context, snapshot string) error
	SendIncremental(ctx context.Context, base, snapshot string) error
}

// Pruner removes one snapshot from the target repository.
type Pruner interface {
	Delete(ctx context.Context, name string) error
}

// Reconciler drives one sync pass: list both sides, plan, transfer, then
// prune target snapshots that no longer exist on the source.
type Reconciler struct {
	Source    repo.Lister
	Target    repo.Lister
	Transport Transport
	Pruner    Pruner

	log *zap.Logger
}

func NewReconciler(source, target repo.Lister, transport Transport, pruner Pruner, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{Source: source, Target: target, Transport: transport, Pruner: pruner, log: log}
}

// Plan lists both repositories and computes the transfer plan plus the
// target-only snapshots that will be pruned after it executes.
func (r *Reconciler) Plan(ctx context.Context) (Plan, []string, error) {
	if r.Target == nil {
		return nil, nil, ErrNoTarget
	}
	source, err := r.Source.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	sort.Strings(source)

	target, err := r.Target.List(ctx)
	if err != nil {
		return nil, nil, err
	}

	plan := BuildPlan(source, target)

	inSource := make(map[string]struct{}, len(source))
	for _, name := range source {
		inSource[name] = struct{}{}
	}
	var obsolete []string
	for _, name := range target {
		if _, ok := inSource[name]; !ok {
			obsolete = append(obsolete, name)
		}
	}
	sort.Strings(obsolete)

	return plan, obsolete, nil
}

// Run executes one full sync pass. Transfer failures abort the pass
// immediately; pruning failures are logged per snapshot and do not stop the
// remaining deletions. Pruning strictly follows a completed transfer phase.
func (r *Reconciler) Run(ctx context.Context) error {
	plan, obsolete, err := r.Plan(ctx)
	if err != nil {
		return err
	}
	if len(plan) == 0 {
		r.log.Info("target already in sync")
	}
	for _, step := range plan {
		if step.Incremental() {
			err = r.Transport.SendIncremental(ctx, step.Base, step.Snapshot)
		} else {
			r.log.Info("no common snapshot, falling back to full transfer",
				zap.String("snapshot", step.Snapshot))
			err = r.Transport.SendFull(ctx, step.Snapshot)
		}
		if err != nil {
			return err
		}
	}

	var failed error
	for _, name := range obsolete {
		if err := r.Pruner.Delete(ctx, name); err != nil {
			r.log.Error("target snapshot deletion failed",
				zap.String("snapshot", name),
				zap.Error(err))
			failed = multierr.Append(failed, err)
			continue
		}
		r.log.Info("obsolete target snapshot deleted", zap.String("snapshot", name))
	}
	if failed != nil {
		r.log.Warn("sync finished with failed target deletions",
			zap.Int("failed", len(multierr.Errors(failed))))
	}
	return nil
}
